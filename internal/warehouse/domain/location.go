package domain

import "strings"

// LocationKind names a level of the room/rack/shelf hierarchy.
type LocationKind string

const (
	KindRoom  LocationKind = "room"
	KindRack  LocationKind = "rack"
	KindShelf LocationKind = "shelf"
)

// Valid reports whether k is one of the three levels.
func (k LocationKind) Valid() bool {
	switch k {
	case KindRoom, KindRack, KindShelf:
		return true
	}
	return false
}

// LocationURL builds the externally resolvable address printed on QR labels:
// <base>/<kind>/<token>.
func LocationURL(base string, kind LocationKind, token string) string {
	return strings.TrimRight(base, "/") + "/" + string(kind) + "/" + token
}
