// Package domain holds the pure rules of the warehouse: name normalization,
// calendar dates, cohort identity, the batch size policy and the chunk
// continuation token. Nothing here touches the database.
package domain

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FallbackRoom, FallbackRack and FallbackShelf name the location that
// cleaned-out items are moved to.
const (
	FallbackRoom  = "Unassigned"
	FallbackRack  = "A"
	FallbackShelf = 1
)

// NormalizeName is the single canonical form for room, category and item
// names: surrounding whitespace trimmed, inner runs of whitespace collapsed
// to one space, every word title-cased.
//
//	"  paracetamol   FORTE " -> "Paracetamol Forte"
//	"żel do USG"             -> "Żel Do Usg"
func NormalizeName(raw string) string {
	collapsed := strings.Join(strings.Fields(raw), " ")
	if collapsed == "" {
		return ""
	}
	// Casers carry state; one per call.
	return cases.Title(language.Und).String(collapsed)
}

// NormalizeRackName upper-cases a rack name and reports whether it is a
// single letter or digit.
func NormalizeRackName(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if utf8.RuneCountInString(s) != 1 {
		return s, false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return s, unicode.IsLetter(r) || unicode.IsDigit(r)
}

// NormalizeOptional trims s and maps blank input to nil.
func NormalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// NormalizeManufacturer is NormalizeOptional followed by NormalizeName.
func NormalizeManufacturer(s *string) *string {
	v := NormalizeOptional(s)
	if v == nil {
		return nil
	}
	n := NormalizeName(*v)
	return &n
}

// FullLocation composes the dotted shelf address, e.g. "Magazyn.A.3".
func FullLocation(room, rack string, shelf int) string {
	return room + "." + rack + "." + strconv.Itoa(shelf)
}
