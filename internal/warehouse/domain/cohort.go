package domain

import (
	"strconv"
	"strings"
)

// CohortKey identifies a set of indistinguishable units: items with equal
// name, category, manufacturer, expiration date and note. Absent values
// compare equal to each other and unequal to any present value.
type CohortKey struct {
	Name           string  `json:"name"`
	CategoryID     int64   `json:"category_id"`
	Manufacturer   *string `json:"manufacturer,omitempty"`
	ExpirationDate *Date   `json:"expiration_date,omitempty"`
	Note           *string `json:"note,omitempty"`
}

// Equal compares two keys field by field with null-equals-null semantics.
func (k CohortKey) Equal(other CohortKey) bool {
	return k.Name == other.Name &&
		k.CategoryID == other.CategoryID &&
		equalString(k.Manufacturer, other.Manufacturer) &&
		equalDate(k.ExpirationDate, other.ExpirationDate) &&
		equalString(k.Note, other.Note)
}

// String renders the key so that two keys have the same string exactly when
// they are Equal. Absent values render as "∅" and present ones are quoted,
// so an absent note never collides with a note reading "∅".
func (k CohortKey) String() string {
	var b strings.Builder
	b.WriteString(strconv.Quote(k.Name))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(k.CategoryID, 10))
	b.WriteByte('|')
	writeOptional(&b, k.Manufacturer)
	b.WriteByte('|')
	if k.ExpirationDate == nil {
		b.WriteString("∅")
	} else {
		b.WriteString(k.ExpirationDate.String())
	}
	b.WriteByte('|')
	writeOptional(&b, k.Note)
	return b.String()
}

func writeOptional(b *strings.Builder, s *string) {
	if s == nil {
		b.WriteString("∅")
		return
	}
	b.WriteString(strconv.Quote(*s))
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalDate(a, b *Date) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
