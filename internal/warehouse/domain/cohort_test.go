package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func datePtr(d Date) *Date { return &d }

func TestCohortKey_NullEqualsNull(t *testing.T) {
	a := CohortKey{Name: "Widget", CategoryID: 1}
	b := CohortKey{Name: "Widget", CategoryID: 1}

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.String(), b.String())
}

func TestCohortKey_NullDiffersFromValue(t *testing.T) {
	base := CohortKey{Name: "Widget", CategoryID: 1}

	withNote := base
	withNote.Note = strPtr("")
	assert.False(t, base.Equal(withNote))
	assert.NotEqual(t, base.String(), withNote.String())

	withSymbol := base
	withSymbol.Note = strPtr("∅")
	assert.False(t, base.Equal(withSymbol))
	assert.NotEqual(t, base.String(), withSymbol.String())

	withDate := base
	withDate.ExpirationDate = datePtr(NewDate(2026, time.March, 1))
	assert.False(t, base.Equal(withDate))
	assert.NotEqual(t, base.String(), withDate.String())
}

func TestCohortKey_AllFields(t *testing.T) {
	a := CohortKey{
		Name:           "Widget",
		CategoryID:     3,
		Manufacturer:   strPtr("Acme"),
		ExpirationDate: datePtr(NewDate(2026, time.March, 1)),
		Note:           strPtr("fragile"),
	}
	b := a
	b.Manufacturer = strPtr("Acme")
	b.ExpirationDate = datePtr(NewDate(2026, time.March, 1))
	assert.True(t, a.Equal(b))

	b.CategoryID = 4
	assert.False(t, a.Equal(b))
}

func TestCohortKey_StringSeparatorsAreUnambiguous(t *testing.T) {
	a := CohortKey{Name: "a|1", CategoryID: 2}
	b := CohortKey{Name: "a", CategoryID: 1}
	assert.NotEqual(t, a.String(), b.String())
}

func TestDate_JSONAndScan(t *testing.T) {
	d := NewDate(2026, time.October, 16)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2026-10-16"`, string(raw))

	var back Date
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, d.Equal(back))

	var scanned Date
	require.NoError(t, scanned.Scan(time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-10-16", scanned.String())

	require.NoError(t, scanned.Scan([]byte("2025-01-02")))
	assert.Equal(t, "2025-01-02", scanned.String())

	assert.Error(t, json.Unmarshal([]byte(`"16.10.2026"`), &back))
}

func TestDate_Arithmetic(t *testing.T) {
	d := NewDate(2026, time.December, 31)
	assert.Equal(t, "2027-01-01", d.AddDays(1).String())
	assert.Equal(t, "2027-01-30", d.AddDays(30).String())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.After(d.AddDays(-1)))
}
