package repository

import (
	"testing"
	"time"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemWhereCombinesExpiryFiltersWithOr(t *testing.T) {
	today := domain.NewDate(2026, 3, 10)
	where, args := itemWhere(ItemFilter{Expired: true, ExpiringSoon: true, Today: today, SoonDays: 30})

	assert.Contains(t, where, "a.removed_at IS NULL")
	assert.Contains(t, where, " OR i.expiration_date < ?::date)")
	assert.Equal(t, []interface{}{today, today.AddDays(30), today}, args)
}

func TestHistoryWhereMostSpecificLocationWins(t *testing.T) {
	room, shelf := int64(1), int64(9)
	where, args := historyWhere(HistoryFilter{RoomID: &room, ShelfID: &shelf})

	assert.Equal(t, "WHERE a.shelf_id = ?", where)
	assert.Equal(t, []interface{}{shelf}, args)
}

func TestHistoryWhereDateBoundsUseLocation(t *testing.T) {
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		t.Skip("tzdata not available")
	}
	day := domain.NewDate(2026, 7, 1)
	_, args := historyWhere(HistoryFilter{DateFrom: &day, DateTo: &day, Loc: warsaw})

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, warsaw)
	end := time.Date(2026, 7, 2, 0, 0, 0, 0, warsaw)
	assert.Equal(t, []interface{}{start, start, end, end}, args)
}

func TestHistoryWhereEmpty(t *testing.T) {
	where, args := historyWhere(HistoryFilter{Actor: "  "})
	assert.Empty(t, where)
	assert.Nil(t, args)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% \_x\\`, escapeLike(`50% _x\`))
}

func TestExportWhereSharesListingVocabulary(t *testing.T) {
	today := domain.NewDate(2026, 3, 10)
	where, args := exportWhere(ExportFilter{Search: "bandaż", HasNote: true, ExpiringSoon: true, Today: today, SoonDays: 30})

	assert.Equal(t, "WHERE a.removed_at IS NULL AND i.name ILIKE ? AND i.note IS NOT NULL AND i.note <> '' "+
		"AND ((i.expiration_date >= ?::date AND i.expiration_date <= ?::date))", where)
	assert.Equal(t, []interface{}{"%bandaż%", today, today.AddDays(30)}, args)
}

func TestExportWhereDefaultsToUnexpired(t *testing.T) {
	today := domain.NewDate(2026, 3, 10)
	where, args := exportWhere(ExportFilter{IncludeRemoved: true, Today: today})

	assert.Equal(t, "WHERE (i.expiration_date IS NULL OR i.expiration_date > ?::date)", where)
	assert.Equal(t, []interface{}{today}, args)

	where, args = exportWhere(ExportFilter{IncludeRemoved: true, IncludeExpired: true, Today: today})
	assert.Empty(t, where)
	assert.Nil(t, args)
}

func TestHistoryWhereActorMatchesNamesAndEmails(t *testing.T) {
	where, args := historyWhere(HistoryFilter{Actor: " nowak "})

	assert.Equal(t, "WHERE (a.added_by ILIKE ? OR (ua.first_name || ' ' || ua.last_name) ILIKE ? OR ua.email ILIKE ? "+
		"OR a.removed_by ILIKE ? OR (ur.first_name || ' ' || ur.last_name) ILIKE ? OR ur.email ILIKE ?)", where)
	require.Len(t, args, 6)
	for _, a := range args {
		assert.Equal(t, "%nowak%", a)
	}
}
