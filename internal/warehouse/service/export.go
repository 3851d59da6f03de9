package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/internal/warehouse/repository"
	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the media type of exported workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	inventorySheet = "Inwentarz"
	summarySheet   = "Podsumowanie"
)

var inventoryHeaders = []string{
	"Nazwa przedmiotu", "Kategoria", "Producent", "Notatka",
	"Data ważności", "Lokalizacja", "Liczba", "Data usunięcia",
}

var inventoryWidths = map[string]float64{
	"A": 25, "B": 15, "C": 15, "D": 25, "E": 12, "F": 20, "G": 8, "H": 12,
}

// ExportQuery selects what goes into the workbook. Search, HasNote and
// Filters take the same values as in ItemQuery.
type ExportQuery struct {
	RoomID         *int64
	RackID         *int64
	ShelfID        *int64
	CategoryID     *int64
	Search         string
	HasNote        bool
	Filters        []string
	IncludeExpired bool
	IncludeRemoved bool
}

// ExportFile is a rendered workbook.
type ExportFile struct {
	Filename string
	Content  []byte
}

// ExportCriteria are the human readable filters printed on the summary
// sheet. Empty values are omitted.
type ExportCriteria struct {
	Room           string
	Rack           string
	Shelf          string
	Category       string
	Search         string
	HasNote        bool
	Expired        bool
	ExpiringSoon   bool
	IncludeExpired bool
	IncludeRemoved bool
}

// ExportGroup is one line of the inventory sheet.
type ExportGroup struct {
	Name           string
	Category       string
	Manufacturer   *string
	Note           *string
	ExpirationDate *domain.Date
	Location       string
	Count          int
	Removed        bool
	LastRemovedAt  *time.Time
}

// Export renders the inventory workbook for q.
func (s *WarehouseService) Export(ctx context.Context, q ExportQuery) (*ExportFile, error) {
	today := s.today()
	criteria := ExportCriteria{
		Search:         strings.TrimSpace(q.Search),
		HasNote:        q.HasNote,
		IncludeExpired: q.IncludeExpired,
		IncludeRemoved: q.IncludeRemoved,
	}
	for _, v := range q.Filters {
		switch strings.TrimSpace(v) {
		case FilterExpired:
			criteria.Expired = true
		case FilterExpiringSoon:
			criteria.ExpiringSoon = true
		}
	}

	var roomName, categoryName string
	if q.RoomID != nil {
		room, err := s.repos.Locations.GetRoom(ctx, *q.RoomID)
		if err != nil {
			return nil, err
		}
		roomName, criteria.Room = room.Name, room.Name
	}
	if q.RackID != nil {
		rack, err := s.repos.Locations.GetRack(ctx, *q.RackID)
		if err != nil {
			return nil, err
		}
		criteria.Rack = rack.Name
	}
	if q.ShelfID != nil {
		shelf, err := s.repos.Locations.GetShelf(ctx, *q.ShelfID)
		if err != nil {
			return nil, err
		}
		criteria.Shelf = strconv.Itoa(shelf.Number)
	}
	if q.CategoryID != nil {
		category, err := s.repos.Categories.Get(ctx, *q.CategoryID)
		if err != nil {
			return nil, err
		}
		categoryName, criteria.Category = category.Name, category.Name
	}

	rows, err := s.repos.Reports.ExportRows(ctx, repository.ExportFilter{
		RoomID:         q.RoomID,
		RackID:         q.RackID,
		ShelfID:        q.ShelfID,
		CategoryID:     q.CategoryID,
		Search:         criteria.Search,
		HasNote:        criteria.HasNote,
		Expired:        criteria.Expired,
		ExpiringSoon:   criteria.ExpiringSoon,
		IncludeExpired: q.IncludeExpired,
		IncludeRemoved: q.IncludeRemoved,
		Today:          today,
		SoonDays:       s.opts.ExpiringSoonDays,
	})
	if err != nil {
		return nil, err
	}

	content, err := BuildInventoryWorkbook(rows, criteria, today, s.opts.ExpiringSoonDays)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int("rows", len(rows)).Msg("inventory exported")
	return &ExportFile{Filename: ExportFilename(roomName, categoryName, today), Content: content}, nil
}

// ExportFilename returns inventory[_room-<room>][_cat-<category>]_<date>.xlsx
// in lower case with spaces replaced by underscores.
func ExportFilename(room, category string, day domain.Date) string {
	parts := []string{"inventory"}
	if room != "" {
		parts = append(parts, "room-"+room)
	}
	if category != "" {
		parts = append(parts, "cat-"+category)
	}
	parts = append(parts, day.String())
	name := strings.Join(parts, "_") + ".xlsx"
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// GroupExportRows folds assignments into one line per cohort, shelf and
// removal state, keeping the order of first appearance.
func GroupExportRows(rows []*repository.ExportRow) []*ExportGroup {
	index := make(map[string]*ExportGroup)
	var groups []*ExportGroup
	for _, r := range rows {
		removed := r.RemovedAt != nil
		key := r.Key().String() + "|" + strconv.FormatInt(r.ShelfID, 10) + "|" + strconv.FormatBool(removed)
		g, ok := index[key]
		if !ok {
			g = &ExportGroup{
				Name:           r.Name,
				Category:       r.CategoryName,
				Manufacturer:   r.Manufacturer,
				Note:           r.Note,
				ExpirationDate: r.ExpirationDate,
				Location:       r.FullLocation,
				Removed:        removed,
			}
			index[key] = g
			groups = append(groups, g)
		}
		g.Count++
		if removed && (g.LastRemovedAt == nil || r.RemovedAt.After(*g.LastRemovedAt)) {
			g.LastRemovedAt = r.RemovedAt
		}
	}
	return groups
}

// BuildInventoryWorkbook renders the inventory and summary sheets.
func BuildInventoryWorkbook(rows []*repository.ExportRow, criteria ExportCriteria, today domain.Date, soonDays int) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", inventorySheet); err != nil {
		return nil, err
	}
	styles, err := newExportStyles(f)
	if err != nil {
		return nil, err
	}

	if err := writeInventorySheet(f, styles, GroupExportRows(rows), today, soonDays); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	if err := writeSummarySheet(f, styles, rows, criteria, today, soonDays); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type exportStyles struct {
	header, cell, date               int
	expired, expiredDate             int
	nearlyExpired, nearlyExpiredDate int
	removed, removedDate             int
	title, subtitle, count           int
}

func newExportStyles(f *excelize.File) (*exportStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	dateFmt := "yyyy-mm-dd"
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
	}
	removedFont := &excelize.Font{Color: "888888", Italic: true}

	st := &exportStyles{}
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&st.header, &excelize.Style{Font: &excelize.Font{Bold: true, Color: "FFFFFF"}, Fill: fill("4A86E8"), Border: border}},
		{&st.cell, &excelize.Style{Border: border}},
		{&st.date, &excelize.Style{Border: border, CustomNumFmt: &dateFmt}},
		{&st.expired, &excelize.Style{Border: border, Fill: fill("FF0000")}},
		{&st.expiredDate, &excelize.Style{Border: border, Fill: fill("FF0000"), CustomNumFmt: &dateFmt}},
		{&st.nearlyExpired, &excelize.Style{Border: border, Fill: fill("FFA500")}},
		{&st.nearlyExpiredDate, &excelize.Style{Border: border, Fill: fill("FFA500"), CustomNumFmt: &dateFmt}},
		{&st.removed, &excelize.Style{Border: border, Font: removedFont}},
		{&st.removedDate, &excelize.Style{Border: border, Font: removedFont, CustomNumFmt: &dateFmt}},
		{&st.title, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 14},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border:    border,
		}},
		{&st.subtitle, &excelize.Style{Font: &excelize.Font{Bold: true}, Fill: fill("D9D9D9"), Border: border}},
		{&st.count, &excelize.Style{Alignment: &excelize.Alignment{Horizontal: "right"}, Border: border}},
	}

	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return nil, fmt.Errorf("create style: %w", err)
		}
		*d.dst = id
	}
	return st, nil
}

func writeInventorySheet(f *excelize.File, st *exportStyles, groups []*ExportGroup, today domain.Date, soonDays int) error {
	sheet := inventorySheet
	for col, width := range inventoryWidths {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	w := &cellWriter{f: f, sheet: sheet}
	for i, h := range inventoryHeaders {
		w.set(i+1, 1, h, st.header)
	}

	soon := today.AddDays(soonDays)
	for i, g := range groups {
		row := i + 2
		style, dateStyle := st.cell, st.date
		switch {
		case g.Removed:
			style, dateStyle = st.removed, st.removedDate
		case g.ExpirationDate != nil && g.ExpirationDate.Before(today):
			style, dateStyle = st.expired, st.expiredDate
		case g.ExpirationDate != nil && !g.ExpirationDate.After(soon):
			style, dateStyle = st.nearlyExpired, st.nearlyExpiredDate
		}

		values := []interface{}{g.Name, g.Category, deref(g.Manufacturer), deref(g.Note), "", g.Location, g.Count, ""}
		if g.ExpirationDate != nil {
			values[4] = g.ExpirationDate.Time()
		}
		if g.Removed && g.LastRemovedAt != nil {
			values[7] = *g.LastRemovedAt
		}
		for col, v := range values {
			cellStyle := style
			if _, isTime := v.(time.Time); isTime {
				cellStyle = dateStyle
			}
			w.set(col+1, row, v, cellStyle)
		}
	}
	return w.err
}

func writeSummarySheet(f *excelize.File, st *exportStyles, rows []*repository.ExportRow, c ExportCriteria, today domain.Date, soonDays int) error {
	sheet := summarySheet
	if err := f.SetColWidth(sheet, "A", "A", 30); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "B", 15); err != nil {
		return err
	}

	w := &cellWriter{f: f, sheet: sheet}
	row := 1
	pair := func(label string, value interface{}, labelStyle, valueStyle int) {
		w.set(1, row, label, labelStyle)
		w.set(2, row, value, valueStyle)
		row++
	}
	section := func(title string) {
		pair(title, "", st.title, st.title)
	}

	w.set(1, 1, "Podsumowanie inwentarza", st.title)
	w.set(2, 1, "", st.title)
	if err := f.MergeCell(sheet, "A1", "B1"); err != nil {
		return err
	}

	row = 3
	pair("Data eksportu", today.String(), st.subtitle, st.count)

	row++
	section("Kryteria filtrowania")
	for _, kv := range [][2]string{
		{"Pokój", c.Room}, {"Regał", c.Rack}, {"Półka", c.Shelf},
		{"Kategoria", c.Category}, {"Wyszukiwanie", c.Search},
	} {
		if kv[1] != "" {
			pair(kv[0], kv[1], st.subtitle, st.count)
		}
	}
	if c.HasNote {
		pair("Tylko z notatką", yesNo(true), st.subtitle, st.count)
	}
	var expiry []string
	if c.Expired {
		expiry = append(expiry, "Przeterminowane")
	}
	if c.ExpiringSoon {
		expiry = append(expiry, "Kończące się w ciągu "+strconv.Itoa(soonDays)+" dni")
	}
	if len(expiry) > 0 {
		pair("Termin ważności", strings.Join(expiry, " lub "), st.subtitle, st.count)
	}
	pair("Uwzględnij przedmioty przeterminowane", yesNo(c.IncludeExpired), st.subtitle, st.count)
	pair("Uwzględnij przedmioty usunięte", yesNo(c.IncludeRemoved), st.subtitle, st.count)

	var active, removed, expired, expiring int
	byCategory := map[string]int{}
	byLocation := map[string]int{}
	soon := today.AddDays(soonDays)
	for _, r := range rows {
		if r.RemovedAt == nil {
			active++
		} else {
			removed++
		}
		if d := r.ExpirationDate; d != nil {
			if d.Before(today) {
				expired++
			} else if !d.After(soon) {
				expiring++
			}
		}
		byCategory[r.CategoryName]++
		byLocation[r.FullLocation]++
	}

	row++
	section("Statystyki")
	pair("Łączna liczba przedmiotów", len(rows), st.subtitle, st.count)
	pair("Aktywne przedmioty", active, st.subtitle, st.count)
	pair("Usunięte przedmioty", removed, st.subtitle, st.count)
	pair("Przeterminowane przedmioty", expired, st.subtitle, st.count)
	pair("Przedmioty kończące się w ciągu "+strconv.Itoa(soonDays)+" dni", expiring, st.subtitle, st.count)

	for _, breakdown := range []struct {
		title  string
		counts map[string]int
	}{
		{"Przedmioty według kategorii", byCategory},
		{"Przedmioty według lokalizacji", byLocation},
	} {
		row += 2
		section(breakdown.title)
		keys := make([]string, 0, len(breakdown.counts))
		for k := range breakdown.counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pair(k, breakdown.counts[k], st.subtitle, st.count)
		}
	}
	return w.err
}

// cellWriter writes styled cells of one sheet and keeps the first error.
type cellWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *cellWriter) set(col, row int, value interface{}, style int) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err == nil {
		err = w.f.SetCellValue(w.sheet, cell, value)
	}
	if err == nil {
		err = w.f.SetCellStyle(w.sheet, cell, cell, style)
	}
	if err != nil {
		w.err = fmt.Errorf("write %s!%s: %w", w.sheet, cell, err)
	}
}

func yesNo(b bool) string {
	if b {
		return "Tak"
	}
	return "Nie"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
