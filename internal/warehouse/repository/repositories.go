// Package repository holds the PostgreSQL access of the warehouse service.
// Every repository runs against database.DB.Conn(ctx) so that calls made
// inside database.DB.InTx join the surrounding transaction.
package repository

import "github.com/ksp/warehouse/pkg/database"

// Repositories bundles every repository over one database.
type Repositories struct {
	Locations   *LocationRepository
	Categories  *CategoryRepository
	Items       *ItemRepository
	Assignments *AssignmentRepository
	Reports     *ReportRepository
	History     *HistoryRepository
	Lookups     *LookupRepository
	Users       *UserCacheRepository
}

// New creates all repositories over db.
func New(db *database.DB) *Repositories {
	return &Repositories{
		Locations:   NewLocationRepository(db),
		Categories:  NewCategoryRepository(db),
		Items:       NewItemRepository(db),
		Assignments: NewAssignmentRepository(db),
		Reports:     NewReportRepository(db),
		History:     NewHistoryRepository(db),
		Lookups:     NewLookupRepository(db),
		Users:       NewUserCacheRepository(db),
	}
}
