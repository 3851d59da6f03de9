// Package service implements the warehouse operations on top of the
// repositories: location and catalog maintenance, the assignment ledger,
// bulk and chunked mutations, relocation, reporting and the daily expiry
// notification.
package service

import (
	"time"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/internal/warehouse/events"
	"github.com/ksp/warehouse/internal/warehouse/repository"
	"github.com/ksp/warehouse/pkg/config"
	"github.com/ksp/warehouse/pkg/database"
	"github.com/ksp/warehouse/pkg/logger"
)

// Options are the tunables of the warehouse service.
type Options struct {
	LowStockThreshold int
	PageSize          int
	HistoryPageSize   int
	ExpiringSoonDays  int
	InteractiveLimit  int
	PublicBaseURL     string
	Location          *time.Location

	// Clock overrides time.Now.
	Clock func() time.Time
}

// OptionsFromConfig maps the inventory configuration section to Options.
func OptionsFromConfig(cfg *config.InventoryConfig) Options {
	return Options{
		LowStockThreshold: cfg.LowStockThreshold,
		PageSize:          cfg.PageSize,
		HistoryPageSize:   cfg.HistoryPageSize,
		ExpiringSoonDays:  cfg.ExpiringSoonDays,
		InteractiveLimit:  cfg.InteractiveLimit,
		PublicBaseURL:     cfg.PublicBaseURL,
		Location:          cfg.Location(),
	}
}

func (o Options) withDefaults() Options {
	if o.LowStockThreshold <= 0 {
		o.LowStockThreshold = 10
	}
	if o.PageSize <= 0 {
		o.PageSize = 100
	}
	if o.HistoryPageSize <= 0 {
		o.HistoryPageSize = 50
	}
	if o.ExpiringSoonDays <= 0 {
		o.ExpiringSoonDays = 30
	}
	if o.InteractiveLimit <= 0 {
		o.InteractiveLimit = 10000
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// WarehouseService handles warehouse business logic
type WarehouseService struct {
	db        *database.DB
	repos     *repository.Repositories
	publisher *events.WarehousePublisher
	opts      Options
	logger    *logger.Logger
}

// NewWarehouseService creates a new warehouse service. publisher may be nil.
func NewWarehouseService(
	db *database.DB,
	repos *repository.Repositories,
	publisher *events.WarehousePublisher,
	opts Options,
	log *logger.Logger,
) *WarehouseService {
	return &WarehouseService{
		db:        db,
		repos:     repos,
		publisher: publisher,
		opts:      opts.withDefaults(),
		logger:    log.WithComponent("warehouse"),
	}
}

// now is the single timestamp source for ledger writes.
func (s *WarehouseService) now() time.Time {
	return s.opts.Clock().UTC()
}

func (s *WarehouseService) today() domain.Date {
	return domain.DateOf(s.opts.Clock().In(s.opts.Location))
}
