package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/internal/warehouse/repository"
	"github.com/ksp/warehouse/pkg/actor"
	"github.com/ksp/warehouse/pkg/errors"
)

// AddRequest describes quantity identical units to place on a shelf.
type AddRequest struct {
	ShelfID        int64        `json:"shelf_id" validate:"required,gt=0"`
	Name           string       `json:"item_name" validate:"required,max=200"`
	CategoryID     int64        `json:"category_id" validate:"required,gt=0"`
	Manufacturer   *string      `json:"manufacturer" validate:"omitempty,max=200"`
	ExpirationDate *domain.Date `json:"expiration_date"`
	Note           *string      `json:"note"`
	IsGifted       bool         `json:"is_gifted"`
	Quantity       int          `json:"quantity" validate:"required,gt=0"`
}

// ChunkAddRequest is one call of a chunked bulk add.
type ChunkAddRequest struct {
	AddRequest
	ChunkControl
}

// RemoveRequest removes quantity units of the cohort of a seed assignment.
type RemoveRequest struct {
	AssignmentID int64 `json:"-"`
	Quantity     int   `json:"quantity" validate:"required,gt=0"`
}

// ChunkRemoveRequest is one call of a chunked bulk remove.
type ChunkRemoveRequest struct {
	RemoveRequest
	ChunkControl
}

// ChunkControl carries the continuation fields shared by chunk requests.
// Token, when present, wins over Offset.
type ChunkControl struct {
	BatchSize int    `json:"batch_size" validate:"gte=0"`
	Offset    int    `json:"offset" validate:"gte=0"`
	Token     string `json:"token"`
}

// BulkAdd places up to the interactive limit of units in one transaction,
// inserting them in policy-sized batches.
func (s *WarehouseService) BulkAdd(ctx context.Context, req AddRequest) (*domain.ChunkResult, error) {
	if err := s.checkInteractive(req.Quantity); err != nil {
		return nil, err
	}
	tmpl, shelf, err := s.prepareAdd(ctx, req)
	if err != nil {
		return nil, err
	}

	who := actor.OrSystem(ctx)
	now := s.now()
	start := time.Now()
	batch := domain.BatchSize(req.Quantity)

	err = s.db.InTx(ctx, func(ctx context.Context) error {
		for done := 0; done < req.Quantity; done += batch {
			n := min(batch, req.Quantity-done)
			if _, err := s.repos.Items.CreateOnShelf(ctx, tmpl, n, shelf.ID, who.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.ItemsAdded(ctx, shelf.ID, shelf.FullLocation(), tmpl.Key(), req.Quantity, who.ID)

	res := domain.NewChunkResult(req.Quantity, req.Quantity, req.Quantity, time.Since(start))
	res.Message = fmt.Sprintf("Added %d units of %s to %s", req.Quantity, tmpl.Name, shelf.FullLocation())
	s.logChunk("bulk add", res)
	return &res, nil
}

// AddChunk processes the next chunk of a bulk add. Every chunk commits on
// its own; a failed chunk leaves the earlier ones in place and reports the
// offset to resume from.
func (s *WarehouseService) AddChunk(ctx context.Context, req ChunkAddRequest) (*domain.ChunkResult, error) {
	if req.Quantity < 1 {
		return nil, errors.Field("quantity", "must be at least 1")
	}
	offset, err := resolveOffset(req.ChunkControl, func(tok domain.ChunkToken) bool {
		return tok.Total == req.Quantity
	})
	if err != nil {
		return nil, err
	}
	total := req.Quantity
	if offset >= total {
		return completed(total), nil
	}

	tmpl, shelf, err := s.prepareAdd(ctx, req.AddRequest)
	if err != nil {
		return nil, err
	}

	who := actor.OrSystem(ctx)
	n := min(domain.EffectiveBatchSize(req.BatchSize, total), total-offset)
	start := time.Now()

	err = s.db.InTx(ctx, func(ctx context.Context) error {
		_, err := s.repos.Items.CreateOnShelf(ctx, tmpl, n, shelf.ID, who.ID, s.now())
		return err
	})
	if err != nil {
		return nil, s.chunkError(err, offset, total)
	}

	s.publisher.ItemsAdded(ctx, shelf.ID, shelf.FullLocation(), tmpl.Key(), n, who.ID)

	res := domain.NewChunkResult(n, offset+n, total, time.Since(start))
	res.Message = fmt.Sprintf("Added %d of %d units", res.TotalProcessed, total)
	s.logChunk("bulk add chunk", res)
	return &res, nil
}

// BulkRemove removes up to Quantity units of the seed's cohort from the
// seed's shelf in one transaction. The quantity is capped at the cohort
// size.
func (s *WarehouseService) BulkRemove(ctx context.Context, req RemoveRequest) (*domain.ChunkResult, error) {
	if err := s.checkInteractive(req.Quantity); err != nil {
		return nil, err
	}

	who := actor.OrSystem(ctx)
	now := s.now()
	start := time.Now()

	var seed *repository.AssignmentDetail
	removed := 0
	err := s.db.InTx(ctx, func(ctx context.Context) error {
		var err error
		seed, err = s.repos.Assignments.Get(ctx, req.AssignmentID)
		if err != nil {
			return err
		}
		size, err := s.repos.Assignments.CohortSize(ctx, seed.ShelfID, seed.Key())
		if err != nil {
			return err
		}
		if size == 0 {
			return cohortEmptyError()
		}
		want := min(req.Quantity, size)
		batch := domain.BatchSize(want)
		for removed < want {
			n, err := s.repos.Assignments.CloseCohort(ctx, seed.ShelfID, seed.Key(), min(batch, want-removed), who.ID, now)
			if err != nil {
				return err
			}
			if n == 0 {
				break
			}
			removed += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.ItemsRemoved(ctx, seed.ShelfID, seed.Key(), removed, who.ID)

	res := domain.NewChunkResult(removed, removed, removed, time.Since(start))
	res.Message = fmt.Sprintf("Removed %d units of %s from %s", removed, seed.ItemName, seed.FullLocation)
	s.logChunk("bulk remove", res)
	return &res, nil
}

// RemoveChunk processes the next chunk of a bulk remove. Without a token
// the total is the requested quantity capped at what is left of the cohort
// beyond the offset; with a token the total it carries is used, and must not
// exceed the requested quantity. When the cohort runs out mid-run the chunk
// completes the operation early.
func (s *WarehouseService) RemoveChunk(ctx context.Context, req ChunkRemoveRequest) (*domain.ChunkResult, error) {
	if req.Quantity < 1 {
		return nil, errors.Field("quantity", "must be at least 1")
	}
	var tokenTotal int
	offset, err := resolveOffset(req.ChunkControl, func(tok domain.ChunkToken) bool {
		tokenTotal = tok.Total
		return tok.Total <= req.Quantity
	})
	if err != nil {
		return nil, err
	}

	seed, err := s.repos.Assignments.Get(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	key := seed.Key()

	total := tokenTotal
	if req.Token == "" {
		size, err := s.repos.Assignments.CohortSize(ctx, seed.ShelfID, key)
		if err != nil {
			return nil, err
		}
		if size == 0 && offset == 0 {
			return nil, cohortEmptyError()
		}
		total = min(req.Quantity, offset+size)
	}
	if offset >= total {
		return completed(total), nil
	}

	who := actor.OrSystem(ctx)
	want := min(domain.EffectiveBatchSize(req.BatchSize, total), total-offset)
	start := time.Now()

	var n int
	err = s.db.InTx(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.repos.Assignments.CloseCohort(ctx, seed.ShelfID, key, want, who.ID, s.now())
		return err
	})
	if err != nil {
		return nil, s.chunkError(err, offset, total)
	}
	if n == 0 && offset == 0 {
		return nil, cohortEmptyError()
	}
	if n < want {
		// The cohort ran out under us; finish here.
		total = offset + n
	}

	if n > 0 {
		s.publisher.ItemsRemoved(ctx, seed.ShelfID, key, n, who.ID)
	}

	res := domain.NewChunkResult(n, offset+n, total, time.Since(start))
	res.Message = fmt.Sprintf("Removed %d of %d units", res.TotalProcessed, total)
	s.logChunk("bulk remove chunk", res)
	return &res, nil
}

// prepareAdd normalizes the unit attributes and loads the target shelf.
func (s *WarehouseService) prepareAdd(ctx context.Context, req AddRequest) (repository.ItemTemplate, *repository.Shelf, error) {
	tmpl := repository.ItemTemplate{
		Name:           domain.NormalizeName(req.Name),
		CategoryID:     req.CategoryID,
		Manufacturer:   domain.NormalizeManufacturer(req.Manufacturer),
		ExpirationDate: req.ExpirationDate,
		Note:           domain.NormalizeOptional(req.Note),
		IsGifted:       req.IsGifted,
	}
	if tmpl.Name == "" {
		return tmpl, nil, errors.Field("item_name", "is required")
	}
	if _, err := s.repos.Categories.Get(ctx, tmpl.CategoryID); err != nil {
		return tmpl, nil, err
	}
	shelf, err := s.repos.Locations.GetShelf(ctx, req.ShelfID)
	if err != nil {
		return tmpl, nil, err
	}
	return tmpl, shelf, nil
}

func (s *WarehouseService) checkInteractive(quantity int) error {
	if quantity < 1 {
		return errors.Field("quantity", "must be at least 1")
	}
	if quantity > s.opts.InteractiveLimit {
		limit := strconv.Itoa(s.opts.InteractiveLimit)
		return errors.Field("quantity", "must not exceed "+limit+"; use the chunked endpoint").
			WithKey("errors.interactive_limit", map[string]string{"limit": limit})
	}
	return nil
}

// chunkError wraps a failed chunk so the client can resume from offset.
func (s *WarehouseService) chunkError(err error, offset, total int) error {
	params := map[string]string{
		"offset": strconv.Itoa(offset),
		"total":  strconv.Itoa(total),
	}
	details := map[string]string{
		"offset": strconv.Itoa(offset),
		"token":  domain.ChunkToken{Offset: offset, Total: total}.Encode(),
	}

	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		out := *appErr
		for k, v := range appErr.Details {
			details[k] = v
		}
		return out.WithDetails(details)
	}

	s.logger.Error().Err(err).Int("offset", offset).Int("total", total).Msg("chunk failed")
	return errors.Wrap(err, "CHUNK_FAILED", "chunk failed", http.StatusInternalServerError).
		WithKey("errors.chunk_failed", params).
		WithDetails(details)
}

func (s *WarehouseService) logChunk(op string, res domain.ChunkResult) {
	s.logger.Info().
		Int("processed", res.Processed).
		Int("offset", res.Offset).
		Int("remaining", res.Remaining).
		Float64("items_per_second", res.ItemsPerSecond).
		Msg(op)
}

// resolveOffset returns the offset to continue from. A token wins over the
// plain offset and must satisfy accept.
func resolveOffset(c ChunkControl, accept func(domain.ChunkToken) bool) (int, error) {
	if c.Token == "" {
		if c.Offset < 0 {
			return 0, errors.Field("offset", "must not be negative")
		}
		return c.Offset, nil
	}
	tok, err := domain.DecodeChunkToken(c.Token)
	if err != nil || !accept(tok) {
		return 0, errors.Field("token", "does not match this request").
			WithKey("errors.invalid_token", nil)
	}
	return tok.Offset, nil
}

func completed(total int) *domain.ChunkResult {
	res := domain.NewChunkResult(0, total, total, 0)
	res.Message = "Operation already complete"
	return &res
}

func cohortEmptyError() error {
	return errors.NotFound("active_assignment").WithKey("errors.cohort_empty", nil)
}
