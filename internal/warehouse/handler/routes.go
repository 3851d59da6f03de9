package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/internal/warehouse/service"
	"github.com/ksp/warehouse/pkg/logger"
)

// Mount registers the warehouse API on r.
func Mount(r chi.Router, svc *service.WarehouseService, log *logger.Logger) {
	locations := NewLocationHandler(svc, log)
	categories := NewCategoryHandler(svc, log)
	items := NewItemHandler(svc, log)
	assignments := NewAssignmentHandler(svc, log)
	reports := NewReportHandler(svc, log)
	lookups := NewLookupHandler(svc, log)

	r.Get("/dashboard", reports.Dashboard)
	r.Get("/history", reports.History)
	r.Get("/export", reports.Export)

	r.Route("/rooms", func(r chi.Router) {
		r.Get("/", locations.ListRooms)
		r.Post("/", locations.CreateRoom)
		r.Get("/{id}", locations.GetRoom)
		r.Put("/{id}", locations.UpdateRoom)
		r.Delete("/{id}", locations.DeleteRoom)
		r.Post("/{id}/clean", locations.Clean(domain.KindRoom))
	})
	r.Route("/racks", func(r chi.Router) {
		r.Get("/", locations.ListRacks)
		r.Post("/", locations.CreateRack)
		r.Get("/{id}", locations.GetRack)
		r.Put("/{id}", locations.UpdateRack)
		r.Delete("/{id}", locations.DeleteRack)
		r.Post("/{id}/clean", locations.Clean(domain.KindRack))
	})
	r.Route("/shelves", func(r chi.Router) {
		r.Get("/", locations.ListShelves)
		r.Post("/", locations.CreateShelf)
		r.Get("/{id}", locations.GetShelf)
		r.Put("/{id}", locations.UpdateShelf)
		r.Delete("/{id}", locations.DeleteShelf)
		r.Post("/{id}/clean", locations.Clean(domain.KindShelf))
	})
	r.Get("/locations/resolve/{token}", locations.Resolve)

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", categories.List)
		r.Post("/", categories.Create)
		r.Get("/{id}", categories.Get)
		r.Put("/{id}", categories.Update)
		r.Delete("/{id}", categories.Delete)
	})

	r.Route("/items", func(r chi.Router) {
		r.Get("/", items.List)
		r.Get("/low-stock", items.LowStock)
		r.Post("/bulk-add", items.BulkAdd)
		r.Post("/bulk-add/chunk", items.AddChunk)
		r.Post("/move", items.MoveBatch)
		r.Post("/move-group", items.MoveGroup)
		r.Get("/{id}", items.Get)
		r.Post("/{id}/move", items.Move)
	})

	r.Route("/assignments/{id}", func(r chi.Router) {
		r.Post("/remove", assignments.Remove)
		r.Post("/bulk-remove", assignments.BulkRemove)
		r.Post("/bulk-remove/chunk", assignments.RemoveChunk)
	})

	r.Route("/lookup", func(r chi.Router) {
		r.Get("/racks", lookups.Racks)
		r.Get("/shelves", lookups.Shelves)
		r.Get("/shelf-items", lookups.ShelfItems)
		r.Get("/autocomplete/{kind}", lookups.Autocomplete)
	})
}
