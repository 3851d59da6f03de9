// Package handler exposes the warehouse service over HTTP.
package handler

import (
	"net/http"
	"strings"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/pkg/errors"
	"github.com/ksp/warehouse/pkg/httputil"
)

// decode reads and validates a JSON body, writing the error response on
// failure.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := httputil.DecodeJSON(r, v); err != nil {
		httputil.Error(w, r, err)
		return false
	}
	if err := httputil.Validate(v); err != nil {
		httputil.Error(w, r, err)
		return false
	}
	return true
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) (*domain.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return nil, errors.Field(name, "must be a date in YYYY-MM-DD format")
	}
	return &d, nil
}

// queryIDs parses several optional id parameters at once.
func queryIDs(r *http.Request, names ...string) ([]*int64, error) {
	out := make([]*int64, len(names))
	for i, name := range names {
		id, err := httputil.QueryID(r, name)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

// queryFilters collects repeated or comma separated ?filter= values.
func queryFilters(r *http.Request) []string {
	var filters []string
	for _, v := range r.URL.Query()["filter"] {
		filters = append(filters, strings.Split(v, ",")...)
	}
	return filters
}
