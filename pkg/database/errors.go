package database

import (
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/lib/pq"
	"github.com/ksp/warehouse/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with a message keyed
// to the violated constraint. Returns nil if err is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case "23505": // unique_violation
		return mapUniqueViolation(pqErr)

	case "23503": // foreign_key_violation
		// The same code covers "insert references a missing row" and
		// "delete is blocked by a referencing row".
		if strings.HasPrefix(pqErr.Message, "update or delete") {
			if strings.Contains(pqErr.Constraint, "category") {
				return errors.Conflict("category is still referenced by items").
					WithKey("errors.category_in_use", nil)
			}
			return errors.Conflict("record is still referenced")
		}
		return errors.BadRequest("referenced record does not exist")

	case "23502": // not_null_violation
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{col: "must not be empty"})

	case "23514": // check_violation
		return mapCheckViolation(pqErr)

	default:
		return nil
	}
}

// Translate returns MapPQError(err) when it applies and err otherwise, so
// repositories can write `return database.Translate(err)`.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if appErr := MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}

// IsNoRows reports whether err is sql.ErrNoRows.
func IsNoRows(err error) bool {
	return stderrors.Is(err, sql.ErrNoRows)
}

func mapUniqueViolation(pqErr *pq.Error) *errors.AppError {
	switch pqErr.Constraint {
	case "rooms_name_key":
		return errors.Conflict("a room with this name already exists").
			WithKey("errors.duplicate_room", nil)
	case "racks_room_name_key":
		return errors.Conflict("a rack with this name already exists in the room").
			WithKey("errors.duplicate_rack", nil)
	case "shelves_rack_number_key":
		return errors.Conflict("a shelf with this number already exists on the rack").
			WithKey("errors.duplicate_shelf", nil)
	case "categories_name_key":
		return errors.Conflict("a category with this name already exists").
			WithKey("errors.duplicate_category", nil)
	case "assignments_one_active_per_item":
		return errors.Conflict("item already has an active assignment").
			WithKey("errors.double_active_assignment", nil)
	default:
		return errors.Conflict("a record with these values already exists")
	}
}

func mapCheckViolation(pqErr *pq.Error) *errors.AppError {
	switch pqErr.Constraint {
	case "racks_name_single_char":
		return errors.Validation(map[string]string{"name": "must be a single character"})
	case "shelves_number_positive":
		return errors.Validation(map[string]string{"number": "must be a positive number"})
	case "assignments_immutable":
		return errors.NotFound("active_assignment")
	default:
		return errors.BadRequest("data validation failed: " + pqErr.Constraint)
	}
}
