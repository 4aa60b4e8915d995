package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports bad input, raised before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing branch, node or order.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// InsufficientStockError reports a lot that cannot cover a shipment line.
type InsufficientStockError struct {
	BranchID      string
	Product       string
	Specification string
	LotCode       string
	Available     int
	Requested     int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock at branch %s for %s %s lot %s: have %d, need %d",
		e.BranchID, e.Product, e.Specification, e.LotCode, e.Available, e.Requested)
}

// InvalidTransitionError reports an operation the order's status forbids.
// Current is canonical; Stored is the status as found on the record, which
// differs for legacy aliases.
type InvalidTransitionError struct {
	OrderID string
	Current Status
	Stored  Status
	Event   string
}

func (e *InvalidTransitionError) Error() string {
	if e.Stored != "" && e.Stored != e.Current {
		return fmt.Sprintf("cannot %s order %s in status %s (stored as %s)", e.Event, e.OrderID, e.Current, e.Stored)
	}
	return fmt.Sprintf("cannot %s order %s in status %s", e.Event, e.OrderID, e.Current)
}

// ConflictError reports an identifier collision on a strict create.
type ConflictError struct {
	Kind string
	ID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.ID)
}

// HTTPStatus maps a domain error to the status an API layer should return.
func HTTPStatus(err error) int {
	var (
		validation   *ValidationError
		notFound     *NotFoundError
		insufficient *InsufficientStockError
		transition   *InvalidTransitionError
		conflict     *ConflictError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &insufficient), errors.As(err, &transition):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
