package types

import "strconv"

// SortDirection is the requested ordering for invoice listings.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// DefaultSortColumn is the column key used when the requested sort column
// is not in the whitelist.
const DefaultSortColumn = "customer"

// SortColumns is the closed whitelist of sortable column keys. The values
// are logical keys; the data layer owns the mapping to physical
// table/column identifiers. Keys outside this set fall back to
// DefaultSortColumn with no error.
var SortColumns = map[string]struct{}{
	"customer": {},
	"amount":   {},
	"date":     {},
	"status":   {},
	"email":    {},
}

// InvoiceQuery describes one read of the invoice listing. It is a transient
// value object; construct it with NormalizeInvoiceQuery so that the
// whitelist and clamping invariants hold.
type InvoiceQuery struct {
	Search        string
	Page          int
	ItemsPerPage  int
	SortColumn    string
	SortDirection SortDirection
}

// Offset returns the row offset for the current page (1-based pages).
func (q InvoiceQuery) Offset() int {
	return (q.Page - 1) * q.ItemsPerPage
}

// PageBounds holds the configured items-per-page bounds and default.
type PageBounds struct {
	Default int
	Min     int
	Max     int
}

// DefaultPageBounds mirrors the dashboard defaults: 6 items per page,
// clamped to [1, 100].
func DefaultPageBounds() PageBounds {
	return PageBounds{Default: 6, Min: 1, Max: 100}
}

// NormalizeInvoiceQuery builds an InvoiceQuery from raw request input,
// enforcing the whitelist and clamping invariants:
//   - page below 1 becomes 1 (non-numeric input too)
//   - items-per-page is parsed with fallback to the default, then clamped
//     to [Min, Max]
//   - sort column outside the whitelist falls back to DefaultSortColumn
//   - sort direction other than "desc" becomes "asc"
func NormalizeInvoiceQuery(search, page, itemsPerPage, sortColumn, sortDirection string, bounds PageBounds) InvoiceQuery {
	p := SafeNumber(page, 1)
	if p < 1 {
		p = 1
	}

	per := Clamp(bounds.Min, SafeNumber(itemsPerPage, bounds.Default), bounds.Max)

	if _, ok := SortColumns[sortColumn]; !ok {
		sortColumn = DefaultSortColumn
	}

	dir := SortAsc
	if sortDirection == string(SortDesc) {
		dir = SortDesc
	}

	return InvoiceQuery{
		Search:        search,
		Page:          p,
		ItemsPerPage:  per,
		SortColumn:    sortColumn,
		SortDirection: dir,
	}
}

// SafeNumber parses raw as an integer, returning fallback when raw is
// empty or not numeric.
func SafeNumber(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// Clamp constrains v to the closed interval [min, max].
func Clamp(min, v, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ClampPage constrains a 1-based page number to [1, totalPages]. A request
// beyond the last page serves the last page rather than an empty result.
// When there are no pages at all, page 1 is returned.
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		return 1
	}
	return Clamp(1, page, totalPages)
}
