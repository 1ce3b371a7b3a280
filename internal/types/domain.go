// Package types defines the domain model and shared error types for the
// invoicing dashboard. Monetary amounts are stored as integer cents
// everywhere; conversion to major units happens only at presentation
// boundaries (see currency.go).
package types

import "time"

// InvoiceStatus enumerates the two valid invoice states.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

// Valid reports whether the status is one of the two allowed values.
func (s InvoiceStatus) Valid() bool {
	return s == InvoiceStatusPending || s == InvoiceStatusPaid
}

// Invoice is a row in the invoices table. Date is a calendar date in
// YYYY-MM-DD form; Amount is in cents and must be positive at creation.
type Invoice struct {
	ID         string        `json:"id"`
	CustomerID string        `json:"customer_id"`
	Amount     int64         `json:"amount"`
	Status     InvoiceStatus `json:"status"`
	Date       string        `json:"date"`
}

// InvoiceListItem is one row of the filtered invoice listing: invoice
// columns joined with the owning customer. Amount stays in cents;
// AmountFormatted carries the display string produced at the boundary.
type InvoiceListItem struct {
	ID              string        `json:"id"`
	Amount          int64         `json:"amount"`
	AmountFormatted string        `json:"amount_formatted"`
	Date            string        `json:"date"`
	Status          InvoiceStatus `json:"status"`
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	ImageURL        string        `json:"image_url"`
}

// InvoiceForm is the shape served to the edit form. Amount is in major
// currency units because that is what the form round-trips.
type InvoiceForm struct {
	ID         string        `json:"id"`
	CustomerID string        `json:"customer_id"`
	Amount     float64       `json:"amount"`
	Status     InvoiceStatus `json:"status"`
}

// LatestInvoice is one row of the dashboard's most-recent-invoices panel.
type LatestInvoice struct {
	ID              string `json:"id"`
	Amount          int64  `json:"amount"`
	AmountFormatted string `json:"amount_formatted"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	ImageURL        string `json:"image_url"`
}

// Customer is a row in the customers table. Read-only from this service's
// perspective; customer management lives elsewhere.
type Customer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	ImageURL string `json:"image_url"`
}

// CustomerField is the minimal id+name pair used to populate selects.
type CustomerField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CustomerSummary is one row of the customers table view, with per-customer
// invoice aggregates.
type CustomerSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	ImageURL      string `json:"image_url"`
	TotalInvoices int64  `json:"total_invoices"`
	TotalPending  string `json:"total_pending"`
	TotalPaid     string `json:"total_paid"`
}

// CardData holds the dashboard aggregate counters. The sums arrive as
// cents with NULL coalesced to zero before formatting.
type CardData struct {
	NumberOfInvoices     int64  `json:"number_of_invoices"`
	NumberOfCustomers    int64  `json:"number_of_customers"`
	TotalPaidInvoices    string `json:"total_paid_invoices"`
	TotalPendingInvoices string `json:"total_pending_invoices"`
}

// Revenue is a row in the revenue table (one per month).
type Revenue struct {
	Month   string `json:"month"`
	Revenue int64  `json:"revenue"`
}

// User is a row in the users table. PasswordHash is a bcrypt hash and is
// never serialized.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// Clock abstracts time.Now for testability. CreateInvoice derives the
// invoice date from it, truncated to a UTC calendar date.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock backed by time.Now.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }
