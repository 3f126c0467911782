package domain

import (
	"context"
	"errors"
)

type Service interface {
	Generate(ctx context.Context, projectID string) (*Invoice, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Invoice, error)
	Get(ctx context.Context, id string) (*Invoice, error)
	// List returns every invoice of the company, or of one project when
	// projectID is set, newest first.
	List(ctx context.Context, projectID string) ([]Invoice, error)
}

var (
	ErrInvalidCompany   = errors.New("invalid_company")
	ErrInvalidID        = errors.New("invalid_invoice_id")
	ErrInvalidProjectID = errors.New("invalid_project_id")
	ErrInvalidStatus    = errors.New("invalid_invoice_status")
	ErrNotFound         = errors.New("invoice_not_found")
	ErrNothingToInvoice = errors.New("nothing_to_invoice")
	ErrAlreadyInvoiced  = errors.New("source_already_invoiced")
)
