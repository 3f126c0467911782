package pdf

import (
	"context"
	"io"
)

// Provider renders documents as PDF bytes.
type Provider interface {
	GenerateInvoice(ctx context.Context, data InvoiceData) (io.Reader, error)
	GeneratePayroll(ctx context.Context, data PayrollData) (io.Reader, error)
	GenerateProjectReport(ctx context.Context, data ProjectReportData) (io.Reader, error)
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}
