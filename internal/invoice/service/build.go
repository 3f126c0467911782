package service

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	inventorydomain "github.com/smallbiznis/constructtrack/internal/inventory/domain"
	invoicedomain "github.com/smallbiznis/constructtrack/internal/invoice/domain"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
	"github.com/smallbiznis/constructtrack/pkg/money"
)

const unknownUser = "Unknown"

type invoiceInput struct {
	ID           snowflake.ID
	Project      projectdomain.Project
	Number       string
	Sequence     int64
	IssuedAt     time.Time
	DueDays      int
	Currency     string
	TimeLogs     []timetrackingdomain.TimeLog
	MaterialLogs []inventorydomain.MaterialLog
	UserNames    map[snowflake.ID]string
	NewID        func() snowflake.ID
}

// buildInvoice derives line items from the frozen log totals. Subtotal is
// the exact sum of line totals and markup is rounded once.
func buildInvoice(in invoiceInput) invoicedomain.Invoice {
	invoice := invoicedomain.Invoice{
		ID:                in.ID,
		CompanyID:         in.Project.CompanyID,
		ProjectID:         in.Project.ID,
		InvoiceNumber:     in.Number,
		Sequence:          in.Sequence,
		Status:            invoicedomain.StatusDraft,
		IssueDate:         in.IssuedAt,
		DueDate:           in.IssuedAt.AddDate(0, 0, in.DueDays),
		Currency:          in.Currency,
		MarkupPercent:     in.Project.MarkupPercent,
		CreatedAt:         in.IssuedAt,
		UpdatedAt:         in.IssuedAt,
		LaborLineItems:    make([]invoicedomain.LineItem, 0, len(in.TimeLogs)),
		MaterialLineItems: make([]invoicedomain.LineItem, 0, len(in.MaterialLogs)),
	}

	position := 0
	for _, log := range in.TimeLogs {
		name, ok := in.UserNames[log.UserID]
		if !ok {
			name = unknownUser
		}
		logID := log.ID
		item := invoicedomain.LineItem{
			ID:          in.NewID(),
			CompanyID:   invoice.CompanyID,
			InvoiceID:   invoice.ID,
			Kind:        invoicedomain.LineKindLabor,
			Position:    position,
			Description: fmt.Sprintf("Labor: %s on %s", name, log.ClockIn.Format("1/2/2006")),
			Quantity:    money.Hours(deref(log.DurationMs)),
			UnitPrice:   deref(log.HourlyRate),
			Total:       deref(log.Cost),
			TimeLogID:   &logID,
		}
		invoice.LaborLineItems = append(invoice.LaborLineItems, item)
		invoice.SubtotalAmount += item.Total
		position++
	}

	for _, log := range in.MaterialLogs {
		logID := log.ID
		item := invoicedomain.LineItem{
			ID:            in.NewID(),
			CompanyID:     invoice.CompanyID,
			InvoiceID:     invoice.ID,
			Kind:          invoicedomain.LineKindMaterial,
			Position:      position,
			Description:   log.Description,
			Quantity:      log.QuantityUsed,
			UnitPrice:     log.UnitCost,
			Total:         log.CostAtTime,
			MaterialLogID: &logID,
		}
		invoice.MaterialLineItems = append(invoice.MaterialLineItems, item)
		invoice.SubtotalAmount += item.Total
		position++
	}

	invoice.MarkupAmount = money.Percent(invoice.SubtotalAmount, invoice.MarkupPercent)
	invoice.TotalAmount = invoice.SubtotalAmount + invoice.MarkupAmount
	return invoice
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
