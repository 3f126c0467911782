package pdf

import (
	"context"
	"io"
)

type InvoiceData struct {
	CompanyName    string
	ProjectName    string
	ProjectAddress string
	InvoiceNumber  string
	IssueDate      string
	DueDate        string
	Status         string

	LaborItems    []InvoiceItem
	MaterialItems []InvoiceItem

	Subtotal    string
	MarkupLabel string
	Markup      string
	Total       string
}

type InvoiceItem struct {
	Description string
	Quantity    string
	UnitPrice   string
	Amount      string
}

var invoiceColumns = []int{6, 2, 2, 2}

func (p *PDFProvider) GenerateInvoice(ctx context.Context, invoice InvoiceData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := newDocument()
	addTitle(m, "Invoice", invoice.CompanyName)

	addKeyValue(m, "Invoice number", invoice.InvoiceNumber)
	addKeyValue(m, "Date of issue", invoice.IssueDate)
	addKeyValue(m, "Date due", invoice.DueDate)
	addKeyValue(m, "Status", invoice.Status)
	addKeyValue(m, "Project", invoice.ProjectName)
	if invoice.ProjectAddress != "" {
		addKeyValue(m, "Site address", invoice.ProjectAddress)
	}

	sections := []struct {
		title string
		items []InvoiceItem
		qty   string
	}{
		{title: "Labor", items: invoice.LaborItems, qty: "Hours"},
		{title: "Materials", items: invoice.MaterialItems, qty: "Qty"},
	}
	for _, section := range sections {
		if len(section.items) == 0 {
			continue
		}
		addSectionHeader(m, section.title)
		addTableRow(m, invoiceColumns, []string{"Description", section.qty, "Unit price", "Amount"}, true)
		addRule(m)
		for _, item := range section.items {
			addTableRow(m, invoiceColumns, []string{item.Description, item.Quantity, item.UnitPrice, item.Amount}, false)
		}
	}

	addRule(m)
	addTotalLine(m, "Subtotal", invoice.Subtotal, false)
	addTotalLine(m, invoice.MarkupLabel, invoice.Markup, false)
	addTotalLine(m, "Total", invoice.Total, true)

	return render(m)
}
