// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft Status = "Draft"
	StatusSent  Status = "Sent"
	StatusPaid  Status = "Paid"
	StatusVoid  Status = "Void"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusVoid:
		return true
	default:
		return false
	}
}

const (
	LineKindLabor    = "labor"
	LineKindMaterial = "material"
)

// Invoice bills a project's unbilled time and material logs. Amounts are in
// minor units and TotalAmount is always SubtotalAmount + MarkupAmount.
type Invoice struct {
	ID             snowflake.ID      `json:"id" gorm:"primaryKey"`
	CompanyID      snowflake.ID      `json:"company_id" gorm:"not null;index:ix_invoices_company"`
	ProjectID      snowflake.ID      `json:"project_id" gorm:"not null;uniqueIndex:ux_invoices_project_number,priority:1"`
	InvoiceNumber  string            `json:"invoice_number" gorm:"type:varchar(64);not null;uniqueIndex:ux_invoices_project_number,priority:2"`
	Sequence       int64             `json:"sequence" gorm:"not null"`
	Status         Status            `json:"status" gorm:"type:varchar(16);not null;default:'Draft'"`
	IssueDate      time.Time         `json:"issue_date" gorm:"not null"`
	DueDate        time.Time         `json:"due_date" gorm:"not null"`
	Currency       string            `json:"currency" gorm:"type:varchar(8);not null"`
	SubtotalAmount int64             `json:"subtotal" gorm:"not null"`
	MarkupPercent  decimal.Decimal   `json:"markup_percent" gorm:"type:numeric(7,2);not null"`
	MarkupAmount   int64             `json:"markup_amount" gorm:"not null"`
	TotalAmount    int64             `json:"total_amount" gorm:"not null"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time         `json:"updated_at" gorm:"not null"`

	LaborLineItems    []LineItem `json:"labor_line_items" gorm:"-"`
	MaterialLineItems []LineItem `json:"material_line_items" gorm:"-"`
}

func (Invoice) TableName() string { return "invoices" }

// LineItem copies the frozen totals of its source log.
type LineItem struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	CompanyID     snowflake.ID    `json:"-" gorm:"not null"`
	InvoiceID     snowflake.ID    `json:"invoice_id" gorm:"not null;index:ix_invoice_line_items_invoice"`
	Kind          string          `json:"kind" gorm:"type:varchar(16);not null"`
	Position      int             `json:"position" gorm:"not null"`
	Description   string          `json:"description" gorm:"type:text;not null"`
	Quantity      decimal.Decimal `json:"quantity" gorm:"type:numeric(18,4);not null"`
	UnitPrice     int64           `json:"unit_price" gorm:"not null"`
	Total         int64           `json:"total" gorm:"not null"`
	TimeLogID     *snowflake.ID   `json:"time_log_id,omitempty"`
	MaterialLogID *snowflake.ID   `json:"material_log_id,omitempty"`
}

func (LineItem) TableName() string { return "invoice_line_items" }

// Items returns labor lines followed by material lines.
func (i Invoice) Items() []LineItem {
	items := make([]LineItem, 0, len(i.LaborLineItems)+len(i.MaterialLineItems))
	items = append(items, i.LaborLineItems...)
	return append(items, i.MaterialLineItems...)
}

// Attach sorts stored lines into the labor and material slices.
func (i *Invoice) Attach(items []LineItem) {
	i.LaborLineItems = []LineItem{}
	i.MaterialLineItems = []LineItem{}
	for _, item := range items {
		if item.Kind == LineKindLabor {
			i.LaborLineItems = append(i.LaborLineItems, item)
			continue
		}
		i.MaterialLineItems = append(i.MaterialLineItems, item)
	}
}
