package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Item is a stocked material. Quantity never drops below zero; Cost is the
// per-unit price in minor units.
type Item struct {
	ID                snowflake.ID     `json:"id" gorm:"primaryKey"`
	CompanyID         snowflake.ID     `json:"company_id" gorm:"not null;index:ix_inventory_items_company"`
	Name              string           `json:"name" gorm:"type:text;not null"`
	Quantity          decimal.Decimal  `json:"quantity" gorm:"type:numeric(18,4);not null;default:0"`
	Unit              string           `json:"unit" gorm:"type:varchar(32);not null"`
	Cost              int64            `json:"cost" gorm:"not null;default:0"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold,omitempty" gorm:"type:numeric(18,4)"`
	CreatedAt         time.Time        `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time        `json:"updated_at" gorm:"not null"`
}

func (Item) TableName() string { return "inventory_items" }

func (i Item) IsLowStock() bool {
	return i.LowStockThreshold != nil && i.Quantity.LessThanOrEqual(*i.LowStockThreshold)
}

// MaterialLog records material consumed on a project. CostAtTime is frozen
// when the log is written; only InvoiceID changes afterwards.
type MaterialLog struct {
	ID              snowflake.ID    `json:"id" gorm:"primaryKey"`
	CompanyID       snowflake.ID    `json:"company_id" gorm:"not null;index:ix_material_logs_company_project,priority:1"`
	ProjectID       snowflake.ID    `json:"project_id" gorm:"not null;index:ix_material_logs_company_project,priority:2"`
	InventoryItemID *snowflake.ID   `json:"inventory_item_id,omitempty"`
	Description     string          `json:"description" gorm:"type:text;not null"`
	QuantityUsed    decimal.Decimal `json:"quantity_used" gorm:"type:numeric(18,4);not null"`
	UnitCost        int64           `json:"unit_cost" gorm:"not null"`
	CostAtTime      int64           `json:"cost_at_time" gorm:"not null"`
	DateUsed        time.Time       `json:"date_used" gorm:"not null"`
	InvoiceID       *snowflake.ID   `json:"invoice_id,omitempty" gorm:"index:ix_material_logs_invoice"`
	ReceiptPhotoID  *string         `json:"receipt_photo_id,omitempty" gorm:"type:varchar(64)"`
}

func (MaterialLog) TableName() string { return "material_logs" }

func (l MaterialLog) IsInvoiced() bool {
	return l.InvoiceID != nil
}

// OrderListEntry is the stored row behind an OrderEntry. Exactly one of
// InventoryItemID and Name is set.
type OrderListEntry struct {
	ID              snowflake.ID  `json:"id" gorm:"primaryKey"`
	CompanyID       snowflake.ID  `json:"company_id" gorm:"not null;uniqueIndex:ux_order_list_item,priority:1"`
	InventoryItemID *snowflake.ID `json:"inventory_item_id,omitempty" gorm:"uniqueIndex:ux_order_list_item,priority:2"`
	Name            string        `json:"name" gorm:"type:text;not null;default:''"`
	CreatedAt       time.Time     `json:"created_at" gorm:"not null"`
}

func (OrderListEntry) TableName() string { return "order_list_entries" }
