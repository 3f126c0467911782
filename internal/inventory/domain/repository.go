package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	InsertItem(ctx context.Context, db *gorm.DB, item *Item) error
	UpdateItem(ctx context.Context, db *gorm.DB, item *Item) error
	FindItem(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*Item, error)
	FindItemForUpdate(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*Item, error)
	FindItems(ctx context.Context, db *gorm.DB, companyID snowflake.ID, ids []snowflake.ID) ([]Item, error)
	SetItemQuantity(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, quantity decimal.Decimal, at time.Time) error
	ListItems(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]Item, error)
	ListLowStock(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]Item, error)

	InsertMaterialLogs(ctx context.Context, db *gorm.DB, logs []MaterialLog) error
	ListMaterialLogs(ctx context.Context, db *gorm.DB, companyID, projectID snowflake.ID) ([]MaterialLog, error)
	// ListUninvoiced locks the project's unbilled logs, oldest first.
	ListUninvoiced(ctx context.Context, db *gorm.DB, companyID, projectID snowflake.ID) ([]MaterialLog, error)
	// MarkInvoiced only claims rows that are still unbilled and returns how
	// many it claimed.
	MarkInvoiced(ctx context.Context, db *gorm.DB, companyID snowflake.ID, ids []snowflake.ID, invoiceID snowflake.ID) (int64, error)

	InsertOrderEntry(ctx context.Context, db *gorm.DB, entry *OrderListEntry) error
	FindOrderEntryByItem(ctx context.Context, db *gorm.DB, companyID, itemID snowflake.ID) (*OrderListEntry, error)
	DeleteOrderEntryByItem(ctx context.Context, db *gorm.DB, companyID, itemID snowflake.ID) (bool, error)
	DeleteManualOrderEntry(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (bool, error)
	ClearOrderList(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (int64, error)
	ListOrderList(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]OrderListEntry, error)
}
