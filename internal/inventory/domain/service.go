package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/constructtrack/internal/photo"
)

type Service interface {
	CreateItem(ctx context.Context, req CreateItemRequest) (*Item, error)
	UpdateItem(ctx context.Context, req UpdateItemRequest) (*Item, error)
	GetItem(ctx context.Context, id string) (*Item, error)
	ListItems(ctx context.Context) ([]Item, error)
	ListLowStock(ctx context.Context) ([]Item, error)
	SetQuantity(ctx context.Context, id string, quantity decimal.Decimal) (*Item, error)
	AdjustQuantity(ctx context.Context, id string, delta decimal.Decimal) (*Item, error)

	LogUsageFromInventory(ctx context.Context, req InventoryUsageRequest) (*MaterialLog, error)
	LogUsageFromReceipt(ctx context.Context, req ReceiptUsageRequest) ([]MaterialLog, error)
	ListMaterialLogs(ctx context.Context, projectID string) ([]MaterialLog, error)

	AddToOrderList(ctx context.Context, itemID string) (OrderEntry, error)
	AddManualToOrderList(ctx context.Context, name string) (OrderEntry, error)
	RemoveFromOrderList(ctx context.Context, entry OrderEntry) error
	ClearOrderList(ctx context.Context) error
	ListOrderList(ctx context.Context) ([]OrderEntry, error)
}

type CreateItemRequest struct {
	Name              string           `json:"name"`
	Quantity          decimal.Decimal  `json:"quantity"`
	Unit              string           `json:"unit"`
	Cost              int64            `json:"cost"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold"`
}

// UpdateItemRequest never touches quantity. ClearThreshold removes the
// low-stock threshold.
type UpdateItemRequest struct {
	ID                string           `json:"id"`
	Name              *string          `json:"name,omitempty"`
	Unit              *string          `json:"unit,omitempty"`
	Cost              *int64           `json:"cost,omitempty"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold,omitempty"`
	ClearThreshold    bool             `json:"clear_threshold,omitempty"`
}

type InventoryUsageRequest struct {
	ProjectID string          `json:"project_id"`
	ItemID    string          `json:"item_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// ReceiptLine is one recognised receipt entry. TotalPrice is the amount
// printed on the receipt and is recorded as the line cost as given.
type ReceiptLine struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   int64           `json:"unit_price"`
	TotalPrice  *int64          `json:"total_price"`
}

// ReceiptUsageRequest references an already stored receipt image by
// ReceiptPhotoID, or carries the image to store.
type ReceiptUsageRequest struct {
	ProjectID      string        `json:"project_id"`
	Lines          []ReceiptLine `json:"items"`
	ReceiptPhotoID string        `json:"receipt_photo_id"`
	Receipt        *photo.Image  `json:"-"`
}

var (
	ErrInvalidCompany    = errors.New("invalid_company")
	ErrInvalidItemID     = errors.New("invalid_item_id")
	ErrInvalidProjectID  = errors.New("invalid_project_id")
	ErrInvalidName       = errors.New("invalid_item_name")
	ErrInvalidUnit       = errors.New("invalid_unit")
	ErrInvalidCost       = errors.New("invalid_unit_cost")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrInvalidThreshold  = errors.New("invalid_low_stock_threshold")
	ErrInvalidReceipt    = errors.New("invalid_receipt")
	ErrInvalidOrderEntry = errors.New("invalid_order_entry")
	ErrItemNotFound      = errors.New("item_not_found")
	ErrInsufficientStock = errors.New("insufficient_stock")
)
