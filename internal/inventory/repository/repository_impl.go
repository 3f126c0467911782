package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	inventorydomain "github.com/smallbiznis/constructtrack/internal/inventory/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() inventorydomain.Repository {
	return &repo{}
}

const itemColumns = `id, company_id, name, quantity, unit, cost, low_stock_threshold, created_at, updated_at`

func (r *repo) InsertItem(ctx context.Context, db *gorm.DB, item *inventorydomain.Item) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO inventory_items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.CompanyID,
		item.Name,
		item.Quantity,
		item.Unit,
		item.Cost,
		item.LowStockThreshold,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) UpdateItem(ctx context.Context, db *gorm.DB, item *inventorydomain.Item) error {
	return db.WithContext(ctx).Exec(
		`UPDATE inventory_items
		 SET name = ?, unit = ?, cost = ?, low_stock_threshold = ?, updated_at = ?
		 WHERE company_id = ? AND id = ?`,
		item.Name,
		item.Unit,
		item.Cost,
		item.LowStockThreshold,
		item.UpdatedAt,
		item.CompanyID,
		item.ID,
	).Error
}

func (r *repo) FindItem(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*inventorydomain.Item, error) {
	var item inventorydomain.Item
	err := db.WithContext(ctx).Raw(
		`SELECT `+itemColumns+` FROM inventory_items WHERE company_id = ? AND id = ?`,
		companyID,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindItemForUpdate(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*inventorydomain.Item, error) {
	var items []inventorydomain.Item
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND id = ?", companyID, id).
		Limit(1).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *repo) FindItems(ctx context.Context, db *gorm.DB, companyID snowflake.ID, ids []snowflake.ID) ([]inventorydomain.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []inventorydomain.Item
	err := db.WithContext(ctx).Raw(
		`SELECT `+itemColumns+` FROM inventory_items WHERE company_id = ? AND id IN ?`,
		companyID,
		ids,
	).Scan(&items).Error
	return items, err
}

func (r *repo) SetItemQuantity(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, quantity decimal.Decimal, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE inventory_items SET quantity = ?, updated_at = ? WHERE company_id = ? AND id = ?`,
		quantity,
		at,
		companyID,
		id,
	).Error
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]inventorydomain.Item, error) {
	var items []inventorydomain.Item
	err := db.WithContext(ctx).Raw(
		`SELECT `+itemColumns+` FROM inventory_items WHERE company_id = ? ORDER BY name ASC, id ASC`,
		companyID,
	).Scan(&items).Error
	return items, err
}

func (r *repo) ListLowStock(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]inventorydomain.Item, error) {
	var items []inventorydomain.Item
	err := db.WithContext(ctx).Raw(
		`SELECT `+itemColumns+` FROM inventory_items
		 WHERE company_id = ? AND low_stock_threshold IS NOT NULL AND quantity <= low_stock_threshold
		 ORDER BY name ASC, id ASC`,
		companyID,
	).Scan(&items).Error
	return items, err
}

func (r *repo) InsertMaterialLogs(ctx context.Context, db *gorm.DB, logs []inventorydomain.MaterialLog) error {
	if len(logs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&logs).Error
}

func (r *repo) ListMaterialLogs(ctx context.Context, db *gorm.DB, companyID, projectID snowflake.ID) ([]inventorydomain.MaterialLog, error) {
	var logs []inventorydomain.MaterialLog
	err := db.WithContext(ctx).
		Where("company_id = ? AND project_id = ?", companyID, projectID).
		Order("date_used DESC, id DESC").
		Find(&logs).Error
	return logs, err
}

func (r *repo) ListUninvoiced(ctx context.Context, db *gorm.DB, companyID, projectID snowflake.ID) ([]inventorydomain.MaterialLog, error) {
	var logs []inventorydomain.MaterialLog
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND project_id = ? AND invoice_id IS NULL", companyID, projectID).
		Order("date_used ASC, id ASC").
		Find(&logs).Error
	return logs, err
}

func (r *repo) MarkInvoiced(ctx context.Context, db *gorm.DB, companyID snowflake.ID, ids []snowflake.ID, invoiceID snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE material_logs SET invoice_id = ? WHERE company_id = ? AND id IN ? AND invoice_id IS NULL`,
		invoiceID,
		companyID,
		ids,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) InsertOrderEntry(ctx context.Context, db *gorm.DB, entry *inventorydomain.OrderListEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO order_list_entries (id, company_id, inventory_item_id, name, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID,
		entry.CompanyID,
		entry.InventoryItemID,
		entry.Name,
		entry.CreatedAt,
	).Error
}

func (r *repo) FindOrderEntryByItem(ctx context.Context, db *gorm.DB, companyID, itemID snowflake.ID) (*inventorydomain.OrderListEntry, error) {
	var entry inventorydomain.OrderListEntry
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_id, inventory_item_id, name, created_at
		 FROM order_list_entries WHERE company_id = ? AND inventory_item_id = ?`,
		companyID,
		itemID,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) DeleteOrderEntryByItem(ctx context.Context, db *gorm.DB, companyID, itemID snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM order_list_entries WHERE company_id = ? AND inventory_item_id = ?`,
		companyID,
		itemID,
	)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) DeleteManualOrderEntry(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM order_list_entries WHERE company_id = ? AND id = ? AND inventory_item_id IS NULL`,
		companyID,
		id,
	)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) ClearOrderList(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM order_list_entries WHERE company_id = ?`, companyID)
	return res.RowsAffected, res.Error
}

func (r *repo) ListOrderList(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]inventorydomain.OrderListEntry, error) {
	var entries []inventorydomain.OrderListEntry
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_id, inventory_item_id, name, created_at
		 FROM order_list_entries WHERE company_id = ? ORDER BY created_at ASC, id ASC`,
		companyID,
	).Scan(&entries).Error
	return entries, err
}
