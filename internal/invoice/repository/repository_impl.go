package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/constructtrack/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() invoicedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *invoicedomain.Invoice) error {
	if err := db.WithContext(ctx).Create(invoice).Error; err != nil {
		return err
	}
	items := invoice.Items()
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) CountByProject(ctx context.Context, db *gorm.DB, companyID, projectID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM invoices WHERE company_id = ? AND project_id = ?`,
		companyID,
		projectID,
	).Scan(&count).Error
	return count, err
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoices []invoicedomain.Invoice
	err := db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		Limit(1).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}
	return &invoices[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, projectID *snowflake.ID) ([]invoicedomain.Invoice, error) {
	var invoices []invoicedomain.Invoice
	stmt := db.WithContext(ctx).Where("company_id = ?", companyID)
	if projectID != nil {
		stmt = stmt.Where("project_id = ?", *projectID)
	}
	if err := stmt.Order("issue_date DESC, id DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListLineItems(ctx context.Context, db *gorm.DB, companyID snowflake.ID, invoiceIDs []snowflake.ID) ([]invoicedomain.LineItem, error) {
	if len(invoiceIDs) == 0 {
		return nil, nil
	}
	var items []invoicedomain.LineItem
	err := db.WithContext(ctx).
		Where("company_id = ? AND invoice_id IN ?", companyID, invoiceIDs).
		Order("invoice_id ASC, position ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, status invoicedomain.Status, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, updated_at = ? WHERE company_id = ? AND id = ?`,
		status,
		at,
		companyID,
		id,
	)
	return res.RowsAffected > 0, res.Error
}
