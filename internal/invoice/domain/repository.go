package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert writes the invoice together with its line items.
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	CountByProject(ctx context.Context, db *gorm.DB, companyID, projectID snowflake.ID) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, projectID *snowflake.ID) ([]Invoice, error)
	ListLineItems(ctx context.Context, db *gorm.DB, companyID snowflake.ID, invoiceIDs []snowflake.ID) ([]LineItem, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, status Status, at time.Time) (bool, error)
}
