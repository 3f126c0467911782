package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	CompanyID snowflake.ID
	UserID    *snowflake.ID
	ProjectID *snowflake.ID
	From      *time.Time
	To        *time.Time
	Closed    bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, log *TimeLog) error
	FindOpenByUser(ctx context.Context, db *gorm.DB, companyID, userID snowflake.ID) (*TimeLog, error)

	// Close applies the closure only while the log is still open and reports
	// whether it did.
	Close(ctx context.Context, db *gorm.DB, log *TimeLog) (bool, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]TimeLog, error)

	// ListUninvoiced returns closed, un-invoiced logs of a project locked for
	// the caller's transaction, oldest first.
	ListUninvoiced(ctx context.Context, db *gorm.DB, companyID, projectID snowflake.ID) ([]TimeLog, error)

	// MarkInvoiced claims logs that are still un-invoiced and returns how
	// many rows were claimed.
	MarkInvoiced(ctx context.Context, db *gorm.DB, companyID snowflake.ID, ids []snowflake.ID, invoiceID snowflake.ID) (int64, error)
	CountOpen(ctx context.Context, db *gorm.DB, companyID, userID snowflake.ID) (int64, error)
}
