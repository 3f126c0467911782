package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	UpdateProfile(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*User, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*User, error)
	List(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]User, error)
	Count(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (int64, error)

	// The clock setters only apply when the stored state matches the
	// expected precondition and report whether a row changed.
	MarkClockedIn(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, at time.Time, projectID snowflake.ID) (bool, error)
	MarkClockedOut(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, at time.Time) (bool, error)
	MoveToProject(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, at time.Time, fromProjectID, toProjectID snowflake.ID) (bool, error)
}
