package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, project *Project) error
	Update(ctx context.Context, db *gorm.DB, project *Project) error
	FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*Project, error)
	List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, status string) ([]Project, error)
	Delete(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (bool, error)

	// IncrementSpend adds a non-negative amount to current_spend in place and
	// reports whether the project exists.
	IncrementSpend(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, amount int64) (bool, error)

	InsertPunchListItem(ctx context.Context, db *gorm.DB, item *PunchListItem) error
	FindPunchListItem(ctx context.Context, db *gorm.DB, companyID, projectID, id snowflake.ID) (*PunchListItem, error)
	TogglePunchListItem(ctx context.Context, db *gorm.DB, item *PunchListItem) error
	ListPunchListItems(ctx context.Context, db *gorm.DB, companyID, projectID snowflake.ID) ([]PunchListItem, error)
	DeletePunchListItems(ctx context.Context, db *gorm.DB, companyID, projectID snowflake.ID) error

	InsertPhotos(ctx context.Context, db *gorm.DB, photos []Photo) error
	UpdatePhoto(ctx context.Context, db *gorm.DB, photo *Photo) error
	FindPhoto(ctx context.Context, db *gorm.DB, companyID, projectID, id snowflake.ID) (*Photo, error)
	ListPhotos(ctx context.Context, db *gorm.DB, companyID, projectID snowflake.ID) ([]Photo, error)
	DeletePhotos(ctx context.Context, db *gorm.DB, companyID, projectID snowflake.ID) error
}
