package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	TypeNewConstruction = "New Construction"
	TypeRenovation      = "Renovation"
	TypeDemolition      = "Demolition"
	TypeInteriorFitOut  = "Interior Fit-Out"
)

const (
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusOnHold     = "On Hold"
)

// Project is a job site. CurrentSpend only grows, through posted labor and
// material costs.
type Project struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	CompanyID     snowflake.ID    `json:"company_id" gorm:"not null;index:ix_projects_company"`
	Name          string          `json:"name" gorm:"type:text;not null"`
	Address       string          `json:"address" gorm:"type:text;not null;default:''"`
	Type          string          `json:"type" gorm:"type:varchar(32);not null"`
	Status        string          `json:"status" gorm:"type:varchar(32);not null"`
	StartDate     *time.Time      `json:"start_date,omitempty"`
	EndDate       *time.Time      `json:"end_date,omitempty"`
	Budget        int64           `json:"budget" gorm:"not null;default:0"`
	CurrentSpend  int64           `json:"current_spend" gorm:"not null;default:0"`
	MarkupPercent decimal.Decimal `json:"markup_percent" gorm:"type:numeric(7,2);not null;default:0"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null"`
}

func (Project) TableName() string { return "projects" }

// RemainingBudget may be negative once a project is over budget.
func (p Project) RemainingBudget() int64 {
	return p.Budget - p.CurrentSpend
}

type PunchListItem struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	CompanyID  snowflake.ID `json:"company_id" gorm:"not null"`
	ProjectID  snowflake.ID `json:"project_id" gorm:"not null;index:ix_punch_list_items_project"`
	Text       string       `json:"text" gorm:"type:text;not null"`
	IsComplete bool         `json:"is_complete" gorm:"not null;default:false"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time    `json:"updated_at" gorm:"not null"`
}

func (PunchListItem) TableName() string { return "punch_list_items" }

// Photo is the metadata of a stored image. PunchListItemID is set for
// photos attached to a punch list item rather than the project itself.
type Photo struct {
	ID              snowflake.ID  `json:"id" gorm:"primaryKey"`
	CompanyID       snowflake.ID  `json:"company_id" gorm:"not null"`
	ProjectID       snowflake.ID  `json:"project_id" gorm:"not null;index:ix_project_photos_project"`
	PunchListItemID *snowflake.ID `json:"punch_list_item_id,omitempty"`
	Description     string        `json:"description" gorm:"type:text;not null;default:''"`
	BlobKey         string        `json:"-" gorm:"type:varchar(191);not null"`
	ContentType     string        `json:"content_type" gorm:"type:varchar(64);not null"`
	DateAdded       time.Time     `json:"date_added" gorm:"not null"`
}

func (Photo) TableName() string { return "project_photos" }

type PunchListItemView struct {
	PunchListItem
	Photos []Photo `json:"photos"`
}

// Detail is a project with the collections it owns.
type Detail struct {
	Project
	PunchList []PunchListItemView `json:"punch_list"`
	Photos    []Photo             `json:"photos"`
}

func IsValidType(value string) bool {
	switch value {
	case TypeNewConstruction, TypeRenovation, TypeDemolition, TypeInteriorFitOut:
		return true
	default:
		return false
	}
}

func IsValidStatus(value string) bool {
	switch value {
	case StatusInProgress, StatusCompleted, StatusOnHold:
		return true
	default:
		return false
	}
}
