package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Company is the tenant boundary. Every other record carries its id.
type Company struct {
	ID                   snowflake.ID    `json:"id" gorm:"primaryKey"`
	Name                 string          `json:"name" gorm:"type:text;not null"`
	Slug                 string          `json:"slug" gorm:"type:varchar(191);not null;uniqueIndex:ux_companies_slug"`
	Currency             string          `json:"currency" gorm:"type:varchar(3);not null;default:'USD'"`
	Timezone             string          `json:"timezone" gorm:"type:varchar(64);not null;default:'UTC'"`
	DefaultMarkupPercent decimal.Decimal `json:"default_markup_percent" gorm:"type:numeric(7,2);not null;default:0"`
	CreatedAt            time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt            time.Time       `json:"updated_at" gorm:"not null"`
}

func (Company) TableName() string { return "companies" }
