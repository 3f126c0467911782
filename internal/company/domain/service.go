package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Company, error)
	Get(ctx context.Context, id string) (*Company, error)
	Current(ctx context.Context) (*Company, error)
}

type CreateRequest struct {
	Name                 string           `json:"name"`
	Currency             string           `json:"currency"`
	Timezone             string           `json:"timezone"`
	DefaultMarkupPercent *decimal.Decimal `json:"default_markup_percent"`
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrInvalidTimezone = errors.New("invalid_timezone")
	ErrInvalidMarkup   = errors.New("invalid_markup_percent")
	ErrInvalidCompany  = errors.New("invalid_company")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("company_not_found")
)
