package domain

import (
	"context"
	"errors"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*User, error)
	Update(ctx context.Context, req UpdateRequest) (*User, error)
	Get(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]User, error)
}

type CreateRequest struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	AccessRole string `json:"access_role"`
	HourlyRate int64  `json:"hourly_rate"`
}

// UpdateRequest cannot touch the clock fields; those only change through
// the time tracking engine.
type UpdateRequest struct {
	ID         string  `json:"id"`
	Name       *string `json:"name,omitempty"`
	Role       *string `json:"role,omitempty"`
	AccessRole *string `json:"access_role,omitempty"`
	HourlyRate *int64  `json:"hourly_rate,omitempty"`
}

var (
	ErrInvalidCompany    = errors.New("invalid_company")
	ErrInvalidID         = errors.New("invalid_user_id")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidRole       = errors.New("invalid_role")
	ErrInvalidAccessRole = errors.New("invalid_access_role")
	ErrInvalidHourlyRate = errors.New("invalid_hourly_rate")
	ErrNotFound          = errors.New("user_not_found")
)
