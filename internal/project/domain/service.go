package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/constructtrack/internal/photo"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Project, error)
	Update(ctx context.Context, req UpdateRequest) (*Project, error)
	Get(ctx context.Context, id string) (*Detail, error)
	List(ctx context.Context, status string) ([]Project, error)
	Delete(ctx context.Context, id string) error

	AddPunchListItem(ctx context.Context, projectID string, text string) (*PunchListItem, error)
	TogglePunchListItem(ctx context.Context, projectID string, itemID string) (*PunchListItem, error)

	AddPhotos(ctx context.Context, req AddPhotosRequest) ([]Photo, error)
	AddPunchListPhotos(ctx context.Context, req AddPhotosRequest) ([]Photo, error)
	UpdatePunchListPhoto(ctx context.Context, projectID, itemID, photoID string, image photo.Image) (*Photo, error)
	GetPhoto(ctx context.Context, projectID, photoID string) (*Photo, photo.Image, error)
}

type CreateRequest struct {
	Name          string           `json:"name"`
	Address       string           `json:"address"`
	Type          string           `json:"type"`
	Status        string           `json:"status"`
	StartDate     *time.Time       `json:"start_date"`
	EndDate       *time.Time       `json:"end_date"`
	Budget        int64            `json:"budget"`
	MarkupPercent *decimal.Decimal `json:"markup_percent"`
}

// UpdateRequest edits descriptive fields. Spend only moves through cost
// posting.
type UpdateRequest struct {
	ID            string           `json:"id"`
	Name          *string          `json:"name,omitempty"`
	Address       *string          `json:"address,omitempty"`
	Type          *string          `json:"type,omitempty"`
	Status        *string          `json:"status,omitempty"`
	StartDate     *time.Time       `json:"start_date,omitempty"`
	EndDate       *time.Time       `json:"end_date,omitempty"`
	Budget        *int64           `json:"budget,omitempty"`
	MarkupPercent *decimal.Decimal `json:"markup_percent,omitempty"`
}

// AddPhotosRequest attaches a batch of images. PunchListItemID is only read
// by AddPunchListPhotos.
type AddPhotosRequest struct {
	ProjectID       string
	PunchListItemID string
	Images          []photo.Image
	Description     string
}

var (
	ErrInvalidCompany   = errors.New("invalid_company")
	ErrInvalidID        = errors.New("invalid_project_id")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidType      = errors.New("invalid_project_type")
	ErrInvalidStatus    = errors.New("invalid_project_status")
	ErrInvalidBudget    = errors.New("invalid_budget")
	ErrInvalidMarkup    = errors.New("invalid_markup_percent")
	ErrInvalidDateRange = errors.New("invalid_date_range")
	ErrInvalidText      = errors.New("invalid_punch_list_text")
	ErrNoImages         = errors.New("no_images")
	ErrInvalidAmount    = errors.New("invalid_spend_amount")
	ErrNotFound         = errors.New("project_not_found")
	ErrItemNotFound     = errors.New("punch_list_item_not_found")
	ErrPhotoNotFound    = errors.New("photo_not_found")
)
