package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/constructtrack/internal/geo"
)

type Service interface {
	ClockIn(ctx context.Context, req ClockInRequest) (*TimeLog, error)
	ClockOut(ctx context.Context, req ClockOutRequest) (*TimeLog, error)
	SwitchJob(ctx context.Context, req SwitchJobRequest) (*SwitchResult, error)

	OpenLog(ctx context.Context, userID string) (*TimeLog, error)
	ListByUser(ctx context.Context, userID string, from, to *time.Time) ([]TimeLog, error)
	ListByProject(ctx context.Context, projectID string) ([]TimeLog, error)
}

// Locator is optional. A nil or failing locator records no position.
type ClockInRequest struct {
	UserID    string
	ProjectID string
	Locator   geo.Locator
}

type ClockOutRequest struct {
	UserID  string
	Locator geo.Locator
}

type SwitchJobRequest struct {
	UserID       string
	NewProjectID string
	Locator      geo.Locator
}

type SwitchResult struct {
	Closed TimeLog `json:"closed_log"`
	Opened TimeLog `json:"opened_log"`
}

var (
	ErrInvalidCompany    = errors.New("invalid_company")
	ErrInvalidUserID     = errors.New("invalid_user_id")
	ErrInvalidProjectID  = errors.New("invalid_project_id")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrSameProject       = errors.New("same_project")
)
