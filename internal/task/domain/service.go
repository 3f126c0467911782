package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Task, error)
	UpdateStatus(ctx context.Context, id string, status string) (*Task, error)
	ListByProject(ctx context.Context, projectID string) ([]Task, error)
}

type CreateRequest struct {
	ProjectID   string     `json:"project_id"`
	AssigneeID  string     `json:"assignee_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

var (
	ErrInvalidCompany  = errors.New("invalid_company")
	ErrInvalidID       = errors.New("invalid_task_id")
	ErrInvalidProject  = errors.New("invalid_project_id")
	ErrInvalidAssignee = errors.New("invalid_assignee_id")
	ErrInvalidTitle    = errors.New("invalid_title")
	ErrInvalidStatus   = errors.New("invalid_task_status")
	ErrNotFound        = errors.New("task_not_found")
)
