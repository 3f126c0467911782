package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusToDo       = "To Do"
	StatusInProgress = "In Progress"
	StatusDone       = "Done"
)

type Task struct {
	ID          snowflake.ID  `json:"id" gorm:"primaryKey"`
	CompanyID   snowflake.ID  `json:"company_id" gorm:"not null;index:ix_tasks_company_project,priority:1"`
	ProjectID   snowflake.ID  `json:"project_id" gorm:"not null;index:ix_tasks_company_project,priority:2"`
	AssigneeID  *snowflake.ID `json:"assignee_id,omitempty"`
	Title       string        `json:"title" gorm:"type:text;not null"`
	Description string        `json:"description" gorm:"type:text;not null;default:''"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	Status      string        `json:"status" gorm:"type:varchar(16);not null"`
	CreatedAt   time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time     `json:"updated_at" gorm:"not null"`
}

func (Task) TableName() string { return "tasks" }

func IsValidStatus(status string) bool {
	switch status {
	case StatusToDo, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}
