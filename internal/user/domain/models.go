package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	AccessRoleAdmin    = "admin"
	AccessRoleManager  = "manager"
	AccessRoleEmployee = "employee"
)

// User is a crew member. Role is the job title shown on reports;
// AccessRole drives authorization.
//
// IsClockedIn is true exactly when ClockInTime and CurrentProjectID are set.
type User struct {
	ID               snowflake.ID  `json:"id" gorm:"primaryKey"`
	CompanyID        snowflake.ID  `json:"company_id" gorm:"not null;index:ix_users_company"`
	Name             string        `json:"name" gorm:"type:text;not null"`
	Role             string        `json:"role" gorm:"type:text;not null"`
	AccessRole       string        `json:"access_role" gorm:"type:varchar(16);not null;default:'employee'"`
	HourlyRate       int64         `json:"hourly_rate" gorm:"not null;default:0"`
	IsClockedIn      bool          `json:"is_clocked_in" gorm:"not null;default:false"`
	ClockInTime      *time.Time    `json:"clock_in_time,omitempty"`
	CurrentProjectID *snowflake.ID `json:"current_project_id,omitempty"`
	CreatedAt        time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time     `json:"updated_at" gorm:"not null"`
}

func (User) TableName() string { return "users" }

// ClockStateValid reports whether the clock fields agree with each other.
func (u User) ClockStateValid() bool {
	if u.IsClockedIn {
		return u.ClockInTime != nil && u.CurrentProjectID != nil
	}
	return u.ClockInTime == nil && u.CurrentProjectID == nil
}

func IsValidAccessRole(role string) bool {
	switch role {
	case AccessRoleAdmin, AccessRoleManager, AccessRoleEmployee:
		return true
	default:
		return false
	}
}
