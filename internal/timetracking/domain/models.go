package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/constructtrack/internal/geo"
	"gorm.io/datatypes"
)

// OpenLogIndex names the partial unique index that allows at most one open
// time log per user. It is created by the migrations, not by the model tags.
const OpenLogIndex = "ux_time_logs_open_user"

// TimeLog is one work session. It is created open, closed exactly once, and
// afterwards only InvoiceID may change.
type TimeLog struct {
	ID               snowflake.ID   `json:"id" gorm:"primaryKey"`
	CompanyID        snowflake.ID   `json:"company_id" gorm:"not null;index:ix_time_logs_company_project,priority:1;index:ix_time_logs_company_user,priority:1"`
	UserID           snowflake.ID   `json:"user_id" gorm:"not null;index:ix_time_logs_company_user,priority:2"`
	ProjectID        snowflake.ID   `json:"project_id" gorm:"not null;index:ix_time_logs_company_project,priority:2"`
	ClockIn          time.Time      `json:"clock_in" gorm:"not null"`
	ClockOut         *time.Time     `json:"clock_out,omitempty"`
	DurationMs       *int64         `json:"duration_ms,omitempty"`
	Cost             *int64         `json:"cost,omitempty"`
	HourlyRate       *int64         `json:"hourly_rate,omitempty"`
	ClockSkewed      bool           `json:"clock_skewed" gorm:"not null;default:false"`
	ClockInLocation  datatypes.JSON `json:"clock_in_location,omitempty"`
	ClockOutLocation datatypes.JSON `json:"clock_out_location,omitempty"`
	InvoiceID        *snowflake.ID  `json:"invoice_id,omitempty" gorm:"index:ix_time_logs_invoice"`
	CreatedAt        time.Time      `json:"created_at" gorm:"not null"`
}

func (TimeLog) TableName() string { return "time_logs" }

func (l TimeLog) IsOpen() bool {
	return l.ClockOut == nil
}

func (l TimeLog) IsInvoiced() bool {
	return l.InvoiceID != nil
}

func (l TimeLog) ClockInPosition() *geo.Location {
	return decodeLocation(l.ClockInLocation)
}

func (l TimeLog) ClockOutPosition() *geo.Location {
	return decodeLocation(l.ClockOutLocation)
}

// EncodeLocation returns nil for an absent fix so the column stays NULL.
func EncodeLocation(loc *geo.Location) datatypes.JSON {
	if loc == nil {
		return nil
	}
	raw, err := json.Marshal(loc)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func decodeLocation(raw datatypes.JSON) *geo.Location {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var loc geo.Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		return nil
	}
	return &loc
}

// Closure is the outcome of closing a session at a point in time.
type Closure struct {
	ClockOut   time.Time
	DurationMs int64
	Cost       int64
	HourlyRate int64
	Skewed     bool
}
