// Package report derives payroll and project summaries from time logs and
// renders them as documents.
package report

import (
	"errors"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
	"github.com/smallbiznis/constructtrack/pkg/money"
)

var (
	ErrNoLogs           = errors.New("no_completed_logs")
	ErrInvalidCompany   = errors.New("invalid_company")
	ErrInvalidUserID    = errors.New("invalid_user_id")
	ErrInvalidProjectID = errors.New("invalid_project_id")
)

// ProjectTotal is the share of a payroll week spent on one project.
type ProjectTotal struct {
	ProjectID  snowflake.ID    `json:"project_id"`
	DurationMs int64           `json:"duration_ms"`
	Hours      decimal.Decimal `json:"hours"`
	Pay        int64           `json:"pay"`
}

type Payroll struct {
	User       userdomain.User              `json:"user"`
	WeekStart  time.Time                    `json:"week_start"`
	WeekEnd    time.Time                    `json:"week_end"`
	Logs       []timetrackingdomain.TimeLog `json:"logs"`
	DurationMs int64                        `json:"duration_ms"`
	TotalHours decimal.Decimal              `json:"total_hours"`
	TotalPay   int64                        `json:"total_pay"`
	Projects   []ProjectTotal               `json:"projects"`
}

// WeekBounds returns the half-open week [start, end) containing now.
func WeekBounds(now time.Time, weekStart time.Weekday) (time.Time, time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// WeeklyPayroll totals the user's closed logs whose clock-in falls in the
// week containing now. Pay is the sum of the costs frozen on each log.
func WeeklyPayroll(user userdomain.User, logs []timetrackingdomain.TimeLog, now time.Time, weekStart time.Weekday) (*Payroll, error) {
	start, end := WeekBounds(now, weekStart)

	selected := make([]timetrackingdomain.TimeLog, 0, len(logs))
	for _, log := range logs {
		if log.UserID != user.ID || log.IsOpen() {
			continue
		}
		if log.ClockIn.Before(start) || !log.ClockIn.Before(end) {
			continue
		}
		selected = append(selected, log)
	}
	if len(selected) == 0 {
		return nil, ErrNoLogs
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].ClockIn.Before(selected[j].ClockIn)
	})

	payroll := &Payroll{
		User:      user,
		WeekStart: start,
		WeekEnd:   end.Add(-time.Nanosecond),
		Logs:      selected,
	}

	byProject := map[snowflake.ID]*ProjectTotal{}
	order := make([]snowflake.ID, 0)
	for _, log := range selected {
		duration := valueOf(log.DurationMs)
		cost := valueOf(log.Cost)
		payroll.DurationMs += duration
		payroll.TotalPay += cost

		total, ok := byProject[log.ProjectID]
		if !ok {
			total = &ProjectTotal{ProjectID: log.ProjectID}
			byProject[log.ProjectID] = total
			order = append(order, log.ProjectID)
		}
		total.DurationMs += duration
		total.Pay += cost
	}

	payroll.TotalHours = money.Hours(payroll.DurationMs)
	payroll.Projects = make([]ProjectTotal, 0, len(order))
	for _, id := range order {
		total := byProject[id]
		total.Hours = money.Hours(total.DurationMs)
		payroll.Projects = append(payroll.Projects, *total)
	}
	return payroll, nil
}

func valueOf(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
