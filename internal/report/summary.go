package report

import (
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	taskdomain "github.com/smallbiznis/constructtrack/internal/task/domain"
	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
	"github.com/smallbiznis/constructtrack/pkg/money"
)

type CrewTotal struct {
	UserID     snowflake.ID    `json:"user_id"`
	DurationMs int64           `json:"duration_ms"`
	Hours      decimal.Decimal `json:"hours"`
	Cost       int64           `json:"cost"`
}

type Summary struct {
	Project           projectdomain.Project `json:"project"`
	DurationMs        int64                 `json:"duration_ms"`
	TotalHours        decimal.Decimal       `json:"total_hours"`
	LaborCost         int64                 `json:"labor_cost"`
	TasksTotal        int                   `json:"tasks_total"`
	TasksDone         int                   `json:"tasks_done"`
	CompletionPercent int64                 `json:"completion_percent"`
	RemainingBudget   int64                 `json:"remaining_budget"`
	Crew              []CrewTotal           `json:"crew"`
	Tasks             []taskdomain.Task     `json:"tasks"`
}

// ProjectSummary aggregates the project's closed logs and tasks. Logs and
// tasks of other projects are ignored. Crew is ordered by hours, longest first.
func ProjectSummary(project projectdomain.Project, tasks []taskdomain.Task, logs []timetrackingdomain.TimeLog) Summary {
	summary := Summary{
		Project:         project,
		RemainingBudget: project.RemainingBudget(),
		Tasks:           make([]taskdomain.Task, 0, len(tasks)),
	}

	for _, task := range tasks {
		if task.ProjectID != project.ID {
			continue
		}
		summary.Tasks = append(summary.Tasks, task)
		summary.TasksTotal++
		if task.Status == taskdomain.StatusDone {
			summary.TasksDone++
		}
	}
	if summary.TasksTotal > 0 {
		summary.CompletionPercent = decimal.NewFromInt(int64(summary.TasksDone)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(summary.TasksTotal))).
			Round(0).
			IntPart()
	}

	crew := map[snowflake.ID]*CrewTotal{}
	for _, log := range logs {
		if log.ProjectID != project.ID || log.IsOpen() {
			continue
		}
		duration := valueOf(log.DurationMs)
		cost := valueOf(log.Cost)
		summary.DurationMs += duration
		summary.LaborCost += cost

		member, ok := crew[log.UserID]
		if !ok {
			member = &CrewTotal{UserID: log.UserID}
			crew[log.UserID] = member
		}
		member.DurationMs += duration
		member.Cost += cost
	}
	summary.TotalHours = money.Hours(summary.DurationMs)

	summary.Crew = make([]CrewTotal, 0, len(crew))
	for _, member := range crew {
		member.Hours = money.Hours(member.DurationMs)
		summary.Crew = append(summary.Crew, *member)
	}
	sort.Slice(summary.Crew, func(i, j int) bool {
		if summary.Crew[i].DurationMs != summary.Crew[j].DurationMs {
			return summary.Crew[i].DurationMs > summary.Crew[j].DurationMs
		}
		return summary.Crew[i].UserID < summary.Crew[j].UserID
	})
	return summary
}
