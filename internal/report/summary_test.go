package report

import (
	"testing"
	"time"

	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	taskdomain "github.com/smallbiznis/constructtrack/internal/task/domain"
	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
	"github.com/stretchr/testify/assert"
)

func TestProjectSummary(t *testing.T) {
	project := projectdomain.Project{ID: 10, Name: "Kitchen", Budget: 1_000_000, CurrentSpend: 250_000}
	start := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

	tasks := []taskdomain.Task{
		{ProjectID: 10, Title: "Demo", Status: taskdomain.StatusDone},
		{ProjectID: 10, Title: "Framing", Status: taskdomain.StatusInProgress},
		{ProjectID: 10, Title: "Drywall", Status: taskdomain.StatusToDo},
		{ProjectID: 99, Title: "Elsewhere", Status: taskdomain.StatusDone},
	}
	logs := []timetrackingdomain.TimeLog{
		closedLog(1, 10, start, 2*time.Hour, 5000),
		closedLog(2, 10, start, 3*time.Hour, 9000),
		closedLog(1, 10, start.Add(24*time.Hour), 30*time.Minute, 1250),
		closedLog(1, 99, start, time.Hour, 2500),
		{UserID: 3, ProjectID: 10, ClockIn: start},
	}

	summary := ProjectSummary(project, tasks, logs)

	assert.Equal(t, int64(15250), summary.LaborCost)
	assert.Equal(t, "5.50", summary.TotalHours.StringFixed(2))
	assert.Equal(t, 3, summary.TasksTotal)
	assert.Equal(t, 1, summary.TasksDone)
	assert.Equal(t, int64(33), summary.CompletionPercent)
	assert.Equal(t, int64(750_000), summary.RemainingBudget)
	assert.Len(t, summary.Tasks, 3)

	if assert.Len(t, summary.Crew, 2) {
		assert.EqualValues(t, 2, summary.Crew[0].UserID)
		assert.Equal(t, int64(9000), summary.Crew[0].Cost)
		assert.EqualValues(t, 1, summary.Crew[1].UserID)
		assert.Equal(t, "2.50", summary.Crew[1].Hours.StringFixed(2))
	}
}

func TestProjectSummaryWithoutTasksOrLogs(t *testing.T) {
	project := projectdomain.Project{ID: 10, Budget: 1000, CurrentSpend: 1500}

	summary := ProjectSummary(project, nil, nil)

	assert.Zero(t, summary.CompletionPercent)
	assert.Zero(t, summary.LaborCost)
	assert.Equal(t, int64(-500), summary.RemainingBudget)
	assert.Empty(t, summary.Crew)
}
