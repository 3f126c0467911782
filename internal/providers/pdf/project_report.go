package pdf

import (
	"context"
	"io"
)

type ProjectReportData struct {
	CompanyName string
	ProjectName string
	Address     string
	Type        string
	Status      string
	GeneratedAt string

	Budget          string
	CurrentSpend    string
	RemainingBudget string
	TotalHours      string
	LaborCost       string
	TaskCompletion  string

	Crew  []ProjectCrewLine
	Tasks []ProjectTaskLine
}

type ProjectCrewLine struct {
	Name  string
	Hours string
	Cost  string
}

type ProjectTaskLine struct {
	Title   string
	Status  string
	DueDate string
}

var (
	crewColumns = []int{8, 2, 2}
	taskColumns = []int{8, 2, 2}
)

func (p *PDFProvider) GenerateProjectReport(ctx context.Context, report ProjectReportData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := newDocument()
	addTitle(m, report.ProjectName, report.CompanyName)

	addKeyValue(m, "Address", report.Address)
	addKeyValue(m, "Type", report.Type)
	addKeyValue(m, "Status", report.Status)
	addKeyValue(m, "Generated", report.GeneratedAt)

	addSectionHeader(m, "Financials")
	addKeyValue(m, "Budget", report.Budget)
	addKeyValue(m, "Current spend", report.CurrentSpend)
	addKeyValue(m, "Remaining", report.RemainingBudget)
	addKeyValue(m, "Labor hours", report.TotalHours)
	addKeyValue(m, "Labor cost", report.LaborCost)

	if len(report.Crew) > 0 {
		addSectionHeader(m, "Crew")
		addTableRow(m, crewColumns, []string{"Name", "Hours", "Cost"}, true)
		addRule(m)
		for _, line := range report.Crew {
			addTableRow(m, crewColumns, []string{line.Name, line.Hours, line.Cost}, false)
		}
	}

	addSectionHeader(m, "Tasks ("+report.TaskCompletion+" complete)")
	if len(report.Tasks) == 0 {
		addTableRow(m, []int{12}, []string{"No tasks recorded."}, false)
	} else {
		addTableRow(m, taskColumns, []string{"Task", "Status", "Due"}, true)
		addRule(m)
		for _, line := range report.Tasks {
			addTableRow(m, taskColumns, []string{line.Title, line.Status, line.DueDate}, false)
		}
	}

	return render(m)
}
