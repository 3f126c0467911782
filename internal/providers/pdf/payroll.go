package pdf

import (
	"context"
	"io"
)

type PayrollData struct {
	CompanyName  string
	EmployeeName string
	Role         string
	HourlyRate   string
	Period       string

	Entries  []PayrollEntry
	Projects []PayrollProject

	TotalHours string
	TotalPay   string
}

type PayrollEntry struct {
	Date     string
	Project  string
	ClockIn  string
	ClockOut string
	Hours    string
	Pay      string
}

type PayrollProject struct {
	Project string
	Hours   string
	Pay     string
}

var (
	payrollEntryColumns   = []int{2, 4, 1, 1, 2, 2}
	payrollProjectColumns = []int{8, 2, 2}
)

func (p *PDFProvider) GeneratePayroll(ctx context.Context, payroll PayrollData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := newDocument()
	addTitle(m, "Weekly Payroll Report", payroll.CompanyName)

	addKeyValue(m, "Employee", payroll.EmployeeName)
	addKeyValue(m, "Role", payroll.Role)
	addKeyValue(m, "Hourly rate", payroll.HourlyRate)
	addKeyValue(m, "Pay period", payroll.Period)

	addSectionHeader(m, "Time entries")
	addTableRow(m, payrollEntryColumns, []string{"Date", "Project", "In", "Out", "Hours", "Pay"}, true)
	addRule(m)
	for _, entry := range payroll.Entries {
		addTableRow(m, payrollEntryColumns, []string{
			entry.Date, entry.Project, entry.ClockIn, entry.ClockOut, entry.Hours, entry.Pay,
		}, false)
	}

	if len(payroll.Projects) > 0 {
		addSectionHeader(m, "By project")
		addTableRow(m, payrollProjectColumns, []string{"Project", "Hours", "Pay"}, true)
		addRule(m)
		for _, project := range payroll.Projects {
			addTableRow(m, payrollProjectColumns, []string{project.Project, project.Hours, project.Pay}, false)
		}
	}

	addRule(m)
	addTotalLine(m, "Total hours", payroll.TotalHours, false)
	addTotalLine(m, "Total pay", payroll.TotalPay, true)

	return render(m)
}
