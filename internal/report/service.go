package report

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/constructtrack/internal/clock"
	companydomain "github.com/smallbiznis/constructtrack/internal/company/domain"
	"github.com/smallbiznis/constructtrack/internal/config"
	invoicedomain "github.com/smallbiznis/constructtrack/internal/invoice/domain"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	"github.com/smallbiznis/constructtrack/internal/providers/pdf"
	taskdomain "github.com/smallbiznis/constructtrack/internal/task/domain"
	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
	"github.com/smallbiznis/constructtrack/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	dateLayout  = "Jan 2, 2006"
	shortDate   = "Mon Jan 2"
	clockLayout = "15:04"
)

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9]`)

// Document is a rendered PDF with a suggested download name.
type Document struct {
	Filename string
	Content  io.Reader
}

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Invoicing  *config.InvoicingConfigHolder
	Renderer   pdf.Provider
	CompanySvc companydomain.Service
	UserSvc    userdomain.Service
	ProjectSvc projectdomain.Service
	TaskSvc    taskdomain.Service
	TimeSvc    timetrackingdomain.Service
	InvoiceSvc invoicedomain.Service
}

type Service struct {
	log        *zap.Logger
	clock      clock.Clock
	invoicing  *config.InvoicingConfigHolder
	renderer   pdf.Provider
	companySvc companydomain.Service
	userSvc    userdomain.Service
	projectSvc projectdomain.Service
	taskSvc    taskdomain.Service
	timeSvc    timetrackingdomain.Service
	invoiceSvc invoicedomain.Service
}

func New(p Params) *Service {
	return &Service{
		log:        p.Log.Named("report.service"),
		clock:      p.Clock,
		invoicing:  p.Invoicing,
		renderer:   p.Renderer,
		companySvc: p.CompanySvc,
		userSvc:    p.UserSvc,
		projectSvc: p.ProjectSvc,
		taskSvc:    p.TaskSvc,
		timeSvc:    p.TimeSvc,
		invoiceSvc: p.InvoiceSvc,
	}
}

// WeeklyPayroll reports the current week in the company's timezone.
func (s *Service) WeeklyPayroll(ctx context.Context, userID string) (*Payroll, error) {
	company, err := s.companySvc.Current(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.userSvc.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().In(companyLocation(company))
	weekStart := s.invoicing.Get().WeekStartDay()
	from, to := WeekBounds(now, weekStart)

	logs, err := s.timeSvc.ListByUser(ctx, userID, &from, &to)
	if err != nil {
		return nil, err
	}
	return WeeklyPayroll(*user, logs, now, weekStart)
}

func (s *Service) WeeklyPayrollPDF(ctx context.Context, userID string) (*Document, error) {
	company, err := s.companySvc.Current(ctx)
	if err != nil {
		return nil, err
	}
	payroll, err := s.WeeklyPayroll(ctx, userID)
	if err != nil {
		return nil, err
	}
	names, err := s.projectNames(ctx)
	if err != nil {
		return nil, err
	}

	loc := companyLocation(company)
	data := pdf.PayrollData{
		CompanyName:  company.Name,
		EmployeeName: payroll.User.Name,
		Role:         payroll.User.Role,
		HourlyRate:   money.Format(payroll.User.HourlyRate, company.Currency),
		Period:       payroll.WeekStart.Format(dateLayout) + " - " + payroll.WeekEnd.Format(dateLayout),
		TotalHours:   payroll.TotalHours.StringFixed(2),
		TotalPay:     money.Format(payroll.TotalPay, company.Currency),
	}
	for _, log := range payroll.Logs {
		clockOut := ""
		if log.ClockOut != nil {
			clockOut = log.ClockOut.In(loc).Format(clockLayout)
		}
		data.Entries = append(data.Entries, pdf.PayrollEntry{
			Date:     log.ClockIn.In(loc).Format(shortDate),
			Project:  nameOr(names, log.ProjectID),
			ClockIn:  log.ClockIn.In(loc).Format(clockLayout),
			ClockOut: clockOut,
			Hours:    money.Hours(valueOf(log.DurationMs)).StringFixed(2),
			Pay:      money.Format(valueOf(log.Cost), company.Currency),
		})
	}
	for _, total := range payroll.Projects {
		data.Projects = append(data.Projects, pdf.PayrollProject{
			Project: nameOr(names, total.ProjectID),
			Hours:   total.Hours.StringFixed(2),
			Pay:     money.Format(total.Pay, company.Currency),
		})
	}

	content, err := s.renderer.GeneratePayroll(ctx, data)
	if err != nil {
		s.log.Error("render payroll pdf", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("render payroll: %w", err)
	}
	return &Document{
		Filename: fmt.Sprintf("Payroll_Report_%s_%s.pdf", sanitize(payroll.User.Name), payroll.WeekStart.Format("2006-01-02")),
		Content:  content,
	}, nil
}

func (s *Service) ProjectSummary(ctx context.Context, projectID string) (*Summary, error) {
	detail, err := s.projectSvc.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.taskSvc.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	logs, err := s.timeSvc.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	summary := ProjectSummary(detail.Project, tasks, logs)
	return &summary, nil
}

func (s *Service) ProjectReportPDF(ctx context.Context, projectID string) (*Document, error) {
	company, err := s.companySvc.Current(ctx)
	if err != nil {
		return nil, err
	}
	summary, err := s.ProjectSummary(ctx, projectID)
	if err != nil {
		return nil, err
	}
	users, err := s.userSvc.List(ctx)
	if err != nil {
		return nil, err
	}
	userNames := make(map[snowflake.ID]string, len(users))
	for _, user := range users {
		userNames[user.ID] = user.Name
	}

	loc := companyLocation(company)
	project := summary.Project
	data := pdf.ProjectReportData{
		CompanyName:     company.Name,
		ProjectName:     project.Name,
		Address:         project.Address,
		Type:            project.Type,
		Status:          project.Status,
		GeneratedAt:     s.clock.Now().In(loc).Format(dateLayout),
		Budget:          money.Format(project.Budget, company.Currency),
		CurrentSpend:    money.Format(project.CurrentSpend, company.Currency),
		RemainingBudget: money.Format(summary.RemainingBudget, company.Currency),
		TotalHours:      summary.TotalHours.StringFixed(2),
		LaborCost:       money.Format(summary.LaborCost, company.Currency),
		TaskCompletion:  fmt.Sprintf("%d%%", summary.CompletionPercent),
	}
	for _, member := range summary.Crew {
		data.Crew = append(data.Crew, pdf.ProjectCrewLine{
			Name:  nameOr(userNames, member.UserID),
			Hours: member.Hours.StringFixed(2),
			Cost:  money.Format(member.Cost, company.Currency),
		})
	}
	for _, task := range summary.Tasks {
		due := ""
		if task.DueDate != nil {
			due = task.DueDate.In(loc).Format(dateLayout)
		}
		data.Tasks = append(data.Tasks, pdf.ProjectTaskLine{
			Title:   task.Title,
			Status:  task.Status,
			DueDate: due,
		})
	}

	content, err := s.renderer.GenerateProjectReport(ctx, data)
	if err != nil {
		s.log.Error("render project report pdf", zap.String("project_id", projectID), zap.Error(err))
		return nil, fmt.Errorf("render project report: %w", err)
	}
	return &Document{
		Filename: fmt.Sprintf("Project_Report_%s.pdf", sanitize(project.Name)),
		Content:  content,
	}, nil
}

func (s *Service) InvoicePDF(ctx context.Context, invoiceID string) (*Document, error) {
	company, err := s.companySvc.Current(ctx)
	if err != nil {
		return nil, err
	}
	invoice, err := s.invoiceSvc.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	detail, err := s.projectSvc.Get(ctx, invoice.ProjectID.String())
	if err != nil {
		return nil, err
	}

	loc := companyLocation(company)
	currency := invoice.Currency
	if currency == "" {
		currency = company.Currency
	}
	data := pdf.InvoiceData{
		CompanyName:    company.Name,
		ProjectName:    detail.Name,
		ProjectAddress: detail.Address,
		InvoiceNumber:  invoice.InvoiceNumber,
		IssueDate:      invoice.IssueDate.In(loc).Format(dateLayout),
		DueDate:        invoice.DueDate.In(loc).Format(dateLayout),
		Status:         string(invoice.Status),
		Subtotal:       money.Format(invoice.SubtotalAmount, currency),
		MarkupLabel:    fmt.Sprintf("Markup (%s%%)", invoice.MarkupPercent.String()),
		Markup:         money.Format(invoice.MarkupAmount, currency),
		Total:          money.Format(invoice.TotalAmount, currency),
	}
	for _, item := range invoice.LaborLineItems {
		data.LaborItems = append(data.LaborItems, pdfLine(item, item.Quantity.StringFixed(2), currency))
	}
	for _, item := range invoice.MaterialLineItems {
		data.MaterialItems = append(data.MaterialItems, pdfLine(item, item.Quantity.String(), currency))
	}

	content, err := s.renderer.GenerateInvoice(ctx, data)
	if err != nil {
		s.log.Error("render invoice pdf", zap.String("invoice_id", invoiceID), zap.Error(err))
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return &Document{
		Filename: fmt.Sprintf("Invoice_%s.pdf", sanitize(invoice.InvoiceNumber)),
		Content:  content,
	}, nil
}

func (s *Service) projectNames(ctx context.Context) (map[snowflake.ID]string, error) {
	projects, err := s.projectSvc.List(ctx, "")
	if err != nil {
		return nil, err
	}
	names := make(map[snowflake.ID]string, len(projects))
	for _, project := range projects {
		names[project.ID] = project.Name
	}
	return names, nil
}

func pdfLine(item invoicedomain.LineItem, quantity, currency string) pdf.InvoiceItem {
	return pdf.InvoiceItem{
		Description: item.Description,
		Quantity:    quantity,
		UnitPrice:   money.Format(item.UnitPrice, currency),
		Amount:      money.Format(item.Total, currency),
	}
}

func companyLocation(company *companydomain.Company) *time.Location {
	if company == nil || strings.TrimSpace(company.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(company.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func nameOr(names map[snowflake.ID]string, id snowflake.ID) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return "Unknown"
}

func sanitize(value string) string {
	return unsafeFilename.ReplaceAllString(value, "_")
}
