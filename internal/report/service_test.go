package report

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/constructtrack/internal/clock"
	companydomain "github.com/smallbiznis/constructtrack/internal/company/domain"
	"github.com/smallbiznis/constructtrack/internal/config"
	invoicedomain "github.com/smallbiznis/constructtrack/internal/invoice/domain"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	"github.com/smallbiznis/constructtrack/internal/providers/pdf"
	taskdomain "github.com/smallbiznis/constructtrack/internal/task/domain"
	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type companies struct {
	companydomain.Service
	company *companydomain.Company
}

func (c companies) Current(context.Context) (*companydomain.Company, error) {
	return c.company, nil
}

type users struct {
	userdomain.Service
	byID map[string]*userdomain.User
}

func (u users) Get(_ context.Context, id string) (*userdomain.User, error) {
	user, ok := u.byID[id]
	if !ok {
		return nil, userdomain.ErrNotFound
	}
	return user, nil
}

func (u users) List(context.Context) ([]userdomain.User, error) {
	out := make([]userdomain.User, 0, len(u.byID))
	for _, user := range u.byID {
		out = append(out, *user)
	}
	return out, nil
}

type projects struct {
	projectdomain.Service
	project projectdomain.Project
}

func (p projects) Get(_ context.Context, id string) (*projectdomain.Detail, error) {
	if id != p.project.ID.String() {
		return nil, projectdomain.ErrNotFound
	}
	return &projectdomain.Detail{Project: p.project}, nil
}

func (p projects) List(context.Context, string) ([]projectdomain.Project, error) {
	return []projectdomain.Project{p.project}, nil
}

type tasks struct {
	taskdomain.Service
	items []taskdomain.Task
}

func (t tasks) ListByProject(context.Context, string) ([]taskdomain.Task, error) {
	return t.items, nil
}

type timeLogs struct {
	timetrackingdomain.Service
	mock.Mock
}

func (m *timeLogs) ListByUser(ctx context.Context, userID string, from, to *time.Time) ([]timetrackingdomain.TimeLog, error) {
	args := m.Called(userID, *from, *to)
	return args.Get(0).([]timetrackingdomain.TimeLog), args.Error(1)
}

func (m *timeLogs) ListByProject(ctx context.Context, projectID string) ([]timetrackingdomain.TimeLog, error) {
	args := m.Called(projectID)
	return args.Get(0).([]timetrackingdomain.TimeLog), args.Error(1)
}

type invoices struct {
	invoicedomain.Service
	invoice *invoicedomain.Invoice
}

func (i invoices) Get(context.Context, string) (*invoicedomain.Invoice, error) {
	if i.invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}
	return i.invoice, nil
}

type fixture struct {
	svc     *Service
	logs    *timeLogs
	user    *userdomain.User
	project projectdomain.Project
}

func newFixture(t *testing.T, invoice *invoicedomain.Invoice) *fixture {
	t.Helper()

	user := &userdomain.User{ID: 1, Name: "Ryan O'Neil", Role: "Installer", HourlyRate: 2500}
	project := projectdomain.Project{ID: 10, Name: "Kitchen Remodel", Budget: 500_000, CurrentSpend: 7500}
	logs := &timeLogs{}

	svc := New(Params{
		Log:        zap.NewNop(),
		Clock:      clock.NewFakeClock(time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)),
		Invoicing:  config.NewStaticInvoicingConfigHolder(config.DefaultInvoicingConfig()),
		Renderer:   pdf.New(),
		CompanySvc: companies{company: &companydomain.Company{ID: 7, Name: "Smith Construction", Currency: "USD", Timezone: "UTC"}},
		UserSvc:    users{byID: map[string]*userdomain.User{"1": user}},
		ProjectSvc: projects{project: project},
		TaskSvc:    tasks{items: []taskdomain.Task{{ProjectID: 10, Title: "Demo", Status: taskdomain.StatusDone}}},
		TimeSvc:    logs,
		InvoiceSvc: invoices{invoice: invoice},
	})
	return &fixture{svc: svc, logs: logs, user: user, project: project}
}

func TestServiceWeeklyPayrollQueriesCurrentWeek(t *testing.T) {
	f := newFixture(t, nil)
	weekStart := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	weekEnd := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	f.logs.On("ListByUser", "1", weekStart, weekEnd).Return([]timetrackingdomain.TimeLog{
		closedLog(1, 10, time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC), 3*time.Hour, 7500),
	}, nil).Twice()

	payroll, err := f.svc.WeeklyPayroll(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, int64(7500), payroll.TotalPay)

	doc, err := f.svc.WeeklyPayrollPDF(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Payroll_Report_Ryan_O_Neil_2024-03-04.pdf", doc.Filename)
	raw, err := io.ReadAll(doc.Content)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(raw[:4]))

	f.logs.AssertExpectations(t)
}

func TestServiceWeeklyPayrollWithoutLogs(t *testing.T) {
	f := newFixture(t, nil)
	f.logs.On("ListByUser", "1", mock.Anything, mock.Anything).Return([]timetrackingdomain.TimeLog{}, nil)

	_, err := f.svc.WeeklyPayrollPDF(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNoLogs)

	_, err = f.svc.WeeklyPayroll(context.Background(), "2")
	assert.ErrorIs(t, err, userdomain.ErrNotFound)
}

func TestServiceProjectReport(t *testing.T) {
	f := newFixture(t, nil)
	f.logs.On("ListByProject", "10").Return([]timetrackingdomain.TimeLog{
		closedLog(1, 10, time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC), 3*time.Hour, 7500),
	}, nil)

	summary, err := f.svc.ProjectSummary(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, int64(100), summary.CompletionPercent)
	assert.Equal(t, int64(492_500), summary.RemainingBudget)

	doc, err := f.svc.ProjectReportPDF(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, "Project_Report_Kitchen_Remodel.pdf", doc.Filename)

	_, err = f.svc.ProjectSummary(context.Background(), "11")
	assert.ErrorIs(t, err, projectdomain.ErrNotFound)
}

func TestServiceInvoicePDF(t *testing.T) {
	invoice := &invoicedomain.Invoice{
		ID:             snowflake.ID(99),
		ProjectID:      10,
		InvoiceNumber:  "10-001",
		Status:         invoicedomain.StatusDraft,
		IssueDate:      time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC),
		DueDate:        time.Date(2024, 4, 5, 12, 0, 0, 0, time.UTC),
		Currency:       "USD",
		SubtotalAmount: 8500,
		MarkupPercent:  decimal.NewFromInt(20),
		MarkupAmount:   1700,
		TotalAmount:    10200,
		LaborLineItems: []invoicedomain.LineItem{
			{Kind: invoicedomain.LineKindLabor, Description: "Labor: Ryan on 3/5/2024", Quantity: decimal.NewFromInt(2), UnitPrice: 2500, Total: 5000},
		},
		MaterialLineItems: []invoicedomain.LineItem{
			{Kind: invoicedomain.LineKindMaterial, Description: "2x4 Lumber", Quantity: decimal.NewFromInt(10), UnitPrice: 350, Total: 3500},
		},
	}
	f := newFixture(t, invoice)

	doc, err := f.svc.InvoicePDF(context.Background(), "99")
	require.NoError(t, err)
	assert.Equal(t, "Invoice_10_001.pdf", doc.Filename)
	raw, err := io.ReadAll(doc.Content)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(raw[:4]))
}
