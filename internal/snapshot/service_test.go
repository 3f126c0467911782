package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/constructtrack/internal/companycontext"
	inventorydomain "github.com/smallbiznis/constructtrack/internal/inventory/domain"
	invoicedomain "github.com/smallbiznis/constructtrack/internal/invoice/domain"
	"github.com/smallbiznis/constructtrack/internal/kvstore"
	"github.com/smallbiznis/constructtrack/internal/migration"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	taskdomain "github.com/smallbiznis/constructtrack/internal/task/domain"
	"github.com/smallbiznis/constructtrack/internal/testutil"
	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const companyID = snowflake.ID(1)

func setup(t *testing.T) (*Service, *gorm.DB, kvstore.Store) {
	t.Helper()
	db := testutil.OpenDB(t)
	require.NoError(t, migration.AutoMigrate(db))
	store := kvstore.NewGorm(db)
	return New(Params{DB: db, Log: zap.NewNop(), Store: store}), db, store
}

func ptr[T any](v T) *T { return &v }

func seedCompany(t *testing.T, db *gorm.DB) time.Time {
	t.Helper()
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	require.NoError(t, db.Create(&projectdomain.Project{
		ID: 10, CompanyID: companyID, Name: "Kitchen", Type: projectdomain.TypeRenovation,
		Status: projectdomain.StatusInProgress, Budget: 500000, CurrentSpend: 12550,
		MarkupPercent: decimal.NewFromInt(15), CreatedAt: at, UpdatedAt: at,
	}).Error)
	require.NoError(t, db.Create(&projectdomain.Project{
		ID: 11, CompanyID: companyID, Name: "Deck", Type: projectdomain.TypeNewConstruction,
		Status: projectdomain.StatusOnHold, CreatedAt: at, UpdatedAt: at,
	}).Error)
	require.NoError(t, db.Create(&userdomain.User{
		ID: 20, CompanyID: companyID, Name: "Ana", Role: "Carpenter",
		AccessRole: userdomain.AccessRoleEmployee, HourlyRate: 3000, CreatedAt: at, UpdatedAt: at,
	}).Error)
	require.NoError(t, db.Create(&projectdomain.PunchListItem{
		ID: 30, CompanyID: companyID, ProjectID: 10, Text: "Fix trim", CreatedAt: at, UpdatedAt: at,
	}).Error)
	require.NoError(t, db.Create(&projectdomain.Photo{
		ID: 40, CompanyID: companyID, ProjectID: 10, BlobKey: "proj-10-40",
		ContentType: "image/png", DateAdded: at,
	}).Error)
	require.NoError(t, db.Create(&projectdomain.Photo{
		ID: 41, CompanyID: companyID, ProjectID: 10, PunchListItemID: ptr(snowflake.ID(30)),
		BlobKey: "punch-10-30-41", ContentType: "image/jpeg", DateAdded: at,
	}).Error)
	require.NoError(t, db.Create(&taskdomain.Task{
		ID: 50, CompanyID: companyID, ProjectID: 10, AssigneeID: ptr(snowflake.ID(20)),
		Title: "Hang cabinets", Status: taskdomain.StatusToDo, CreatedAt: at, UpdatedAt: at,
	}).Error)
	require.NoError(t, db.Create(&timetrackingdomain.TimeLog{
		ID: 60, CompanyID: companyID, UserID: 20, ProjectID: 10, ClockIn: at,
		ClockOut: ptr(at.Add(90 * time.Minute)), DurationMs: ptr(int64(5400000)),
		Cost: ptr(int64(4500)), HourlyRate: ptr(int64(3000)), CreatedAt: at,
	}).Error)
	require.NoError(t, db.Create(&inventorydomain.Item{
		ID: 70, CompanyID: companyID, Name: "Screws", Quantity: decimal.RequireFromString("12.5"),
		Unit: "box", Cost: 899, LowStockThreshold: ptr(decimal.NewFromInt(5)), CreatedAt: at, UpdatedAt: at,
	}).Error)
	require.NoError(t, db.Create(&inventorydomain.OrderListEntry{
		ID: 70, CompanyID: companyID, InventoryItemID: ptr(snowflake.ID(70)), CreatedAt: at,
	}).Error)
	require.NoError(t, db.Create(&inventorydomain.OrderListEntry{
		ID: 71, CompanyID: companyID, Name: "Drywall mud", CreatedAt: at.Add(time.Minute),
	}).Error)
	require.NoError(t, db.Create(&inventorydomain.MaterialLog{
		ID: 80, CompanyID: companyID, ProjectID: 10, InventoryItemID: ptr(snowflake.ID(70)),
		Description: "Screws", QuantityUsed: decimal.NewFromInt(2), UnitCost: 899, CostAtTime: 1798,
		DateUsed: at,
	}).Error)
	require.NoError(t, db.Create(&invoicedomain.Invoice{
		ID: 90, CompanyID: companyID, ProjectID: 10, InvoiceNumber: "10-001", Sequence: 1,
		Status: invoicedomain.StatusDraft, IssueDate: at, DueDate: at.AddDate(0, 0, 30), Currency: "USD",
		SubtotalAmount: 6298, MarkupPercent: decimal.NewFromInt(15), MarkupAmount: 945, TotalAmount: 7243,
		CreatedAt: at, UpdatedAt: at,
	}).Error)
	require.NoError(t, db.Create(&[]invoicedomain.LineItem{
		{ID: 91, CompanyID: companyID, InvoiceID: 90, Kind: invoicedomain.LineKindLabor, Position: 0,
			Description: "Ana", Quantity: decimal.RequireFromString("1.5"), UnitPrice: 3000, Total: 4500,
			TimeLogID: ptr(snowflake.ID(60))},
		{ID: 92, CompanyID: companyID, InvoiceID: 90, Kind: invoicedomain.LineKindMaterial, Position: 1,
			Description: "Screws", Quantity: decimal.NewFromInt(2), UnitPrice: 899, Total: 1798,
			MaterialLogID: ptr(snowflake.ID(80))},
	}).Error)
	return at
}

func TestExportWritesCollections(t *testing.T) {
	svc, db, store := setup(t)
	seedCompany(t, db)
	ctx := companycontext.WithCompanyID(context.Background(), companyID)

	manifest, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		CollectionUsers:        1,
		CollectionProjects:     2,
		CollectionTasks:        1,
		CollectionTimeLogs:     1,
		CollectionInventory:    1,
		CollectionOrderList:    2,
		CollectionMaterialLogs: 1,
		CollectionInvoices:     1,
	}, manifest.Collections)

	raw, err := store.Get(ctx, Key(companyID, CollectionProjects))
	require.NoError(t, err)
	var projects []map[string]any
	require.NoError(t, json.Unmarshal(raw, &projects))
	require.Len(t, projects, 2)
	assert.Equal(t, "Kitchen", projects[0]["name"])
	assert.Equal(t, 5000.0, projects[0]["budget"])
	assert.Equal(t, 125.5, projects[0]["currentSpend"])
	assert.Len(t, projects[0]["photos"], 1)
	punch := projects[0]["punchList"].([]any)
	require.Len(t, punch, 1)
	assert.Len(t, punch[0].(map[string]any)["photos"], 1)
	assert.Empty(t, projects[1]["punchList"])

	orders, err := svc.Collection(ctx, CollectionOrderList)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"type":"inventory","itemId":"70","createdAt":"2026-03-02T08:00:00Z"},
		{"type":"manual","id":"71","name":"Drywall mud","createdAt":"2026-03-02T08:01:00Z"}
	]`, string(orders))

	invoices, err := svc.Collection(ctx, CollectionInvoices)
	require.NoError(t, err)
	var docs []map[string]any
	require.NoError(t, json.Unmarshal(invoices, &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, 72.43, docs[0]["totalAmount"])
	assert.Len(t, docs[0]["laborLineItems"], 1)
	assert.Len(t, docs[0]["materialLineItems"], 1)
}

func TestImportRestoresExportedData(t *testing.T) {
	svc, db, _ := setup(t)
	at := seedCompany(t, db)
	ctx := companycontext.WithCompanyID(context.Background(), companyID)

	_, err := svc.Export(ctx)
	require.NoError(t, err)

	require.NoError(t, db.Where("id = ?", 20).Delete(&userdomain.User{}).Error)
	require.NoError(t, db.Model(&projectdomain.Project{}).Where("id = ?", 10).Update("name", "Changed").Error)
	require.NoError(t, db.Create(&taskdomain.Task{
		ID: 51, CompanyID: companyID, ProjectID: 11, Title: "Stray", Status: taskdomain.StatusDone,
		CreatedAt: at, UpdatedAt: at,
	}).Error)

	manifest, err := svc.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, manifest.Collections[CollectionProjects])

	var users []userdomain.User
	require.NoError(t, db.Where("company_id = ?", companyID).Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, int64(3000), users[0].HourlyRate)

	var project projectdomain.Project
	require.NoError(t, db.First(&project, "id = ?", 10).Error)
	assert.Equal(t, "Kitchen", project.Name)
	assert.True(t, project.MarkupPercent.Equal(decimal.NewFromInt(15)))

	var tasks []taskdomain.Task
	require.NoError(t, db.Where("company_id = ?", companyID).Find(&tasks).Error)
	require.Len(t, tasks, 1)
	assert.Equal(t, snowflake.ID(50), tasks[0].ID)

	var photos []projectdomain.Photo
	require.NoError(t, db.Where("company_id = ?", companyID).Order("id ASC").Find(&photos).Error)
	require.Len(t, photos, 2)
	assert.Equal(t, "proj-10-40", photos[0].BlobKey)
	assert.Equal(t, "punch-10-30-41", photos[1].BlobKey)

	var log timetrackingdomain.TimeLog
	require.NoError(t, db.First(&log, "id = ?", 60).Error)
	require.NotNil(t, log.Cost)
	assert.Equal(t, int64(4500), *log.Cost)
	assert.True(t, log.ClockIn.Equal(at))

	var lines []invoicedomain.LineItem
	require.NoError(t, db.Where("invoice_id = ?", 90).Order("position ASC").Find(&lines).Error)
	require.Len(t, lines, 2)
	assert.Equal(t, invoicedomain.LineKindLabor, lines[0].Kind)
	assert.Equal(t, invoicedomain.LineKindMaterial, lines[1].Kind)
	assert.Equal(t, 1, lines[1].Position)

	var orders []inventorydomain.OrderListEntry
	require.NoError(t, db.Where("company_id = ?", companyID).Order("created_at ASC").Find(&orders).Error)
	require.Len(t, orders, 2)
	assert.Equal(t, "Drywall mud", orders[1].Name)
}

func TestImportWithoutSnapshot(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := companycontext.WithCompanyID(context.Background(), companyID)

	_, err := svc.Import(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestImportRejectsMalformedCollection(t *testing.T) {
	svc, _, store := setup(t)
	ctx := companycontext.WithCompanyID(context.Background(), companyID)
	require.NoError(t, store.Put(ctx, Key(companyID, CollectionUsers), []byte(`{"not":"an array"}`)))

	_, err := svc.Import(ctx)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestCollectionValidation(t *testing.T) {
	svc, _, _ := setup(t)

	_, err := svc.Collection(context.Background(), CollectionUsers)
	assert.ErrorIs(t, err, ErrInvalidCompany)

	ctx := companycontext.WithCompanyID(context.Background(), companyID)
	_, err = svc.Collection(ctx, "customers")
	assert.ErrorIs(t, err, ErrUnknownCollection)

	_, err = svc.Collection(ctx, CollectionTasks)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestImportRejectsInconsistentRecords(t *testing.T) {
	const (
		project = `[{"id":"10","name":"Kitchen","type":"Renovation","status":"In Progress","budget":5000,"currentSpend":0,"markupPercent":20,"punchList":[],"photos":[],"createdAt":"2026-03-02T08:00:00Z","updatedAt":"2026-03-02T08:00:00Z"}]`
		clockedIn = `[{"id":"20","name":"Ana","role":"Carpenter","isClockedIn":true,"hourlyRate":30,"clockInTime":"2026-03-02T08:00:00Z","currentProjectId":"10","createdAt":"2026-03-02T08:00:00Z","updatedAt":"2026-03-02T08:00:00Z"}]`
		clockedOut = `[{"id":"20","name":"Ana","role":"Carpenter","isClockedIn":false,"hourlyRate":30,"createdAt":"2026-03-02T08:00:00Z","updatedAt":"2026-03-02T08:00:00Z"}]`
		openLog = `[{"id":"60","userId":"20","projectId":"10","clockIn":"2026-03-02T08:00:00Z","createdAt":"2026-03-02T08:00:00Z"}]`
		invoice = `[{"id":"90","invoiceNumber":"10-001","sequence":1,"projectId":"10","issueDate":"2026-03-02T08:00:00Z","dueDate":"2026-04-01T08:00:00Z","status":"Draft","currency":"USD","subtotal":%s,"markupPercent":20,"markupAmount":%s,"totalAmount":%s,"laborLineItems":[],"materialLineItems":[{"id":"91","description":"Screws","quantity":2,"unitPrice":8.99,"total":17.98}],"createdAt":"2026-03-02T08:00:00Z","updatedAt":"2026-03-02T08:00:00Z"}]`
	)

	cases := map[string]map[string]string{
		"clocked in without open log": {
			CollectionProjects: project,
			CollectionUsers:    clockedIn,
			CollectionTimeLogs: `[]`,
		},
		"clocked in on another project": {
			CollectionProjects: project,
			CollectionUsers:    strings.Replace(clockedIn, `"currentProjectId":"10"`, `"currentProjectId":"11"`, 1),
			CollectionTimeLogs: openLog,
		},
		"open log for clocked out user": {
			CollectionProjects: project,
			CollectionUsers:    clockedOut,
			CollectionTimeLogs: openLog,
		},
		"negative stock": {
			CollectionInventory: `[{"id":"70","name":"Screws","quantity":-5,"unit":"box","cost":8.99,"createdAt":"2026-03-02T08:00:00Z","updatedAt":"2026-03-02T08:00:00Z"}]`,
		},
		"closed log without cost": {
			CollectionProjects: project,
			CollectionUsers:    clockedOut,
			CollectionTimeLogs: `[{"id":"60","userId":"20","projectId":"10","clockIn":"2026-03-02T08:00:00Z","clockOut":"2026-03-02T10:00:00Z","durationMs":7200000,"createdAt":"2026-03-02T08:00:00Z"}]`,
		},
		"invoice total off": {
			CollectionProjects: project,
			CollectionInvoices: fmt.Sprintf(invoice, "17.98", "3.60", "25.00"),
		},
		"invoice subtotal off": {
			CollectionProjects: project,
			CollectionInvoices: fmt.Sprintf(invoice, "20.00", "4.00", "24.00"),
		},
	}

	for name, collections := range cases {
		t.Run(name, func(t *testing.T) {
			svc, db, store := setup(t)
			ctx := companycontext.WithCompanyID(context.Background(), companyID)
			for collection, body := range collections {
				require.NoError(t, store.Put(ctx, Key(companyID, collection), []byte(body)))
			}

			_, err := svc.Import(ctx)
			assert.ErrorIs(t, err, ErrInvalidSnapshot)

			var users, items int64
			require.NoError(t, db.Model(&userdomain.User{}).Count(&users).Error)
			require.NoError(t, db.Model(&inventorydomain.Item{}).Count(&items).Error)
			assert.Zero(t, users)
			assert.Zero(t, items)
		})
	}
}

func TestImportAcceptsClockedInUserWithOpenLog(t *testing.T) {
	svc, db, store := setup(t)
	ctx := companycontext.WithCompanyID(context.Background(), companyID)
	require.NoError(t, store.Put(ctx, Key(companyID, CollectionProjects), []byte(`[{"id":"10","name":"Kitchen","type":"Renovation","status":"In Progress","budget":5000,"currentSpend":0,"markupPercent":20,"punchList":[],"photos":[],"createdAt":"2026-03-02T08:00:00Z","updatedAt":"2026-03-02T08:00:00Z"}]`)))
	require.NoError(t, store.Put(ctx, Key(companyID, CollectionUsers), []byte(`[{"id":"20","name":"Ana","role":"Carpenter","isClockedIn":true,"hourlyRate":30,"clockInTime":"2026-03-02T08:00:00Z","currentProjectId":"10","createdAt":"2026-03-02T08:00:00Z","updatedAt":"2026-03-02T08:00:00Z"}]`)))
	require.NoError(t, store.Put(ctx, Key(companyID, CollectionTimeLogs), []byte(`[{"id":"60","userId":"20","projectId":"10","clockIn":"2026-03-02T08:00:00Z","createdAt":"2026-03-02T08:00:00Z"}]`)))

	_, err := svc.Import(ctx)
	require.NoError(t, err)

	var open int64
	require.NoError(t, db.Model(&timetrackingdomain.TimeLog{}).Where("user_id = ? AND clock_out IS NULL", 20).Count(&open).Error)
	assert.Equal(t, int64(1), open)
}
