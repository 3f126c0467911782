package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/constructtrack/internal/clock"
	"github.com/smallbiznis/constructtrack/internal/companycontext"
	inventorydomain "github.com/smallbiznis/constructtrack/internal/inventory/domain"
	"github.com/smallbiznis/constructtrack/internal/inventory/repository"
	"github.com/smallbiznis/constructtrack/internal/kvstore"
	"github.com/smallbiznis/constructtrack/internal/lock"
	"github.com/smallbiznis/constructtrack/internal/photo"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	projectrepo "github.com/smallbiznis/constructtrack/internal/project/repository"
	"github.com/smallbiznis/constructtrack/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc       inventorydomain.Service
	repo      inventorydomain.Repository
	projects  projectdomain.Repository
	photos    *photo.Store
	db        *gorm.DB
	node      *snowflake.Node
	clock     *clock.FakeClock
	ctx       context.Context
	companyID snowflake.ID
}

func setup(t *testing.T) *fixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	conn := testutil.OpenDB(t,
		&projectdomain.Project{},
		&inventorydomain.Item{},
		&inventorydomain.MaterialLog{},
		&inventorydomain.OrderListEntry{},
		&kvstore.Entry{},
	)
	f := &fixture{
		repo:      repository.Provide(),
		projects:  projectrepo.Provide(),
		photos:    photo.NewStore(kvstore.NewGorm(conn)),
		db:        conn,
		node:      node,
		clock:     clock.NewFakeClock(time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)),
		companyID: node.Generate(),
	}
	f.ctx = companycontext.WithCompanyID(context.Background(), f.companyID)
	f.svc = New(Params{
		DB:          conn,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       f.clock,
		Locker:      lock.NewLocal(),
		Repo:        f.repo,
		ProjectRepo: f.projects,
		Photos:      f.photos,
	})
	return f
}

func (f *fixture) project(t *testing.T) *projectdomain.Project {
	t.Helper()
	now := f.clock.Now()
	p := &projectdomain.Project{
		ID:        f.node.Generate(),
		CompanyID: f.companyID,
		Name:      "Site",
		Type:      projectdomain.TypeNewConstruction,
		Status:    projectdomain.StatusInProgress,
		Budget:    100_000,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.projects.Insert(f.ctx, f.db, p))
	return p
}

func (f *fixture) item(t *testing.T, name string, qty string, cost int64, threshold *decimal.Decimal) *inventorydomain.Item {
	t.Helper()
	item, err := f.svc.CreateItem(f.ctx, inventorydomain.CreateItemRequest{
		Name:              name,
		Quantity:          decimal.RequireFromString(qty),
		Unit:              "pcs",
		Cost:              cost,
		LowStockThreshold: threshold,
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) spend(t *testing.T, projectID snowflake.ID) int64 {
	t.Helper()
	p, err := f.projects.FindByID(f.ctx, f.db, f.companyID, projectID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.CurrentSpend
}

func assertQuantity(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestLogUsageFromInventory(t *testing.T) {
	f := setup(t)
	p := f.project(t)
	item := f.item(t, "2x4 Lumber", "150", 350, nil)

	log, err := f.svc.LogUsageFromInventory(f.ctx, inventorydomain.InventoryUsageRequest{
		ProjectID: p.ID.String(),
		ItemID:    item.ID.String(),
		Quantity:  decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3500), log.CostAtTime)
	assert.Equal(t, int64(350), log.UnitCost)
	assert.Equal(t, "2x4 Lumber", log.Description)
	require.NotNil(t, log.InventoryItemID)
	assert.Equal(t, item.ID, *log.InventoryItemID)

	stored, err := f.svc.GetItem(f.ctx, item.ID.String())
	require.NoError(t, err)
	assertQuantity(t, "140", stored.Quantity)
	assert.Equal(t, int64(3500), f.spend(t, p.ID))

	logs, err := f.svc.ListMaterialLogs(f.ctx, p.ID.String())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, int64(3500), logs[0].CostAtTime)
}

func TestLogUsageKeepsFrozenCost(t *testing.T) {
	f := setup(t)
	p := f.project(t)
	item := f.item(t, "Drywall", "20", 1200, nil)

	_, err := f.svc.LogUsageFromInventory(f.ctx, inventorydomain.InventoryUsageRequest{
		ProjectID: p.ID.String(),
		ItemID:    item.ID.String(),
		Quantity:  decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	cost := int64(1500)
	_, err = f.svc.UpdateItem(f.ctx, inventorydomain.UpdateItemRequest{ID: item.ID.String(), Cost: &cost})
	require.NoError(t, err)

	logs, err := f.svc.ListMaterialLogs(f.ctx, p.ID.String())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, int64(2400), logs[0].CostAtTime)
	assert.Equal(t, int64(1200), logs[0].UnitCost)
}

func TestLogUsageFailuresLeaveNoTrace(t *testing.T) {
	f := setup(t)
	p := f.project(t)
	item := f.item(t, "Screws", "5", 10, nil)

	_, err := f.svc.LogUsageFromInventory(f.ctx, inventorydomain.InventoryUsageRequest{
		ProjectID: p.ID.String(),
		ItemID:    item.ID.String(),
		Quantity:  decimal.NewFromInt(6),
	})
	assert.ErrorIs(t, err, inventorydomain.ErrInsufficientStock)

	_, err = f.svc.LogUsageFromInventory(f.ctx, inventorydomain.InventoryUsageRequest{
		ProjectID: p.ID.String(),
		ItemID:    "777",
		Quantity:  decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, inventorydomain.ErrItemNotFound)

	_, err = f.svc.LogUsageFromInventory(f.ctx, inventorydomain.InventoryUsageRequest{
		ProjectID: "777",
		ItemID:    item.ID.String(),
		Quantity:  decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, projectdomain.ErrNotFound)

	_, err = f.svc.LogUsageFromInventory(f.ctx, inventorydomain.InventoryUsageRequest{
		ProjectID: p.ID.String(),
		ItemID:    item.ID.String(),
		Quantity:  decimal.Zero,
	})
	assert.ErrorIs(t, err, inventorydomain.ErrInvalidQuantity)

	stored, err := f.svc.GetItem(f.ctx, item.ID.String())
	require.NoError(t, err)
	assertQuantity(t, "5", stored.Quantity)
	assert.Equal(t, int64(0), f.spend(t, p.ID))

	logs, err := f.svc.ListMaterialLogs(f.ctx, p.ID.String())
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestConcurrentUsageNeverOverdraws(t *testing.T) {
	f := setup(t)
	p := f.project(t)
	item := f.item(t, "Anchors", "5", 100, nil)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.LogUsageFromInventory(f.ctx, inventorydomain.InventoryUsageRequest{
				ProjectID: p.ID.String(),
				ItemID:    item.ID.String(),
				Quantity:  decimal.NewFromInt(1),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, inventorydomain.ErrInsufficientStock)
	}
	assert.Equal(t, 5, succeeded)

	stored, err := f.svc.GetItem(f.ctx, item.ID.String())
	require.NoError(t, err)
	assertQuantity(t, "0", stored.Quantity)
	assert.Equal(t, int64(500), f.spend(t, p.ID))
}

func TestLogUsageFromReceiptPostsTotalOnce(t *testing.T) {
	f := setup(t)
	p := f.project(t)
	item := f.item(t, "Paint", "3", 2500, nil)

	logs, err := f.svc.LogUsageFromReceipt(f.ctx, inventorydomain.ReceiptUsageRequest{
		ProjectID: p.ID.String(),
		Lines: []inventorydomain.ReceiptLine{
			{Description: "Primer", Quantity: decimal.NewFromInt(2), UnitPrice: 1800, TotalPrice: cents(3600)},
			{Description: "Tape", Quantity: decimal.NewFromInt(3), UnitPrice: 450, TotalPrice: cents(1200)},
		},
		Receipt: &photo.Image{ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}},
	})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, int64(3600), logs[0].CostAtTime)
	assert.Equal(t, int64(1200), logs[1].CostAtTime)
	for _, log := range logs {
		assert.Nil(t, log.InventoryItemID)
		require.NotNil(t, log.ReceiptPhotoID)
	}
	assert.Equal(t, int64(4800), f.spend(t, p.ID))

	img, err := f.photos.Get(f.ctx, photo.ReceiptKey(*logs[0].ReceiptPhotoID))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.ContentType)

	stored, err := f.svc.GetItem(f.ctx, item.ID.String())
	require.NoError(t, err)
	assertQuantity(t, "3", stored.Quantity)
}

func TestLogUsageFromReceiptRejectsEmpty(t *testing.T) {
	f := setup(t)
	p := f.project(t)

	_, err := f.svc.LogUsageFromReceipt(f.ctx, inventorydomain.ReceiptUsageRequest{ProjectID: p.ID.String()})
	assert.ErrorIs(t, err, inventorydomain.ErrInvalidReceipt)

	_, err = f.svc.LogUsageFromReceipt(f.ctx, inventorydomain.ReceiptUsageRequest{
		ProjectID: "777",
		Lines:     []inventorydomain.ReceiptLine{{Description: "Nails", Quantity: decimal.NewFromInt(1), UnitPrice: 500, TotalPrice: cents(500)}},
	})
	assert.ErrorIs(t, err, projectdomain.ErrNotFound)
}

func TestLogUsageFromReceiptKeepsPrintedTotal(t *testing.T) {
	f := setup(t)
	p := f.project(t)

	logs, err := f.svc.LogUsageFromReceipt(f.ctx, inventorydomain.ReceiptUsageRequest{
		ProjectID: p.ID.String(),
		Lines: []inventorydomain.ReceiptLine{
			{Description: "Free sample", Quantity: decimal.NewFromInt(4), UnitPrice: 250, TotalPrice: cents(0)},
		},
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, int64(0), logs[0].CostAtTime)
	assert.Equal(t, int64(0), f.spend(t, p.ID))
}

func TestLogUsageFromReceiptRequiresTotal(t *testing.T) {
	f := setup(t)
	p := f.project(t)

	_, err := f.svc.LogUsageFromReceipt(f.ctx, inventorydomain.ReceiptUsageRequest{
		ProjectID: p.ID.String(),
		Lines: []inventorydomain.ReceiptLine{
			{Description: "Screws", Quantity: decimal.NewFromInt(2), UnitPrice: 300, TotalPrice: cents(600)},
			{Description: "Caulk", Quantity: decimal.NewFromInt(1), UnitPrice: 700},
		},
	})
	assert.ErrorIs(t, err, inventorydomain.ErrInvalidReceipt)

	_, err = f.svc.LogUsageFromReceipt(f.ctx, inventorydomain.ReceiptUsageRequest{
		ProjectID: p.ID.String(),
		Lines: []inventorydomain.ReceiptLine{
			{Description: "Refund", Quantity: decimal.NewFromInt(1), UnitPrice: 700, TotalPrice: cents(-700)},
		},
	})
	assert.ErrorIs(t, err, inventorydomain.ErrInvalidReceipt)
	assert.Equal(t, int64(0), f.spend(t, p.ID))
}

func cents(v int64) *int64 {
	return &v
}

func TestQuantityFloorsAtZero(t *testing.T) {
	f := setup(t)
	item := f.item(t, "Rebar", "4", 900, nil)

	adjusted, err := f.svc.AdjustQuantity(f.ctx, item.ID.String(), decimal.NewFromInt(-10))
	require.NoError(t, err)
	assertQuantity(t, "0", adjusted.Quantity)

	adjusted, err = f.svc.AdjustQuantity(f.ctx, item.ID.String(), decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	assertQuantity(t, "2.5", adjusted.Quantity)

	set, err := f.svc.SetQuantity(f.ctx, item.ID.String(), decimal.NewFromInt(-3))
	require.NoError(t, err)
	assertQuantity(t, "0", set.Quantity)

	_, err = f.svc.SetQuantity(f.ctx, "777", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, inventorydomain.ErrItemNotFound)
}

func TestListItemsAndLowStock(t *testing.T) {
	f := setup(t)
	threshold := decimal.NewFromInt(10)
	f.item(t, "Tile", "50", 300, &threshold)
	low := f.item(t, "Grout", "10", 800, &threshold)
	f.item(t, "Adhesive", "1", 1200, nil)

	items, err := f.svc.ListItems(f.ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"Adhesive", "Grout", "Tile"}, []string{items[0].Name, items[1].Name, items[2].Name})

	lowStock, err := f.svc.ListLowStock(f.ctx)
	require.NoError(t, err)
	require.Len(t, lowStock, 1)
	assert.Equal(t, low.ID, lowStock[0].ID)
	assert.True(t, lowStock[0].IsLowStock())
}

func TestOrderList(t *testing.T) {
	f := setup(t)
	item := f.item(t, "Caulk", "2", 600, nil)

	_, err := f.svc.AddToOrderList(f.ctx, item.ID.String())
	require.NoError(t, err)
	_, err = f.svc.AddToOrderList(f.ctx, item.ID.String())
	require.NoError(t, err)
	manual, err := f.svc.AddManualToOrderList(f.ctx, "Safety glasses")
	require.NoError(t, err)
	_, err = f.svc.AddManualToOrderList(f.ctx, "Safety glasses")
	require.NoError(t, err)

	_, err = f.svc.AddToOrderList(f.ctx, "777")
	assert.ErrorIs(t, err, inventorydomain.ErrItemNotFound)

	entries, err := f.svc.ListOrderList(f.ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	first, ok := entries[0].(inventorydomain.InventoryEntry)
	require.True(t, ok)
	assert.Equal(t, item.ID, first.ItemID)
	require.NotNil(t, first.Item)
	assert.Equal(t, "Caulk", inventorydomain.ViewOf(first).Name)

	parsed, err := inventorydomain.ParseOrderEntryKey(manual.Key())
	require.NoError(t, err)
	require.NoError(t, f.svc.RemoveFromOrderList(f.ctx, parsed))
	assert.NoError(t, f.svc.RemoveFromOrderList(f.ctx, parsed))
	assert.NoError(t, f.svc.RemoveFromOrderList(f.ctx, inventorydomain.ManualEntry{ID: 424242}))

	require.NoError(t, f.svc.RemoveFromOrderList(f.ctx, inventorydomain.InventoryEntry{ItemID: item.ID}))
	entries, err = f.svc.ListOrderList(f.ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	_, ok = entries[0].(inventorydomain.ManualEntry)
	assert.True(t, ok)

	require.NoError(t, f.svc.ClearOrderList(f.ctx))
	entries, err = f.svc.ListOrderList(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseOrderEntryKey(t *testing.T) {
	entry, err := inventorydomain.ParseOrderEntryKey("inventory:42")
	require.NoError(t, err)
	assert.Equal(t, inventorydomain.InventoryEntry{ItemID: 42}, entry)

	entry, err = inventorydomain.ParseOrderEntryKey("manual:7")
	require.NoError(t, err)
	assert.Equal(t, inventorydomain.ManualEntry{ID: 7}, entry)

	for _, raw := range []string{"", "inventory", "other:1", "manual:x", "manual:0"} {
		_, err := inventorydomain.ParseOrderEntryKey(raw)
		assert.ErrorIs(t, err, inventorydomain.ErrInvalidOrderEntry, raw)
	}
}
