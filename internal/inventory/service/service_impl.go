package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/constructtrack/internal/audit/domain"
	"github.com/smallbiznis/constructtrack/internal/clock"
	"github.com/smallbiznis/constructtrack/internal/companycontext"
	inventorydomain "github.com/smallbiznis/constructtrack/internal/inventory/domain"
	"github.com/smallbiznis/constructtrack/internal/lock"
	"github.com/smallbiznis/constructtrack/internal/observability/metrics"
	"github.com/smallbiznis/constructtrack/internal/observability/tracing"
	"github.com/smallbiznis/constructtrack/internal/photo"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	"github.com/smallbiznis/constructtrack/pkg/money"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sourceInventory = "inventory"
	sourceReceipt   = "receipt"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Locker      lock.Locker
	Repo        inventorydomain.Repository
	ProjectRepo projectdomain.Repository
	Photos      *photo.Store
	Metrics     *metrics.Metrics    `optional:"true"`
	Audit       auditdomain.Service `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	locker      lock.Locker
	repo        inventorydomain.Repository
	projectRepo projectdomain.Repository
	photos      *photo.Store
	metrics     *metrics.Metrics
	engine      *metrics.EngineMetrics
	audit       auditdomain.Service
	tracer      trace.Tracer
}

func New(p Params) inventorydomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("inventory.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		locker:      p.Locker,
		repo:        p.Repo,
		projectRepo: p.ProjectRepo,
		photos:      p.Photos,
		metrics:     p.Metrics,
		engine:      metrics.Engine(),
		audit:       p.Audit,
		tracer:      otel.Tracer("constructtrack/inventory"),
	}
}

func (s *Service) CreateItem(ctx context.Context, req inventorydomain.CreateItemRequest) (*inventorydomain.Item, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, inventorydomain.ErrInvalidCompany
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, inventorydomain.ErrInvalidName
	}
	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		return nil, inventorydomain.ErrInvalidUnit
	}
	if req.Cost < 0 {
		return nil, inventorydomain.ErrInvalidCost
	}
	if req.LowStockThreshold != nil && req.LowStockThreshold.IsNegative() {
		return nil, inventorydomain.ErrInvalidThreshold
	}

	now := s.clock.Now()
	item := &inventorydomain.Item{
		ID:                s.genID.Generate(),
		CompanyID:         companyID,
		Name:              name,
		Quantity:          floorZero(req.Quantity),
		Unit:              unit,
		Cost:              req.Cost,
		LowStockThreshold: req.LowStockThreshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.InsertItem(ctx, s.db, item); err != nil {
		return nil, err
	}

	s.log.Info("inventory item created", zap.String("item_id", item.ID.String()), zap.String("quantity", item.Quantity.String()))
	s.auditLog(ctx, "inventory.item_created", "inventory_item", item.ID, map[string]any{"name": name, "quantity": item.Quantity.String()})
	return item, nil
}

func (s *Service) UpdateItem(ctx context.Context, req inventorydomain.UpdateItemRequest) (*inventorydomain.Item, error) {
	companyID, itemID, err := s.resolveIDs(ctx, req.ID, inventorydomain.ErrInvalidItemID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.acquire(ctx, metrics.LockResourceItem, lock.ItemKey(itemID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	item, err := s.mustFindItem(ctx, s.db, companyID, itemID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, inventorydomain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Unit != nil {
		unit := strings.TrimSpace(*req.Unit)
		if unit == "" {
			return nil, inventorydomain.ErrInvalidUnit
		}
		item.Unit = unit
	}
	if req.Cost != nil {
		if *req.Cost < 0 {
			return nil, inventorydomain.ErrInvalidCost
		}
		item.Cost = *req.Cost
	}
	switch {
	case req.ClearThreshold:
		item.LowStockThreshold = nil
	case req.LowStockThreshold != nil:
		if req.LowStockThreshold.IsNegative() {
			return nil, inventorydomain.ErrInvalidThreshold
		}
		item.LowStockThreshold = req.LowStockThreshold
	}

	item.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateItem(ctx, s.db, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) GetItem(ctx context.Context, id string) (*inventorydomain.Item, error) {
	companyID, itemID, err := s.resolveIDs(ctx, id, inventorydomain.ErrInvalidItemID)
	if err != nil {
		return nil, err
	}
	return s.mustFindItem(ctx, s.db, companyID, itemID)
}

func (s *Service) ListItems(ctx context.Context) ([]inventorydomain.Item, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, inventorydomain.ErrInvalidCompany
	}
	return s.repo.ListItems(ctx, s.db, companyID)
}

func (s *Service) ListLowStock(ctx context.Context) ([]inventorydomain.Item, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, inventorydomain.ErrInvalidCompany
	}
	return s.repo.ListLowStock(ctx, s.db, companyID)
}

// SetQuantity replaces the stock level. Negative values floor at zero.
func (s *Service) SetQuantity(ctx context.Context, id string, quantity decimal.Decimal) (*inventorydomain.Item, error) {
	return s.changeQuantity(ctx, id, func(decimal.Decimal) decimal.Decimal { return quantity })
}

// AdjustQuantity adds delta to the stock level, flooring at zero.
func (s *Service) AdjustQuantity(ctx context.Context, id string, delta decimal.Decimal) (*inventorydomain.Item, error) {
	return s.changeQuantity(ctx, id, func(current decimal.Decimal) decimal.Decimal { return current.Add(delta) })
}

func (s *Service) changeQuantity(ctx context.Context, id string, next func(decimal.Decimal) decimal.Decimal) (item *inventorydomain.Item, err error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "inventory.AdjustQuantity")
	defer func() { s.finish(span, metrics.OpAdjustInventory, started, err) }()

	companyID, itemID, err := s.resolveIDs(ctx, id, inventorydomain.ErrInvalidItemID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.acquire(ctx, metrics.LockResourceItem, lock.ItemKey(itemID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var previous decimal.Decimal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindItemForUpdate(ctx, tx, companyID, itemID)
		if err != nil {
			return err
		}
		if found == nil {
			return inventorydomain.ErrItemNotFound
		}
		previous = found.Quantity
		found.Quantity = floorZero(next(found.Quantity))
		found.UpdatedAt = s.clock.Now()
		if err := s.repo.SetItemQuantity(ctx, tx, companyID, itemID, found.Quantity, found.UpdatedAt); err != nil {
			return err
		}
		item = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	if item.IsLowStock() {
		s.log.Info("inventory item at or below low-stock threshold",
			zap.String("item_id", item.ID.String()),
			zap.String("quantity", item.Quantity.String()),
		)
	}
	s.auditLog(ctx, "inventory.quantity_adjusted", "inventory_item", item.ID, map[string]any{
		"from": previous.String(),
		"to":   item.Quantity.String(),
	})
	return item, nil
}

// LogUsageFromInventory deducts stock, records the frozen cost and posts it
// to the project in one transaction.
func (s *Service) LogUsageFromInventory(ctx context.Context, req inventorydomain.InventoryUsageRequest) (log *inventorydomain.MaterialLog, err error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "inventory.LogUsageFromInventory")
	defer func() { s.finish(span, metrics.OpUsageFromInventory, started, err) }()

	companyID, projectID, err := s.resolveIDs(ctx, req.ProjectID, inventorydomain.ErrInvalidProjectID)
	if err != nil {
		return nil, err
	}
	itemID, err := parseID(req.ItemID, inventorydomain.ErrInvalidItemID)
	if err != nil {
		return nil, err
	}
	if !req.Quantity.IsPositive() {
		return nil, inventorydomain.ErrInvalidQuantity
	}
	span.SetAttributes(tracing.SafeAttributes(attribute.String("project_id", projectID.String()), attribute.String("item_id", itemID.String()))...)

	unlockItem, err := s.acquire(ctx, metrics.LockResourceItem, lock.ItemKey(itemID))
	if err != nil {
		return nil, err
	}
	defer unlockItem()
	unlockProject, err := s.acquire(ctx, metrics.LockResourceProject, lock.ProjectKey(projectID))
	if err != nil {
		return nil, err
	}
	defer unlockProject()

	var remaining decimal.Decimal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureProject(ctx, tx, companyID, projectID); err != nil {
			return err
		}
		item, err := s.repo.FindItemForUpdate(ctx, tx, companyID, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return inventorydomain.ErrItemNotFound
		}
		if item.Quantity.LessThan(req.Quantity) {
			return inventorydomain.ErrInsufficientStock
		}

		now := s.clock.Now()
		remaining = item.Quantity.Sub(req.Quantity)
		if err := s.repo.SetItemQuantity(ctx, tx, companyID, itemID, remaining, now); err != nil {
			return err
		}

		log = &inventorydomain.MaterialLog{
			ID:              s.genID.Generate(),
			CompanyID:       companyID,
			ProjectID:       projectID,
			InventoryItemID: &item.ID,
			Description:     item.Name,
			QuantityUsed:    req.Quantity,
			UnitCost:        item.Cost,
			CostAtTime:      money.Extend(req.Quantity, item.Cost),
			DateUsed:        now,
		}
		if err := s.repo.InsertMaterialLogs(ctx, tx, []inventorydomain.MaterialLog{*log}); err != nil {
			return err
		}
		return s.postSpend(ctx, tx, companyID, projectID, log.CostAtTime)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("material used from inventory",
		zap.String("project_id", projectID.String()),
		zap.String("item_id", itemID.String()),
		zap.String("quantity", req.Quantity.String()),
		zap.String("remaining", remaining.String()),
		zap.Int64("cost", log.CostAtTime),
	)
	s.recordUsage(ctx, sourceInventory, 1, log.CostAtTime)
	s.auditLog(ctx, "material.used", "material_log", log.ID, map[string]any{
		"project_id": projectID.String(),
		"item_id":    itemID.String(),
		"quantity":   req.Quantity.String(),
		"cost":       log.CostAtTime,
	})
	return log, nil
}

// LogUsageFromReceipt records receipt lines without touching stock and
// posts their summed total to the project once.
func (s *Service) LogUsageFromReceipt(ctx context.Context, req inventorydomain.ReceiptUsageRequest) (logs []inventorydomain.MaterialLog, err error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "inventory.LogUsageFromReceipt")
	defer func() { s.finish(span, metrics.OpUsageFromReceipt, started, err) }()

	companyID, projectID, err := s.resolveIDs(ctx, req.ProjectID, inventorydomain.ErrInvalidProjectID)
	if err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, inventorydomain.ErrInvalidReceipt
	}
	for _, line := range req.Lines {
		if strings.TrimSpace(line.Description) == "" || line.Quantity.IsNegative() || line.UnitPrice < 0 ||
			line.TotalPrice == nil || *line.TotalPrice < 0 {
			return nil, inventorydomain.ErrInvalidReceipt
		}
	}

	receiptID, stored, err := s.storeReceipt(ctx, req)
	if err != nil {
		return nil, err
	}
	discard := func() {
		if stored == "" {
			return
		}
		if err := s.photos.Delete(ctx, stored); err != nil {
			s.log.Warn("failed to discard receipt image", zap.String("key", stored), zap.Error(err))
		}
	}

	unlock, err := s.acquire(ctx, metrics.LockResourceProject, lock.ProjectKey(projectID))
	if err != nil {
		discard()
		return nil, err
	}
	defer unlock()

	var total int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureProject(ctx, tx, companyID, projectID); err != nil {
			return err
		}

		now := s.clock.Now()
		logs = make([]inventorydomain.MaterialLog, 0, len(req.Lines))
		for _, line := range req.Lines {
			cost := *line.TotalPrice
			total += cost

			log := inventorydomain.MaterialLog{
				ID:           s.genID.Generate(),
				CompanyID:    companyID,
				ProjectID:    projectID,
				Description:  strings.TrimSpace(line.Description),
				QuantityUsed: line.Quantity,
				UnitCost:     line.UnitPrice,
				CostAtTime:   cost,
				DateUsed:     now,
			}
			if receiptID != "" {
				ref := receiptID
				log.ReceiptPhotoID = &ref
			}
			logs = append(logs, log)
		}
		if err := s.repo.InsertMaterialLogs(ctx, tx, logs); err != nil {
			return err
		}
		return s.postSpend(ctx, tx, companyID, projectID, total)
	})
	if err != nil {
		discard()
		return nil, err
	}

	s.log.Info("materials logged from receipt",
		zap.String("project_id", projectID.String()),
		zap.Int("lines", len(logs)),
		zap.Int64("total", total),
	)
	s.recordUsage(ctx, sourceReceipt, len(logs), total)
	s.auditLog(ctx, "material.receipt_logged", "project", projectID, map[string]any{
		"lines":            len(logs),
		"total":            total,
		"receipt_photo_id": receiptID,
	})
	return logs, nil
}

func (s *Service) ListMaterialLogs(ctx context.Context, projectID string) ([]inventorydomain.MaterialLog, error) {
	companyID, pid, err := s.resolveIDs(ctx, projectID, inventorydomain.ErrInvalidProjectID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListMaterialLogs(ctx, s.db, companyID, pid)
}

// storeReceipt returns the receipt id to reference and, when the image was
// written by this call, its blob key.
func (s *Service) storeReceipt(ctx context.Context, req inventorydomain.ReceiptUsageRequest) (string, string, error) {
	if req.Receipt == nil {
		return strings.TrimSpace(req.ReceiptPhotoID), "", nil
	}
	if err := req.Receipt.Validate(); err != nil {
		return "", "", err
	}
	receiptID := photo.NewReceiptID()
	key := photo.ReceiptKey(receiptID)
	if err := s.photos.Put(ctx, key, *req.Receipt); err != nil {
		return "", "", fmt.Errorf("store receipt: %w", err)
	}
	return receiptID, key, nil
}

func (s *Service) postSpend(ctx context.Context, tx *gorm.DB, companyID, projectID snowflake.ID, amount int64) error {
	found, err := s.projectRepo.IncrementSpend(ctx, tx, companyID, projectID, amount)
	if err != nil {
		return err
	}
	if !found {
		return projectdomain.ErrNotFound
	}
	return nil
}

func (s *Service) ensureProject(ctx context.Context, tx *gorm.DB, companyID, projectID snowflake.ID) error {
	project, err := s.projectRepo.FindByID(ctx, tx, companyID, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return projectdomain.ErrNotFound
	}
	return nil
}

func (s *Service) mustFindItem(ctx context.Context, conn *gorm.DB, companyID, itemID snowflake.ID) (*inventorydomain.Item, error) {
	item, err := s.repo.FindItem(ctx, conn, companyID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, inventorydomain.ErrItemNotFound
	}
	return item, nil
}

func (s *Service) acquire(ctx context.Context, resource, key string) (func(), error) {
	waitStarted := time.Now()
	unlock, err := s.locker.Lock(ctx, key)
	s.engine.ObserveLockWait(resource, time.Since(waitStarted))
	if err != nil {
		return nil, fmt.Errorf("acquire %s lock: %w", resource, err)
	}
	return unlock, nil
}

func (s *Service) resolveIDs(ctx context.Context, raw string, invalid error) (snowflake.ID, snowflake.ID, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return 0, 0, inventorydomain.ErrInvalidCompany
	}
	id, err := parseID(raw, invalid)
	if err != nil {
		return 0, 0, err
	}
	return companyID, id, nil
}

func (s *Service) recordUsage(ctx context.Context, source string, count int, cost int64) {
	s.engine.AddMaterialUsage(source, count)
	s.metrics.RecordMaterialUsage(ctx, source, count, cost)
}

func (s *Service) finish(span trace.Span, op string, started time.Time, err error) {
	s.engine.ObserveOperation(op, started, err)
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) auditLog(ctx context.Context, action, targetType string, targetID snowflake.ID, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	target := targetID.String()
	_ = s.audit.AuditLog(ctx, action, targetType, &target, metadata)
}

func floorZero(quantity decimal.Decimal) decimal.Decimal {
	if quantity.IsNegative() {
		return decimal.Zero
	}
	return quantity
}

func parseID(raw string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
