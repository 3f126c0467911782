package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/constructtrack/internal/audit/domain"
	"github.com/smallbiznis/constructtrack/internal/clock"
	"github.com/smallbiznis/constructtrack/internal/companycontext"
	"github.com/smallbiznis/constructtrack/internal/config"
	inventorydomain "github.com/smallbiznis/constructtrack/internal/inventory/domain"
	invoicedomain "github.com/smallbiznis/constructtrack/internal/invoice/domain"
	"github.com/smallbiznis/constructtrack/internal/invoice/format"
	"github.com/smallbiznis/constructtrack/internal/lock"
	"github.com/smallbiznis/constructtrack/internal/observability/metrics"
	"github.com/smallbiznis/constructtrack/internal/observability/tracing"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
	"github.com/smallbiznis/constructtrack/pkg/db"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Locker       lock.Locker
	Repo         invoicedomain.Repository
	ProjectRepo  projectdomain.Repository
	TimeLogRepo  timetrackingdomain.Repository
	MaterialRepo inventorydomain.Repository
	UserRepo     userdomain.Repository
	Invoicing    *config.InvoicingConfigHolder `optional:"true"`
	Metrics      *metrics.Metrics              `optional:"true"`
	AuditSvc     auditdomain.Service           `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	locker       lock.Locker
	repo         invoicedomain.Repository
	projectRepo  projectdomain.Repository
	timeLogRepo  timetrackingdomain.Repository
	materialRepo inventorydomain.Repository
	userRepo     userdomain.Repository
	invoicing    *config.InvoicingConfigHolder
	metrics      *metrics.Metrics
	engine       *metrics.EngineMetrics
	auditSvc     auditdomain.Service
	tracer       trace.Tracer
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		clock: p.Clock,

		locker:       p.Locker,
		repo:         p.Repo,
		projectRepo:  p.ProjectRepo,
		timeLogRepo:  p.TimeLogRepo,
		materialRepo: p.MaterialRepo,
		userRepo:     p.UserRepo,
		invoicing:    p.Invoicing,
		metrics:      p.Metrics,
		engine:       metrics.Engine(),
		auditSvc:     p.AuditSvc,
		tracer:       otel.Tracer("constructtrack/invoice"),
	}
}

// Generate bills every closed, unbilled time log and every unbilled material
// log of the project. The invoice and the claim on its sources commit
// together or not at all.
func (s *Service) Generate(ctx context.Context, projectID string) (invoice *invoicedomain.Invoice, err error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "invoice.Generate")
	defer func() { s.finish(span, metrics.OpGenerateInvoice, started, err) }()

	companyID, pid, err := s.resolveIDs(ctx, projectID, invoicedomain.ErrInvalidProjectID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracing.SafeAttributes(attribute.String("project_id", pid.String()))...)

	waitStarted := time.Now()
	unlock, err := s.locker.Lock(ctx, lock.ProjectKey(pid))
	s.engine.ObserveLockWait(metrics.LockResourceProject, time.Since(waitStarted))
	if err != nil {
		return nil, fmt.Errorf("acquire project lock: %w", err)
	}
	defer unlock()

	cfg := s.invoicing.Get()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := s.projectRepo.FindByID(ctx, tx, companyID, pid)
		if err != nil {
			return err
		}
		if project == nil {
			return projectdomain.ErrNotFound
		}

		timeLogs, err := s.timeLogRepo.ListUninvoiced(ctx, tx, companyID, pid)
		if err != nil {
			return err
		}
		materialLogs, err := s.materialRepo.ListUninvoiced(ctx, tx, companyID, pid)
		if err != nil {
			return err
		}
		if len(timeLogs) == 0 && len(materialLogs) == 0 {
			return invoicedomain.ErrNothingToInvoice
		}

		names, err := s.userNames(ctx, tx, companyID)
		if err != nil {
			return err
		}

		count, err := s.repo.CountByProject(ctx, tx, companyID, pid)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		seq := count + 1
		number, err := format.FormatInvoiceNumber(cfg.NumberTemplate, now, project.ID.String(), seq)
		if err != nil {
			return err
		}

		invoiceID := s.genID.Generate()
		built := buildInvoice(invoiceInput{
			ID:           invoiceID,
			Project:      *project,
			Number:       number,
			Sequence:     seq,
			IssuedAt:     now,
			DueDays:      cfg.DueDays,
			Currency:     cfg.Currency,
			TimeLogs:     timeLogs,
			MaterialLogs: materialLogs,
			UserNames:    names,
			NewID:        s.genID.Generate,
		})
		built.Metadata = datatypes.JSONMap{
			"time_logs":     len(timeLogs),
			"material_logs": len(materialLogs),
		}

		if err := s.repo.Insert(ctx, tx, &built); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return invoicedomain.ErrAlreadyInvoiced
			}
			return err
		}
		if err := s.claimSources(ctx, tx, companyID, invoiceID, timeLogs, materialLogs); err != nil {
			return err
		}

		invoice = &built
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice generated",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("project_id", pid.String()),
		zap.Int64("subtotal", invoice.SubtotalAmount),
		zap.Int64("total", invoice.TotalAmount),
	)
	s.engine.IncInvoiceGenerated(invoice.TotalAmount)
	s.metrics.RecordInvoiceGenerated(ctx, invoice.TotalAmount)
	s.emitAudit(ctx, "invoice.generated", invoice, map[string]any{
		"invoice_number": invoice.InvoiceNumber,
		"total_amount":   invoice.TotalAmount,
	})
	return invoice, nil
}

// claimSources stamps the invoice id on every source row. A row claimed by
// someone else in the meantime aborts the whole invoice.
func (s *Service) claimSources(ctx context.Context, tx *gorm.DB, companyID, invoiceID snowflake.ID, timeLogs []timetrackingdomain.TimeLog, materialLogs []inventorydomain.MaterialLog) error {
	timeIDs := make([]snowflake.ID, 0, len(timeLogs))
	for _, log := range timeLogs {
		timeIDs = append(timeIDs, log.ID)
	}
	claimed, err := s.timeLogRepo.MarkInvoiced(ctx, tx, companyID, timeIDs, invoiceID)
	if err != nil {
		return err
	}
	if claimed != int64(len(timeIDs)) {
		return invoicedomain.ErrAlreadyInvoiced
	}

	materialIDs := make([]snowflake.ID, 0, len(materialLogs))
	for _, log := range materialLogs {
		materialIDs = append(materialIDs, log.ID)
	}
	claimed, err = s.materialRepo.MarkInvoiced(ctx, tx, companyID, materialIDs, invoiceID)
	if err != nil {
		return err
	}
	if claimed != int64(len(materialIDs)) {
		return invoicedomain.ErrAlreadyInvoiced
	}
	return nil
}

// UpdateStatus accepts any of the four statuses from any other.
func (s *Service) UpdateStatus(ctx context.Context, id string, status invoicedomain.Status) (invoice *invoicedomain.Invoice, err error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "invoice.UpdateStatus")
	defer func() { s.finish(span, metrics.OpUpdateInvoice, started, err) }()

	companyID, invoiceID, err := s.resolveIDs(ctx, id, invoicedomain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, invoicedomain.ErrInvalidStatus
	}

	current, err := s.mustFind(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	previous := current.Status

	updated, err := s.repo.UpdateStatus(ctx, s.db, companyID, invoiceID, status, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, invoicedomain.ErrNotFound
	}

	invoice, err = s.load(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, "invoice.status_updated", invoice, map[string]any{
		"from": string(previous),
		"to":   string(status),
	})
	return invoice, nil
}

func (s *Service) Get(ctx context.Context, id string) (*invoicedomain.Invoice, error) {
	companyID, invoiceID, err := s.resolveIDs(ctx, id, invoicedomain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, companyID, invoiceID)
}

func (s *Service) List(ctx context.Context, projectID string) ([]invoicedomain.Invoice, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, invoicedomain.ErrInvalidCompany
	}

	var filter *snowflake.ID
	if strings.TrimSpace(projectID) != "" {
		pid, err := parseID(projectID, invoicedomain.ErrInvalidProjectID)
		if err != nil {
			return nil, err
		}
		filter = &pid
	}

	invoices, err := s.repo.List(ctx, s.db, companyID, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}
	items, err := s.repo.ListLineItems(ctx, s.db, companyID, ids)
	if err != nil {
		return nil, err
	}
	byInvoice := make(map[snowflake.ID][]invoicedomain.LineItem, len(invoices))
	for _, item := range items {
		byInvoice[item.InvoiceID] = append(byInvoice[item.InvoiceID], item)
	}
	for i := range invoices {
		invoices[i].Attach(byInvoice[invoices[i].ID])
	}
	return invoices, nil
}

func (s *Service) load(ctx context.Context, companyID, invoiceID snowflake.ID) (*invoicedomain.Invoice, error) {
	invoice, err := s.mustFind(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListLineItems(ctx, s.db, companyID, []snowflake.ID{invoiceID})
	if err != nil {
		return nil, err
	}
	invoice.Attach(items)
	return invoice, nil
}

func (s *Service) mustFind(ctx context.Context, companyID, invoiceID snowflake.ID) (*invoicedomain.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, s.db, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}
	return invoice, nil
}

func (s *Service) userNames(ctx context.Context, tx *gorm.DB, companyID snowflake.ID) (map[snowflake.ID]string, error) {
	users, err := s.userRepo.List(ctx, tx, companyID)
	if err != nil {
		return nil, err
	}
	names := make(map[snowflake.ID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}

func (s *Service) resolveIDs(ctx context.Context, raw string, invalid error) (snowflake.ID, snowflake.ID, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return 0, 0, invoicedomain.ErrInvalidCompany
	}
	id, err := parseID(raw, invalid)
	if err != nil {
		return 0, 0, err
	}
	return companyID, id, nil
}

func (s *Service) finish(span trace.Span, op string, started time.Time, err error) {
	s.engine.ObserveOperation(op, started, err)
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) emitAudit(ctx context.Context, action string, invoice *invoicedomain.Invoice, metadata map[string]any) {
	if s.auditSvc == nil || invoice == nil {
		return
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["project_id"] = invoice.ProjectID.String()
	target := invoice.ID.String()
	_ = s.auditSvc.AuditLog(ctx, action, "invoice", &target, metadata)
}

func parseID(raw string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
