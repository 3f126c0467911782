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
	"github.com/smallbiznis/constructtrack/internal/geo"
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
	"gorm.io/gorm"
)

const (
	transitionClockIn   = "clock_in"
	transitionClockOut  = "clock_out"
	transitionSwitchJob = "switch_job"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Cfg         config.Config
	Locker      lock.Locker
	Repo        timetrackingdomain.Repository
	UserRepo    userdomain.Repository
	ProjectRepo projectdomain.Repository
	Metrics     *metrics.Metrics    `optional:"true"`
	Audit       auditdomain.Service `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	geoTimeout  time.Duration
	locker      lock.Locker
	repo        timetrackingdomain.Repository
	userRepo    userdomain.Repository
	projectRepo projectdomain.Repository
	metrics     *metrics.Metrics
	engine      *metrics.EngineMetrics
	audit       auditdomain.Service
	tracer      trace.Tracer
}

func New(p Params) timetrackingdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("timetracking.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		geoTimeout:  p.Cfg.GeoLookupTimeout,
		locker:      p.Locker,
		repo:        p.Repo,
		userRepo:    p.UserRepo,
		projectRepo: p.ProjectRepo,
		metrics:     p.Metrics,
		engine:      metrics.Engine(),
		audit:       p.Audit,
		tracer:      otel.Tracer("constructtrack/timetracking"),
	}
}

func (s *Service) ClockIn(ctx context.Context, req timetrackingdomain.ClockInRequest) (log *timetrackingdomain.TimeLog, err error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "timetracking.ClockIn")
	defer func() { s.finish(span, metrics.OpClockIn, started, err) }()

	companyID, userID, err := s.resolveUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		return nil, timetrackingdomain.ErrInvalidTransition
	}
	projectID, err := parseID(req.ProjectID, timetrackingdomain.ErrInvalidProjectID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracing.SafeAttributes(attribute.String("user_id", userID.String()), attribute.String("project_id", projectID.String()))...)

	location := s.locate(ctx, req.Locator, userID)

	unlock, err := s.acquire(ctx, metrics.LockResourceUser, lock.UserKey(userID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.lockUser(ctx, tx, companyID, userID)
		if err != nil {
			return err
		}
		if user.IsClockedIn {
			return timetrackingdomain.ErrInvalidTransition
		}
		if err := s.ensureProject(ctx, tx, companyID, projectID); err != nil {
			return err
		}

		log, err = s.openLog(ctx, tx, user, projectID, location)
		if err != nil {
			return err
		}
		moved, err := s.userRepo.MarkClockedIn(ctx, tx, companyID, userID, log.ClockIn, projectID)
		if err != nil {
			return err
		}
		if !moved {
			return timetrackingdomain.ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("clocked in",
		zap.String("user_id", userID.String()),
		zap.String("project_id", projectID.String()),
		zap.String("time_log_id", log.ID.String()),
		zap.Bool("located", location != nil),
	)
	s.recordTransition(ctx, transitionClockIn, 0)
	s.auditLog(ctx, "time.clocked_in", log, map[string]any{"project_id": projectID.String()})
	return log, nil
}

func (s *Service) ClockOut(ctx context.Context, req timetrackingdomain.ClockOutRequest) (log *timetrackingdomain.TimeLog, err error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "timetracking.ClockOut")
	defer func() { s.finish(span, metrics.OpClockOut, started, err) }()

	companyID, userID, err := s.resolveUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	location := s.locate(ctx, req.Locator, userID)

	unlockUser, err := s.acquire(ctx, metrics.LockResourceUser, lock.UserKey(userID))
	if err != nil {
		return nil, err
	}
	defer unlockUser()

	projectID, err := s.currentProject(ctx, companyID, userID)
	if err != nil {
		return nil, err
	}
	unlockProject, err := s.acquire(ctx, metrics.LockResourceProject, lock.ProjectKey(projectID))
	if err != nil {
		return nil, err
	}
	defer unlockProject()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.lockUser(ctx, tx, companyID, userID)
		if err != nil {
			return err
		}
		if !user.IsClockedIn || *user.CurrentProjectID != projectID {
			return timetrackingdomain.ErrInvalidTransition
		}

		log, err = s.closeOpenLog(ctx, tx, user, s.clock.Now(), location)
		if err != nil {
			return err
		}
		out, err := s.userRepo.MarkClockedOut(ctx, tx, companyID, userID, *log.ClockOut)
		if err != nil {
			return err
		}
		if !out {
			return timetrackingdomain.ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("clocked out",
		zap.String("user_id", userID.String()),
		zap.String("project_id", projectID.String()),
		zap.String("time_log_id", log.ID.String()),
		zap.Int64("duration_ms", *log.DurationMs),
		zap.Int64("cost", *log.Cost),
	)
	s.recordTransition(ctx, transitionClockOut, *log.Cost)
	s.auditLog(ctx, "time.clocked_out", log, map[string]any{
		"project_id":  projectID.String(),
		"duration_ms": *log.DurationMs,
		"cost":        *log.Cost,
	})
	return log, nil
}

// SwitchJob closes the current session and opens one on another project in
// a single transaction, so the user always has exactly one open log.
func (s *Service) SwitchJob(ctx context.Context, req timetrackingdomain.SwitchJobRequest) (result *timetrackingdomain.SwitchResult, err error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "timetracking.SwitchJob")
	defer func() { s.finish(span, metrics.OpSwitchJob, started, err) }()

	companyID, userID, err := s.resolveUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.NewProjectID) == "" {
		return nil, timetrackingdomain.ErrInvalidTransition
	}
	newProjectID, err := parseID(req.NewProjectID, timetrackingdomain.ErrInvalidProjectID)
	if err != nil {
		return nil, err
	}
	location := s.locate(ctx, req.Locator, userID)

	unlockUser, err := s.acquire(ctx, metrics.LockResourceUser, lock.UserKey(userID))
	if err != nil {
		return nil, err
	}
	defer unlockUser()

	oldProjectID, err := s.currentProject(ctx, companyID, userID)
	if err != nil {
		return nil, err
	}
	if oldProjectID == newProjectID {
		return nil, timetrackingdomain.ErrSameProject
	}
	unlockProject, err := s.acquire(ctx, metrics.LockResourceProject, lock.ProjectKey(oldProjectID))
	if err != nil {
		return nil, err
	}
	defer unlockProject()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.lockUser(ctx, tx, companyID, userID)
		if err != nil {
			return err
		}
		if !user.IsClockedIn || *user.CurrentProjectID != oldProjectID {
			return timetrackingdomain.ErrInvalidTransition
		}
		if err := s.ensureProject(ctx, tx, companyID, newProjectID); err != nil {
			return err
		}

		closed, err := s.closeOpenLog(ctx, tx, user, s.clock.Now(), location)
		if err != nil {
			return err
		}
		opened, err := s.openLog(ctx, tx, user, newProjectID, location)
		if err != nil {
			return err
		}
		moved, err := s.userRepo.MoveToProject(ctx, tx, companyID, userID, opened.ClockIn, oldProjectID, newProjectID)
		if err != nil {
			return err
		}
		if !moved {
			return timetrackingdomain.ErrInvalidTransition
		}

		result = &timetrackingdomain.SwitchResult{Closed: *closed, Opened: *opened}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("switched job",
		zap.String("user_id", userID.String()),
		zap.String("from_project_id", oldProjectID.String()),
		zap.String("to_project_id", newProjectID.String()),
		zap.Int64("cost", *result.Closed.Cost),
	)
	s.recordTransition(ctx, transitionSwitchJob, *result.Closed.Cost)
	s.auditLog(ctx, "time.job_switched", &result.Opened, map[string]any{
		"closed_time_log_id": result.Closed.ID.String(),
		"from_project_id":    oldProjectID.String(),
		"to_project_id":      newProjectID.String(),
		"cost":               *result.Closed.Cost,
	})
	return result, nil
}

func (s *Service) OpenLog(ctx context.Context, userID string) (*timetrackingdomain.TimeLog, error) {
	companyID, uid, err := s.resolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.FindOpenByUser(ctx, s.db, companyID, uid)
}

func (s *Service) ListByUser(ctx context.Context, userID string, from, to *time.Time) ([]timetrackingdomain.TimeLog, error) {
	companyID, uid, err := s.resolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, s.db, timetrackingdomain.ListFilter{
		CompanyID: companyID,
		UserID:    &uid,
		From:      from,
		To:        to,
	})
}

func (s *Service) ListByProject(ctx context.Context, projectID string) ([]timetrackingdomain.TimeLog, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, timetrackingdomain.ErrInvalidCompany
	}
	pid, err := parseID(projectID, timetrackingdomain.ErrInvalidProjectID)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, s.db, timetrackingdomain.ListFilter{
		CompanyID: companyID,
		ProjectID: &pid,
	})
}

func (s *Service) openLog(ctx context.Context, tx *gorm.DB, user *userdomain.User, projectID snowflake.ID, location *geo.Location) (*timetrackingdomain.TimeLog, error) {
	now := s.clock.Now()
	log := &timetrackingdomain.TimeLog{
		ID:              s.genID.Generate(),
		CompanyID:       user.CompanyID,
		UserID:          user.ID,
		ProjectID:       projectID,
		ClockIn:         now,
		ClockInLocation: timetrackingdomain.EncodeLocation(location),
		CreatedAt:       now,
	}
	if err := s.repo.Insert(ctx, tx, log); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, timetrackingdomain.ErrInvalidTransition
		}
		return nil, err
	}
	return log, nil
}

// closeOpenLog prices the open session with the user's current rate and
// posts the cost to the project within tx.
func (s *Service) closeOpenLog(ctx context.Context, tx *gorm.DB, user *userdomain.User, at time.Time, location *geo.Location) (*timetrackingdomain.TimeLog, error) {
	log, err := s.repo.FindOpenByUser(ctx, tx, user.CompanyID, user.ID)
	if err != nil {
		return nil, err
	}
	if log == nil {
		s.log.Error("clocked in user has no open time log", zap.String("user_id", user.ID.String()))
		return nil, timetrackingdomain.ErrInvalidTransition
	}

	closure := computeClosure(log.ClockIn, at, user.HourlyRate)
	if closure.Skewed {
		s.log.Warn("clock skew detected, session clamped to zero",
			zap.String("time_log_id", log.ID.String()),
			zap.Time("clock_in", log.ClockIn),
			zap.Time("now", at),
		)
	}
	applyClosure(log, closure)
	log.ClockOutLocation = timetrackingdomain.EncodeLocation(location)

	closed, err := s.repo.Close(ctx, tx, log)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, timetrackingdomain.ErrInvalidTransition
	}

	found, err := s.projectRepo.IncrementSpend(ctx, tx, log.CompanyID, log.ProjectID, closure.Cost)
	if err != nil {
		return nil, err
	}
	if !found {
		s.log.Warn("session closed on a deleted project, spend not posted",
			zap.String("time_log_id", log.ID.String()),
			zap.String("project_id", log.ProjectID.String()),
		)
	}
	return log, nil
}

func (s *Service) lockUser(ctx context.Context, tx *gorm.DB, companyID, userID snowflake.ID) (*userdomain.User, error) {
	user, err := s.userRepo.FindByIDForUpdate(ctx, tx, companyID, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userdomain.ErrNotFound
	}
	if !user.ClockStateValid() {
		s.log.Error("user clock state is inconsistent", zap.String("user_id", userID.String()))
		return nil, timetrackingdomain.ErrInvalidTransition
	}
	return user, nil
}

// currentProject reads the project of the open session before the project
// lock is taken. The caller re-checks it inside the transaction.
func (s *Service) currentProject(ctx context.Context, companyID, userID snowflake.ID) (snowflake.ID, error) {
	user, err := s.userRepo.FindByID(ctx, s.db, companyID, userID)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, userdomain.ErrNotFound
	}
	if !user.IsClockedIn || user.CurrentProjectID == nil {
		return 0, timetrackingdomain.ErrInvalidTransition
	}
	return *user.CurrentProjectID, nil
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

func (s *Service) locate(ctx context.Context, locator geo.Locator, userID snowflake.ID) *geo.Location {
	location, err := geo.Resolve(ctx, locator, s.geoTimeout)
	if err != nil {
		s.log.Warn("location unavailable", zap.String("user_id", userID.String()), zap.Error(err))
		return nil
	}
	return location
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

func (s *Service) resolveUser(ctx context.Context, raw string) (snowflake.ID, snowflake.ID, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return 0, 0, timetrackingdomain.ErrInvalidCompany
	}
	userID, err := parseID(raw, timetrackingdomain.ErrInvalidUserID)
	if err != nil {
		return 0, 0, err
	}
	return companyID, userID, nil
}

func (s *Service) recordTransition(ctx context.Context, kind string, cost int64) {
	s.engine.IncClockTransition(kind)
	s.engine.AddLaborCost(cost)
	s.metrics.RecordClockTransition(ctx, kind, cost)
}

func (s *Service) finish(span trace.Span, op string, started time.Time, err error) {
	s.engine.ObserveOperation(op, started, err)
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) auditLog(ctx context.Context, action string, log *timetrackingdomain.TimeLog, metadata map[string]any) {
	if s.audit == nil || log == nil {
		return
	}
	target := log.ID.String()
	metadata["user_id"] = log.UserID.String()
	_ = s.audit.AuditLog(ctx, action, "time_log", &target, metadata)
}

func parseID(raw string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
