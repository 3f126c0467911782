package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/constructtrack/internal/clock"
	"github.com/smallbiznis/constructtrack/internal/companycontext"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	taskdomain "github.com/smallbiznis/constructtrack/internal/task/domain"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
	"github.com/smallbiznis/constructtrack/pkg/db/option"
	"github.com/smallbiznis/constructtrack/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	ProjectRepo projectdomain.Repository
	UserRepo    userdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	store       repository.Repository[taskdomain.Task]
	projectRepo projectdomain.Repository
	userRepo    userdomain.Repository
}

func New(p Params) taskdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("task.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		store:       repository.ProvideStore[taskdomain.Task](p.DB),
		projectRepo: p.ProjectRepo,
		userRepo:    p.UserRepo,
	}
}

func (s *Service) Create(ctx context.Context, req taskdomain.CreateRequest) (*taskdomain.Task, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, taskdomain.ErrInvalidCompany
	}
	projectID, err := snowflake.ParseString(strings.TrimSpace(req.ProjectID))
	if err != nil || projectID == 0 {
		return nil, taskdomain.ErrInvalidProject
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, taskdomain.ErrInvalidTitle
	}

	project, err := s.projectRepo.FindByID(ctx, s.db, companyID, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, projectdomain.ErrNotFound
	}

	var assigneeID *snowflake.ID
	if raw := strings.TrimSpace(req.AssigneeID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return nil, taskdomain.ErrInvalidAssignee
		}
		user, err := s.userRepo.FindByID(ctx, s.db, companyID, id)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, userdomain.ErrNotFound
		}
		assigneeID = &id
	}

	now := s.clock.Now()
	task := &taskdomain.Task{
		ID:          s.genID.Generate(),
		CompanyID:   companyID,
		ProjectID:   projectID,
		AssigneeID:  assigneeID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		DueDate:     req.DueDate,
		Status:      taskdomain.StatusToDo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status string) (*taskdomain.Task, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, taskdomain.ErrInvalidCompany
	}
	taskID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || taskID == 0 {
		return nil, taskdomain.ErrInvalidID
	}
	status = strings.TrimSpace(status)
	if !taskdomain.IsValidStatus(status) {
		return nil, taskdomain.ErrInvalidStatus
	}

	task, err := s.store.FindOne(ctx, &taskdomain.Task{ID: taskID, CompanyID: companyID})
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, taskdomain.ErrNotFound
	}

	task.Status = status
	task.UpdatedAt = s.clock.Now()
	if err := s.store.Update(ctx, task.ID, map[string]any{
		"status":     task.Status,
		"updated_at": task.UpdatedAt,
	}); err != nil {
		return nil, err
	}

	s.log.Info("task status updated", zap.String("task_id", task.ID.String()), zap.String("status", status))
	return task, nil
}

func (s *Service) ListByProject(ctx context.Context, projectID string) ([]taskdomain.Task, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, taskdomain.ErrInvalidCompany
	}
	pid, err := snowflake.ParseString(strings.TrimSpace(projectID))
	if err != nil || pid == 0 {
		return nil, taskdomain.ErrInvalidProject
	}

	items, err := s.store.Find(ctx,
		&taskdomain.Task{CompanyID: companyID, ProjectID: pid},
		option.ApplyOrder("created_at", false),
		option.ApplyOrder("id", false),
	)
	if err != nil {
		return nil, err
	}

	tasks := make([]taskdomain.Task, 0, len(items))
	for _, item := range items {
		tasks = append(tasks, *item)
	}
	return tasks, nil
}
