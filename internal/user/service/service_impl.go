package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/constructtrack/internal/clock"
	"github.com/smallbiznis/constructtrack/internal/companycontext"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  userdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  userdomain.Repository
}

func New(p Params) userdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("user.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req userdomain.CreateRequest) (*userdomain.User, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, userdomain.ErrInvalidCompany
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, userdomain.ErrInvalidName
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		return nil, userdomain.ErrInvalidRole
	}
	accessRole := strings.ToLower(strings.TrimSpace(req.AccessRole))
	if accessRole == "" {
		accessRole = userdomain.AccessRoleEmployee
	}
	if !userdomain.IsValidAccessRole(accessRole) {
		return nil, userdomain.ErrInvalidAccessRole
	}
	if req.HourlyRate < 0 {
		return nil, userdomain.ErrInvalidHourlyRate
	}

	now := s.clock.Now()
	user := &userdomain.User{
		ID:         s.genID.Generate(),
		CompanyID:  companyID,
		Name:       name,
		Role:       role,
		AccessRole: accessRole,
		HourlyRate: req.HourlyRate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, user); err != nil {
		return nil, err
	}

	s.log.Info("user created", zap.String("user_id", user.ID.String()), zap.String("access_role", accessRole))
	return user, nil
}

func (s *Service) Update(ctx context.Context, req userdomain.UpdateRequest) (*userdomain.User, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, userdomain.ErrInvalidCompany
	}
	userID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || userID == 0 {
		return nil, userdomain.ErrInvalidID
	}

	user, err := s.repo.FindByID(ctx, s.db, companyID, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userdomain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, userdomain.ErrInvalidName
		}
		user.Name = name
	}
	if req.Role != nil {
		role := strings.TrimSpace(*req.Role)
		if role == "" {
			return nil, userdomain.ErrInvalidRole
		}
		user.Role = role
	}
	if req.AccessRole != nil {
		accessRole := strings.ToLower(strings.TrimSpace(*req.AccessRole))
		if !userdomain.IsValidAccessRole(accessRole) {
			return nil, userdomain.ErrInvalidAccessRole
		}
		user.AccessRole = accessRole
	}
	if req.HourlyRate != nil {
		if *req.HourlyRate < 0 {
			return nil, userdomain.ErrInvalidHourlyRate
		}
		user.HourlyRate = *req.HourlyRate
	}

	user.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateProfile(ctx, s.db, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id string) (*userdomain.User, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, userdomain.ErrInvalidCompany
	}
	userID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || userID == 0 {
		return nil, userdomain.ErrInvalidID
	}

	user, err := s.repo.FindByID(ctx, s.db, companyID, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userdomain.ErrNotFound
	}
	return user, nil
}

func (s *Service) List(ctx context.Context) ([]userdomain.User, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, userdomain.ErrInvalidCompany
	}
	return s.repo.List(ctx, s.db, companyID)
}
