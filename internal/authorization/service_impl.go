package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/constructtrack/internal/audit/domain"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const actorSystem = "system"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	UserRepo userdomain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	userRepo userdomain.Repository
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		userRepo: p.UserRepo,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, companyID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	parsedCompanyID, err := snowflake.ParseString(strings.TrimSpace(companyID))
	if err != nil || parsedCompanyID == 0 {
		return ErrInvalidCompany
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	roleName, err := s.resolveRole(ctx, actor, parsedCompanyID)
	if err != nil {
		s.auditDecision(ctx, "authorization.denied", actor, object, action)
		return err
	}

	domain := fmt.Sprintf("company:%s", parsedCompanyID.String())
	if err := s.ensureGrouping(actor, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(actor, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("actor", actor),
			zap.String("role", roleName),
			zap.String("object", object),
			zap.String("action", action),
		)
		s.auditDecision(ctx, "authorization.denied", actor, object, action)
		return ErrForbidden
	}

	if shouldAuditGrant(action) {
		s.auditDecision(ctx, "authorization.granted", actor, object, action)
	}
	return nil
}

func (s *ServiceImpl) resolveRole(ctx context.Context, actor string, companyID snowflake.ID) (string, error) {
	if actor == actorSystem {
		return RoleSystem, nil
	}
	if !strings.HasPrefix(actor, "user:") {
		return "", ErrInvalidActor
	}
	userID, err := snowflake.ParseString(strings.TrimPrefix(actor, "user:"))
	if err != nil || userID == 0 {
		return "", ErrInvalidActor
	}

	user, err := s.userRepo.FindByID(ctx, s.db, companyID, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrForbidden
	}
	role := strings.ToLower(strings.TrimSpace(user.AccessRole))
	if !userdomain.IsValidAccessRole(role) {
		return "", ErrForbidden
	}
	return "role:" + role, nil
}

// ensureGrouping keeps exactly one role per subject and domain so an access
// role change takes effect on the next request.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDecision(ctx context.Context, event string, actor string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	target := "capability"
	_ = s.auditSvc.AuditLog(ctx, event, "authorization", &target, map[string]any{
		"object":  object,
		"action":  action,
		"subject": actor,
	})
}

func shouldAuditGrant(action string) bool {
	switch action {
	case ActionInvoiceGenerate, ActionInvoiceUpdate, ActionSnapshotImport, ActionUserManage:
		return true
	default:
		return false
	}
}

var employeePolicies = [][]string{
	{ObjectCompany, ActionCompanyView},
	{ObjectUser, ActionUserView},
	{ObjectProject, ActionProjectView},
	{ObjectProject, ActionPunchListManage},
	{ObjectProject, ActionPhotoUpload},
	{ObjectTask, ActionTaskView},
	{ObjectTimeLog, ActionTimeClock},
	{ObjectTimeLog, ActionTimeView},
	{ObjectInventory, ActionInventoryView},
	{ObjectMaterialLog, ActionMaterialLog},
	{ObjectMaterialLog, ActionMaterialView},
	{ObjectOrderList, ActionOrderListView},
	{ObjectOrderList, ActionOrderListManage},
}

var managerPolicies = [][]string{
	{ObjectUser, ActionUserManage},
	{ObjectProject, ActionProjectManage},
	{ObjectTask, ActionTaskManage},
	{ObjectInventory, ActionInventoryManage},
	{ObjectInvoice, ActionInvoiceView},
	{ObjectInvoice, ActionInvoiceGenerate},
	{ObjectInvoice, ActionInvoiceUpdate},
	{ObjectReport, ActionReportPayroll},
	{ObjectReport, ActionReportProject},
}

var allObjects = []string{
	ObjectCompany, ObjectUser, ObjectProject, ObjectTask, ObjectTimeLog,
	ObjectInventory, ObjectMaterialLog, ObjectOrderList, ObjectInvoice,
	ObjectReport, ObjectAuditLog, ObjectSnapshot,
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := make([][]string, 0, 64)
	for _, rule := range employeePolicies {
		policies = append(policies, []string{RoleEmployee, rule[0], rule[1]})
		policies = append(policies, []string{RoleManager, rule[0], rule[1]})
	}
	for _, rule := range managerPolicies {
		policies = append(policies, []string{RoleManager, rule[0], rule[1]})
	}
	for _, object := range allObjects {
		policies = append(policies, []string{RoleAdmin, object, "*"})
		policies = append(policies, []string{RoleSystem, object, "*"})
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
