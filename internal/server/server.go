package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/constructtrack/internal/audit"
	auditdomain "github.com/smallbiznis/constructtrack/internal/audit/domain"
	"github.com/smallbiznis/constructtrack/internal/authorization"
	"github.com/smallbiznis/constructtrack/internal/company"
	companydomain "github.com/smallbiznis/constructtrack/internal/company/domain"
	"github.com/smallbiznis/constructtrack/internal/config"
	"github.com/smallbiznis/constructtrack/internal/inventory"
	inventorydomain "github.com/smallbiznis/constructtrack/internal/inventory/domain"
	"github.com/smallbiznis/constructtrack/internal/invoice"
	invoicedomain "github.com/smallbiznis/constructtrack/internal/invoice/domain"
	"github.com/smallbiznis/constructtrack/internal/observability"
	obslogger "github.com/smallbiznis/constructtrack/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/constructtrack/internal/observability/metrics"
	obstracing "github.com/smallbiznis/constructtrack/internal/observability/tracing"
	"github.com/smallbiznis/constructtrack/internal/project"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	"github.com/smallbiznis/constructtrack/internal/providers"
	"github.com/smallbiznis/constructtrack/internal/report"
	"github.com/smallbiznis/constructtrack/internal/snapshot"
	"github.com/smallbiznis/constructtrack/internal/task"
	taskdomain "github.com/smallbiznis/constructtrack/internal/task/domain"
	"github.com/smallbiznis/constructtrack/internal/timetracking"
	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
	"github.com/smallbiznis/constructtrack/internal/user"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	authorization.Module,
	audit.Module,
	company.Module,
	user.Module,
	project.Module,
	task.Module,
	timetracking.Module,
	inventory.Module,
	invoice.Module,
	providers.Module,
	report.Module,
	snapshot.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	companySvc   companydomain.Service
	userSvc      userdomain.Service
	projectSvc   projectdomain.Service
	taskSvc      taskdomain.Service
	timeSvc      timetrackingdomain.Service
	inventorySvc inventorydomain.Service
	invoiceSvc   invoicedomain.Service
	reportSvc    *report.Service
	snapshotSvc  *snapshot.Service
}

type ServerParams struct {
	fx.In

	Gin *gin.Engine
	Cfg config.Config
	Log *zap.Logger

	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service `optional:"true"`
	CompanySvc   companydomain.Service
	UserSvc      userdomain.Service
	ProjectSvc   projectdomain.Service
	TaskSvc      taskdomain.Service
	TimeSvc      timetrackingdomain.Service
	InventorySvc inventorydomain.Service
	InvoiceSvc   invoicedomain.Service
	ReportSvc    *report.Service   `optional:"true"`
	SnapshotSvc  *snapshot.Service `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		companySvc:   p.CompanySvc,
		userSvc:      p.UserSvc,
		projectSvc:   p.ProjectSvc,
		taskSvc:      p.TaskSvc,
		timeSvc:      p.TimeSvc,
		inventorySvc: p.InventorySvc,
		invoiceSvc:   p.InvoiceSvc,
		reportSvc:    p.ReportSvc,
		snapshotSvc:  p.SnapshotSvc,
	}

	svc.registerBootstrapRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerBootstrapRoutes() {
	s.engine.POST("/api/companies", s.ActorRequired(), s.SystemOnly(), s.CreateCompany)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.CompanyContext())
	api.Use(s.ActorRequired())

	api.GET("/company", s.authorize(authorization.ObjectCompany, authorization.ActionCompanyView), s.GetCurrentCompany)

	// -------- Users --------
	api.GET("/users", s.authorize(authorization.ObjectUser, authorization.ActionUserView), s.ListUsers)
	api.POST("/users", s.authorize(authorization.ObjectUser, authorization.ActionUserManage), s.CreateUser)
	api.GET("/users/:userId", s.authorize(authorization.ObjectUser, authorization.ActionUserView), s.GetUser)
	api.PATCH("/users/:userId", s.authorize(authorization.ObjectUser, authorization.ActionUserManage), s.UpdateUser)

	// -------- Time Tracking --------
	api.POST("/users/:userId/clock-in", s.authorizeSelf(authorization.ObjectTimeLog, authorization.ActionTimeClock), s.ClockIn)
	api.POST("/users/:userId/clock-out", s.authorizeSelf(authorization.ObjectTimeLog, authorization.ActionTimeClock), s.ClockOut)
	api.POST("/users/:userId/switch-job", s.authorizeSelf(authorization.ObjectTimeLog, authorization.ActionTimeClock), s.SwitchJob)
	api.GET("/users/:userId/open-log", s.authorize(authorization.ObjectTimeLog, authorization.ActionTimeView), s.GetOpenLog)
	api.GET("/users/:userId/time-logs", s.authorize(authorization.ObjectTimeLog, authorization.ActionTimeView), s.ListUserTimeLogs)

	// -------- Payroll --------
	api.GET("/users/:userId/payroll", s.authorize(authorization.ObjectReport, authorization.ActionReportPayroll), s.GetWeeklyPayroll)
	api.GET("/users/:userId/payroll/pdf", s.authorize(authorization.ObjectReport, authorization.ActionReportPayroll), s.DownloadWeeklyPayroll)

	// -------- Projects --------
	api.GET("/projects", s.authorize(authorization.ObjectProject, authorization.ActionProjectView), s.ListProjects)
	api.POST("/projects", s.authorize(authorization.ObjectProject, authorization.ActionProjectManage), s.CreateProject)
	api.GET("/projects/:projectId", s.authorize(authorization.ObjectProject, authorization.ActionProjectView), s.GetProject)
	api.PATCH("/projects/:projectId", s.authorize(authorization.ObjectProject, authorization.ActionProjectManage), s.UpdateProject)
	api.DELETE("/projects/:projectId", s.authorize(authorization.ObjectProject, authorization.ActionProjectManage), s.DeleteProject)

	api.POST("/projects/:projectId/punch-list", s.authorize(authorization.ObjectProject, authorization.ActionPunchListManage), s.AddPunchListItem)
	api.POST("/projects/:projectId/punch-list/:itemId/toggle", s.authorize(authorization.ObjectProject, authorization.ActionPunchListManage), s.TogglePunchListItem)
	api.POST("/projects/:projectId/punch-list/:itemId/photos", s.authorize(authorization.ObjectProject, authorization.ActionPhotoUpload), s.AddPunchListPhotos)
	api.PUT("/projects/:projectId/punch-list/:itemId/photos/:photoId", s.authorize(authorization.ObjectProject, authorization.ActionPhotoUpload), s.UpdatePunchListPhoto)

	api.POST("/projects/:projectId/photos", s.authorize(authorization.ObjectProject, authorization.ActionPhotoUpload), s.AddProjectPhotos)
	api.GET("/projects/:projectId/photos/:photoId", s.authorize(authorization.ObjectProject, authorization.ActionProjectView), s.GetPhoto)

	api.GET("/projects/:projectId/tasks", s.authorize(authorization.ObjectTask, authorization.ActionTaskView), s.ListProjectTasks)
	api.POST("/projects/:projectId/tasks", s.authorize(authorization.ObjectTask, authorization.ActionTaskManage), s.CreateTask)
	api.PATCH("/tasks/:taskId/status", s.authorize(authorization.ObjectTask, authorization.ActionTaskManage), s.UpdateTaskStatus)

	api.GET("/projects/:projectId/time-logs", s.authorize(authorization.ObjectTimeLog, authorization.ActionTimeView), s.ListProjectTimeLogs)

	// -------- Materials --------
	api.GET("/projects/:projectId/materials", s.authorize(authorization.ObjectMaterialLog, authorization.ActionMaterialView), s.ListMaterialLogs)
	api.POST("/projects/:projectId/materials", s.authorize(authorization.ObjectMaterialLog, authorization.ActionMaterialLog), s.LogInventoryUsage)
	api.POST("/projects/:projectId/receipts", s.authorize(authorization.ObjectMaterialLog, authorization.ActionMaterialLog), s.LogReceiptUsage)

	// -------- Reports --------
	api.GET("/projects/:projectId/summary", s.authorize(authorization.ObjectReport, authorization.ActionReportProject), s.GetProjectSummary)
	api.GET("/projects/:projectId/report/pdf", s.authorize(authorization.ObjectReport, authorization.ActionReportProject), s.DownloadProjectReport)

	// -------- Invoices --------
	api.POST("/projects/:projectId/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceGenerate), s.GenerateInvoice)
	api.GET("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.ListInvoices)
	api.GET("/invoices/:invoiceId", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.GetInvoice)
	api.PATCH("/invoices/:invoiceId/status", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceUpdate), s.UpdateInvoiceStatus)
	api.GET("/invoices/:invoiceId/pdf", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.DownloadInvoice)

	// -------- Inventory --------
	api.GET("/inventory", s.authorize(authorization.ObjectInventory, authorization.ActionInventoryView), s.ListInventoryItems)
	api.GET("/inventory/low-stock", s.authorize(authorization.ObjectInventory, authorization.ActionInventoryView), s.ListLowStockItems)
	api.POST("/inventory", s.authorize(authorization.ObjectInventory, authorization.ActionInventoryManage), s.CreateInventoryItem)
	api.GET("/inventory/:itemId", s.authorize(authorization.ObjectInventory, authorization.ActionInventoryView), s.GetInventoryItem)
	api.PATCH("/inventory/:itemId", s.authorize(authorization.ObjectInventory, authorization.ActionInventoryManage), s.UpdateInventoryItem)
	api.PUT("/inventory/:itemId/quantity", s.authorize(authorization.ObjectInventory, authorization.ActionInventoryManage), s.SetInventoryQuantity)
	api.POST("/inventory/:itemId/adjust", s.authorize(authorization.ObjectInventory, authorization.ActionInventoryManage), s.AdjustInventoryQuantity)

	// -------- Order List --------
	api.GET("/order-list", s.authorize(authorization.ObjectOrderList, authorization.ActionOrderListView), s.ListOrderList)
	api.POST("/order-list", s.authorize(authorization.ObjectOrderList, authorization.ActionOrderListManage), s.AddOrderListEntry)
	api.DELETE("/order-list", s.authorize(authorization.ObjectOrderList, authorization.ActionOrderListManage), s.ClearOrderList)
	api.DELETE("/order-list/:key", s.authorize(authorization.ObjectOrderList, authorization.ActionOrderListManage), s.RemoveOrderListEntry)

	// -------- Audit --------
	api.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)

	// -------- Snapshots --------
	api.POST("/snapshots/export", s.authorize(authorization.ObjectSnapshot, authorization.ActionSnapshotExport), s.ExportSnapshot)
	api.POST("/snapshots/import", s.authorize(authorization.ObjectSnapshot, authorization.ActionSnapshotImport), s.ImportSnapshot)
	api.GET("/snapshots/:collection", s.authorize(authorization.ObjectSnapshot, authorization.ActionSnapshotExport), s.GetSnapshotCollection)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}

func (s *Server) audit(c *gin.Context, action, targetType, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	target := targetID
	if err := s.auditSvc.AuditLog(c.Request.Context(), action, targetType, &target, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
