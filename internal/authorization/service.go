package authorization

import (
	"context"
	"errors"
)

type Service interface {
	// Authorize checks whether actor may perform action on object inside the
	// company. actor is "system" or "user:<id>".
	Authorize(ctx context.Context, actor string, companyID string, object string, action string) error
}

var (
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidActor   = errors.New("invalid_actor")
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidObject  = errors.New("invalid_object")
	ErrInvalidAction  = errors.New("invalid_action")
)

const (
	RoleAdmin    = "role:admin"
	RoleManager  = "role:manager"
	RoleEmployee = "role:employee"
	RoleSystem   = "role:system"
)

const (
	ObjectCompany     = "company"
	ObjectUser        = "user"
	ObjectProject     = "project"
	ObjectTask        = "task"
	ObjectTimeLog     = "time_log"
	ObjectInventory   = "inventory"
	ObjectMaterialLog = "material_log"
	ObjectOrderList   = "order_list"
	ObjectInvoice     = "invoice"
	ObjectReport      = "report"
	ObjectAuditLog    = "audit_log"
	ObjectSnapshot    = "snapshot"
)

const (
	ActionCompanyView = "company.view"

	ActionUserView   = "user.view"
	ActionUserManage = "user.manage"

	ActionProjectView     = "project.view"
	ActionProjectManage   = "project.manage"
	ActionPunchListManage = "punch_list.manage"
	ActionPhotoUpload     = "photo.upload"

	ActionTaskView   = "task.view"
	ActionTaskManage = "task.manage"

	ActionTimeClock = "time.clock"
	ActionTimeView  = "time.view"

	ActionInventoryView   = "inventory.view"
	ActionInventoryManage = "inventory.manage"

	ActionMaterialLog  = "material.log"
	ActionMaterialView = "material.view"

	ActionOrderListView   = "order_list.view"
	ActionOrderListManage = "order_list.manage"

	ActionInvoiceView     = "invoice.view"
	ActionInvoiceGenerate = "invoice.generate"
	ActionInvoiceUpdate   = "invoice.update"

	ActionReportPayroll = "report.payroll"
	ActionReportProject = "report.project"

	ActionAuditLogView = "audit_log.view"

	ActionSnapshotExport = "snapshot.export"
	ActionSnapshotImport = "snapshot.import"
)
