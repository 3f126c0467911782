package migration

import (
	"fmt"

	auditdomain "github.com/smallbiznis/constructtrack/internal/audit/domain"
	companydomain "github.com/smallbiznis/constructtrack/internal/company/domain"
	inventorydomain "github.com/smallbiznis/constructtrack/internal/inventory/domain"
	invoicedomain "github.com/smallbiznis/constructtrack/internal/invoice/domain"
	"github.com/smallbiznis/constructtrack/internal/kvstore"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	taskdomain "github.com/smallbiznis/constructtrack/internal/task/domain"
	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&companydomain.Company{},
		&userdomain.User{},
		&projectdomain.Project{},
		&projectdomain.PunchListItem{},
		&projectdomain.Photo{},
		&taskdomain.Task{},
		&timetrackingdomain.TimeLog{},
		&inventorydomain.Item{},
		&inventorydomain.MaterialLog{},
		&inventorydomain.OrderListEntry{},
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
		&auditdomain.AuditLog{},
		&kvstore.Entry{},
	}
}

// AutoMigrate builds the schema from the models for SQLite and MySQL, where
// the embedded Postgres migrations do not apply.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return ensureOpenLogIndex(db)
}

// ensureOpenLogIndex enforces one open time log per user in storage.
// MySQL has no partial indexes, so it indexes a generated column that is
// only set while the log is open.
func ensureOpenLogIndex(db *gorm.DB) error {
	if db.Migrator().HasIndex(&timetrackingdomain.TimeLog{}, timetrackingdomain.OpenLogIndex) {
		return nil
	}

	var statements []string
	switch db.Dialector.Name() {
	case "mysql":
		statements = []string{
			`ALTER TABLE time_logs ADD COLUMN open_user_id BIGINT
			 GENERATED ALWAYS AS (CASE WHEN clock_out IS NULL THEN user_id ELSE NULL END) VIRTUAL`,
			`CREATE UNIQUE INDEX ` + timetrackingdomain.OpenLogIndex + ` ON time_logs (company_id, open_user_id)`,
		}
	default:
		statements = []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS ` + timetrackingdomain.OpenLogIndex +
				` ON time_logs (company_id, user_id) WHERE clock_out IS NULL`,
		}
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create %s: %w", timetrackingdomain.OpenLogIndex, err)
		}
	}
	return nil
}
