package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() timetrackingdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, log *timetrackingdomain.TimeLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO time_logs (
			id, company_id, user_id, project_id, clock_in, clock_out, duration_ms,
			cost, hourly_rate, clock_skewed, clock_in_location, clock_out_location,
			invoice_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID,
		log.CompanyID,
		log.UserID,
		log.ProjectID,
		log.ClockIn,
		log.ClockOut,
		log.DurationMs,
		log.Cost,
		log.HourlyRate,
		log.ClockSkewed,
		log.ClockInLocation,
		log.ClockOutLocation,
		log.InvoiceID,
		log.CreatedAt,
	).Error
}

func (r *repo) FindOpenByUser(ctx context.Context, db *gorm.DB, companyID, userID snowflake.ID) (*timetrackingdomain.TimeLog, error) {
	var log timetrackingdomain.TimeLog
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND user_id = ? AND clock_out IS NULL", companyID, userID).
		Order("clock_in DESC").
		Limit(1).
		Find(&log).Error
	if err != nil {
		return nil, err
	}
	if log.ID == 0 {
		return nil, nil
	}
	return &log, nil
}

func (r *repo) Close(ctx context.Context, db *gorm.DB, log *timetrackingdomain.TimeLog) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE time_logs
		 SET clock_out = ?, duration_ms = ?, cost = ?, hourly_rate = ?, clock_skewed = ?, clock_out_location = ?
		 WHERE company_id = ? AND id = ? AND clock_out IS NULL`,
		log.ClockOut,
		log.DurationMs,
		log.Cost,
		log.HourlyRate,
		log.ClockSkewed,
		log.ClockOutLocation,
		log.CompanyID,
		log.ID,
	)
	return res.RowsAffected == 1, res.Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter timetrackingdomain.ListFilter) ([]timetrackingdomain.TimeLog, error) {
	var logs []timetrackingdomain.TimeLog
	stmt := db.WithContext(ctx).Model(&timetrackingdomain.TimeLog{}).
		Where("company_id = ?", filter.CompanyID)

	if filter.UserID != nil {
		stmt = stmt.Where("user_id = ?", *filter.UserID)
	}
	if filter.ProjectID != nil {
		stmt = stmt.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.From != nil {
		stmt = stmt.Where("clock_in >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		stmt = stmt.Where("clock_in < ?", filter.To.UTC())
	}
	if filter.Closed {
		stmt = stmt.Where("clock_out IS NOT NULL")
	}

	if err := stmt.Order("clock_in DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repo) ListUninvoiced(ctx context.Context, db *gorm.DB, companyID, projectID snowflake.ID) ([]timetrackingdomain.TimeLog, error) {
	var logs []timetrackingdomain.TimeLog
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND project_id = ? AND clock_out IS NOT NULL AND invoice_id IS NULL", companyID, projectID).
		Order("clock_in ASC, id ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repo) MarkInvoiced(ctx context.Context, db *gorm.DB, companyID snowflake.ID, ids []snowflake.ID, invoiceID snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE time_logs SET invoice_id = ?
		 WHERE company_id = ? AND id IN ? AND invoice_id IS NULL AND clock_out IS NOT NULL`,
		invoiceID,
		companyID,
		ids,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) CountOpen(ctx context.Context, db *gorm.DB, companyID, userID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM time_logs WHERE company_id = ? AND user_id = ? AND clock_out IS NULL`,
		companyID,
		userID,
	).Scan(&count).Error
	return count, err
}
