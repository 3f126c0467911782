package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() userdomain.Repository {
	return &repo{}
}

const userColumns = `id, company_id, name, role, access_role, hourly_rate, is_clocked_in, clock_in_time, current_project_id, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, u *userdomain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.CompanyID,
		u.Name,
		u.Role,
		u.AccessRole,
		u.HourlyRate,
		u.IsClockedIn,
		u.ClockInTime,
		u.CurrentProjectID,
		u.CreatedAt,
		u.UpdatedAt,
	).Error
}

func (r *repo) UpdateProfile(ctx context.Context, db *gorm.DB, u *userdomain.User) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users
		 SET name = ?, role = ?, access_role = ?, hourly_rate = ?, updated_at = ?
		 WHERE company_id = ? AND id = ?`,
		u.Name,
		u.Role,
		u.AccessRole,
		u.HourlyRate,
		u.UpdatedAt,
		u.CompanyID,
		u.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*userdomain.User, error) {
	var user userdomain.User
	err := db.WithContext(ctx).Raw(
		`SELECT `+userColumns+` FROM users WHERE company_id = ? AND id = ?`,
		companyID,
		id,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*userdomain.User, error) {
	var user userdomain.User
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND id = ?", companyID, id).
		Limit(1).
		Find(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]userdomain.User, error) {
	var users []userdomain.User
	err := db.WithContext(ctx).Raw(
		`SELECT `+userColumns+` FROM users WHERE company_id = ? ORDER BY name ASC, id ASC`,
		companyID,
	).Scan(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM users WHERE company_id = ?`, companyID).Scan(&count).Error
	return count, err
}

func (r *repo) MarkClockedIn(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, at time.Time, projectID snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users
		 SET is_clocked_in = ?, clock_in_time = ?, current_project_id = ?, updated_at = ?
		 WHERE company_id = ? AND id = ? AND is_clocked_in = ?`,
		true, at, projectID, at,
		companyID, id, false,
	)
	return res.RowsAffected == 1, res.Error
}

func (r *repo) MarkClockedOut(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users
		 SET is_clocked_in = ?, clock_in_time = NULL, current_project_id = NULL, updated_at = ?
		 WHERE company_id = ? AND id = ? AND is_clocked_in = ?`,
		false, at,
		companyID, id, true,
	)
	return res.RowsAffected == 1, res.Error
}

func (r *repo) MoveToProject(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, at time.Time, fromProjectID, toProjectID snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users
		 SET clock_in_time = ?, current_project_id = ?, updated_at = ?
		 WHERE company_id = ? AND id = ? AND is_clocked_in = ? AND current_project_id = ?`,
		at, toProjectID, at,
		companyID, id, true, fromProjectID,
	)
	return res.RowsAffected == 1, res.Error
}
