package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() projectdomain.Repository {
	return &repo{}
}

const projectColumns = `id, company_id, name, address, type, status, start_date, end_date, budget, current_spend, markup_percent, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *projectdomain.Project) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.CompanyID,
		p.Name,
		p.Address,
		p.Type,
		p.Status,
		p.StartDate,
		p.EndDate,
		p.Budget,
		p.CurrentSpend,
		p.MarkupPercent,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, p *projectdomain.Project) error {
	return db.WithContext(ctx).Exec(
		`UPDATE projects
		 SET name = ?, address = ?, type = ?, status = ?, start_date = ?, end_date = ?,
		     budget = ?, markup_percent = ?, updated_at = ?
		 WHERE company_id = ? AND id = ?`,
		p.Name,
		p.Address,
		p.Type,
		p.Status,
		p.StartDate,
		p.EndDate,
		p.Budget,
		p.MarkupPercent,
		p.UpdatedAt,
		p.CompanyID,
		p.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*projectdomain.Project, error) {
	var project projectdomain.Project
	err := db.WithContext(ctx).Raw(
		`SELECT `+projectColumns+` FROM projects WHERE company_id = ? AND id = ?`,
		companyID,
		id,
	).Scan(&project).Error
	if err != nil {
		return nil, err
	}
	if project.ID == 0 {
		return nil, nil
	}
	return &project, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, status string) ([]projectdomain.Project, error) {
	var projects []projectdomain.Project
	query := `SELECT ` + projectColumns + ` FROM projects WHERE company_id = ?`
	args := []any{companyID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	if err := db.WithContext(ctx).Raw(query, args...).Scan(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM projects WHERE company_id = ? AND id = ?`, companyID, id)
	return res.RowsAffected == 1, res.Error
}

func (r *repo) IncrementSpend(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, amount int64) (bool, error) {
	if amount < 0 {
		return false, projectdomain.ErrInvalidAmount
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE projects SET current_spend = current_spend + ? WHERE company_id = ? AND id = ?`,
		amount,
		companyID,
		id,
	)
	return res.RowsAffected == 1, res.Error
}

func (r *repo) InsertPunchListItem(ctx context.Context, db *gorm.DB, item *projectdomain.PunchListItem) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO punch_list_items (id, company_id, project_id, text, is_complete, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.CompanyID,
		item.ProjectID,
		item.Text,
		item.IsComplete,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) FindPunchListItem(ctx context.Context, db *gorm.DB, companyID, projectID, id snowflake.ID) (*projectdomain.PunchListItem, error) {
	var item projectdomain.PunchListItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_id, project_id, text, is_complete, created_at, updated_at
		 FROM punch_list_items
		 WHERE company_id = ? AND project_id = ? AND id = ?`,
		companyID,
		projectID,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) TogglePunchListItem(ctx context.Context, db *gorm.DB, item *projectdomain.PunchListItem) error {
	return db.WithContext(ctx).Exec(
		`UPDATE punch_list_items SET is_complete = ?, updated_at = ?
		 WHERE company_id = ? AND project_id = ? AND id = ?`,
		item.IsComplete,
		item.UpdatedAt,
		item.CompanyID,
		item.ProjectID,
		item.ID,
	).Error
}

func (r *repo) ListPunchListItems(ctx context.Context, db *gorm.DB, companyID, projectID snowflake.ID) ([]projectdomain.PunchListItem, error) {
	var items []projectdomain.PunchListItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_id, project_id, text, is_complete, created_at, updated_at
		 FROM punch_list_items
		 WHERE company_id = ? AND project_id = ?
		 ORDER BY created_at ASC, id ASC`,
		companyID,
		projectID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeletePunchListItems(ctx context.Context, db *gorm.DB, companyID, projectID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM punch_list_items WHERE company_id = ? AND project_id = ?`,
		companyID,
		projectID,
	).Error
}

func (r *repo) InsertPhotos(ctx context.Context, db *gorm.DB, photos []projectdomain.Photo) error {
	if len(photos) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&photos).Error
}

func (r *repo) UpdatePhoto(ctx context.Context, db *gorm.DB, photo *projectdomain.Photo) error {
	return db.WithContext(ctx).Exec(
		`UPDATE project_photos SET content_type = ?, date_added = ?
		 WHERE company_id = ? AND project_id = ? AND id = ?`,
		photo.ContentType,
		photo.DateAdded,
		photo.CompanyID,
		photo.ProjectID,
		photo.ID,
	).Error
}

func (r *repo) FindPhoto(ctx context.Context, db *gorm.DB, companyID, projectID, id snowflake.ID) (*projectdomain.Photo, error) {
	var photo projectdomain.Photo
	err := db.WithContext(ctx).
		Where("company_id = ? AND project_id = ? AND id = ?", companyID, projectID, id).
		Limit(1).
		Find(&photo).Error
	if err != nil {
		return nil, err
	}
	if photo.ID == 0 {
		return nil, nil
	}
	return &photo, nil
}

// ListPhotos returns the newest batch first.
func (r *repo) ListPhotos(ctx context.Context, db *gorm.DB, companyID, projectID snowflake.ID) ([]projectdomain.Photo, error) {
	var photos []projectdomain.Photo
	err := db.WithContext(ctx).
		Where("company_id = ? AND project_id = ?", companyID, projectID).
		Order("date_added DESC, id ASC").
		Find(&photos).Error
	if err != nil {
		return nil, err
	}
	return photos, nil
}

func (r *repo) DeletePhotos(ctx context.Context, db *gorm.DB, companyID, projectID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM project_photos WHERE company_id = ? AND project_id = ?`,
		companyID,
		projectID,
	).Error
}
