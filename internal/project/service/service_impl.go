package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/constructtrack/internal/audit/domain"
	"github.com/smallbiznis/constructtrack/internal/clock"
	companydomain "github.com/smallbiznis/constructtrack/internal/company/domain"
	"github.com/smallbiznis/constructtrack/internal/companycontext"
	"github.com/smallbiznis/constructtrack/internal/config"
	"github.com/smallbiznis/constructtrack/internal/photo"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      projectdomain.Repository
	Photos    *photo.Store
	Companies companydomain.Service         `optional:"true"`
	Invoicing *config.InvoicingConfigHolder `optional:"true"`
	Audit     auditdomain.Service           `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      projectdomain.Repository
	photos    *photo.Store
	companies companydomain.Service
	invoicing *config.InvoicingConfigHolder
	audit     auditdomain.Service
}

func New(p Params) projectdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("project.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		photos:    p.Photos,
		companies: p.Companies,
		invoicing: p.Invoicing,
		audit:     p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req projectdomain.CreateRequest) (*projectdomain.Project, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, projectdomain.ErrInvalidCompany
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, projectdomain.ErrInvalidName
	}
	projectType := strings.TrimSpace(req.Type)
	if projectType == "" {
		projectType = projectdomain.TypeNewConstruction
	}
	if !projectdomain.IsValidType(projectType) {
		return nil, projectdomain.ErrInvalidType
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = projectdomain.StatusInProgress
	}
	if !projectdomain.IsValidStatus(status) {
		return nil, projectdomain.ErrInvalidStatus
	}
	if req.Budget < 0 {
		return nil, projectdomain.ErrInvalidBudget
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return nil, projectdomain.ErrInvalidDateRange
	}

	markup := s.defaultMarkup(ctx)
	if req.MarkupPercent != nil {
		markup = *req.MarkupPercent
	}
	if markup.IsNegative() {
		return nil, projectdomain.ErrInvalidMarkup
	}

	now := s.clock.Now()
	project := &projectdomain.Project{
		ID:            s.genID.Generate(),
		CompanyID:     companyID,
		Name:          name,
		Address:       strings.TrimSpace(req.Address),
		Type:          projectType,
		Status:        status,
		StartDate:     utcPtr(req.StartDate),
		EndDate:       utcPtr(req.EndDate),
		Budget:        req.Budget,
		MarkupPercent: markup,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, project); err != nil {
		return nil, err
	}

	s.log.Info("project created", zap.String("project_id", project.ID.String()), zap.String("markup_percent", markup.String()))
	s.auditLog(ctx, "project.created", project.ID, map[string]any{"name": name, "budget": req.Budget})
	return project, nil
}

func (s *Service) Update(ctx context.Context, req projectdomain.UpdateRequest) (*projectdomain.Project, error) {
	companyID, projectID, err := s.resolveIDs(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	project, err := s.mustFind(ctx, s.db, companyID, projectID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, projectdomain.ErrInvalidName
		}
		project.Name = name
	}
	if req.Address != nil {
		project.Address = strings.TrimSpace(*req.Address)
	}
	if req.Type != nil {
		if !projectdomain.IsValidType(strings.TrimSpace(*req.Type)) {
			return nil, projectdomain.ErrInvalidType
		}
		project.Type = strings.TrimSpace(*req.Type)
	}
	if req.Status != nil {
		if !projectdomain.IsValidStatus(strings.TrimSpace(*req.Status)) {
			return nil, projectdomain.ErrInvalidStatus
		}
		project.Status = strings.TrimSpace(*req.Status)
	}
	if req.StartDate != nil {
		project.StartDate = utcPtr(req.StartDate)
	}
	if req.EndDate != nil {
		project.EndDate = utcPtr(req.EndDate)
	}
	if project.StartDate != nil && project.EndDate != nil && project.EndDate.Before(*project.StartDate) {
		return nil, projectdomain.ErrInvalidDateRange
	}
	if req.Budget != nil {
		if *req.Budget < 0 {
			return nil, projectdomain.ErrInvalidBudget
		}
		project.Budget = *req.Budget
	}
	if req.MarkupPercent != nil {
		if req.MarkupPercent.IsNegative() {
			return nil, projectdomain.ErrInvalidMarkup
		}
		project.MarkupPercent = *req.MarkupPercent
	}

	project.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *Service) Get(ctx context.Context, id string) (*projectdomain.Detail, error) {
	companyID, projectID, err := s.resolveIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	project, err := s.mustFind(ctx, s.db, companyID, projectID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListPunchListItems(ctx, s.db, companyID, projectID)
	if err != nil {
		return nil, err
	}
	photos, err := s.repo.ListPhotos(ctx, s.db, companyID, projectID)
	if err != nil {
		return nil, err
	}

	byItem := make(map[snowflake.ID][]projectdomain.Photo)
	projectPhotos := make([]projectdomain.Photo, 0, len(photos))
	for _, p := range photos {
		if p.PunchListItemID != nil {
			byItem[*p.PunchListItemID] = append(byItem[*p.PunchListItemID], p)
			continue
		}
		projectPhotos = append(projectPhotos, p)
	}

	punchList := make([]projectdomain.PunchListItemView, 0, len(items))
	for _, item := range items {
		view := projectdomain.PunchListItemView{PunchListItem: item, Photos: byItem[item.ID]}
		if view.Photos == nil {
			view.Photos = []projectdomain.Photo{}
		}
		punchList = append(punchList, view)
	}

	return &projectdomain.Detail{
		Project:   *project,
		PunchList: punchList,
		Photos:    projectPhotos,
	}, nil
}

func (s *Service) List(ctx context.Context, status string) ([]projectdomain.Project, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, projectdomain.ErrInvalidCompany
	}
	status = strings.TrimSpace(status)
	if status != "" && !projectdomain.IsValidStatus(status) {
		return nil, projectdomain.ErrInvalidStatus
	}
	return s.repo.List(ctx, s.db, companyID, status)
}

// Delete removes the project with its punch list and photos. Time logs,
// material logs and invoices keep their project id.
func (s *Service) Delete(ctx context.Context, id string) error {
	companyID, projectID, err := s.resolveIDs(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeletePhotos(ctx, tx, companyID, projectID); err != nil {
			return err
		}
		if err := s.repo.DeletePunchListItems(ctx, tx, companyID, projectID); err != nil {
			return err
		}
		deleted, err := s.repo.Delete(ctx, tx, companyID, projectID)
		if err != nil {
			return err
		}
		if !deleted {
			return projectdomain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	removed, err := s.photos.DeleteProject(ctx, projectID)
	if err != nil {
		s.log.Warn("failed to delete project photo blobs", zap.String("project_id", projectID.String()), zap.Error(err))
	}
	s.log.Info("project deleted", zap.String("project_id", projectID.String()), zap.Int64("blobs_removed", removed))
	s.auditLog(ctx, "project.deleted", projectID, nil)
	return nil
}

func (s *Service) AddPunchListItem(ctx context.Context, projectID string, text string) (*projectdomain.PunchListItem, error) {
	companyID, pid, err := s.resolveIDs(ctx, projectID)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, projectdomain.ErrInvalidText
	}
	if _, err := s.mustFind(ctx, s.db, companyID, pid); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	item := &projectdomain.PunchListItem{
		ID:        s.genID.Generate(),
		CompanyID: companyID,
		ProjectID: pid,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertPunchListItem(ctx, s.db, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) TogglePunchListItem(ctx context.Context, projectID string, itemID string) (*projectdomain.PunchListItem, error) {
	companyID, pid, err := s.resolveIDs(ctx, projectID)
	if err != nil {
		return nil, err
	}
	iid, err := parseID(itemID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindPunchListItem(ctx, s.db, companyID, pid, iid)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, projectdomain.ErrItemNotFound
	}

	item.IsComplete = !item.IsComplete
	item.UpdatedAt = s.clock.Now()
	if err := s.repo.TogglePunchListItem(ctx, s.db, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) AddPhotos(ctx context.Context, req projectdomain.AddPhotosRequest) ([]projectdomain.Photo, error) {
	companyID, pid, err := s.resolveIDs(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.mustFind(ctx, s.db, companyID, pid); err != nil {
		return nil, err
	}
	return s.storePhotos(ctx, companyID, pid, nil, req)
}

func (s *Service) AddPunchListPhotos(ctx context.Context, req projectdomain.AddPhotosRequest) ([]projectdomain.Photo, error) {
	companyID, pid, err := s.resolveIDs(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	iid, err := parseID(req.PunchListItemID)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.FindPunchListItem(ctx, s.db, companyID, pid, iid)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, projectdomain.ErrItemNotFound
	}
	return s.storePhotos(ctx, companyID, pid, &item.ID, req)
}

// storePhotos writes blobs first so metadata never points at a missing
// image. Blobs of a failed batch are removed again.
func (s *Service) storePhotos(ctx context.Context, companyID, projectID snowflake.ID, itemID *snowflake.ID, req projectdomain.AddPhotosRequest) ([]projectdomain.Photo, error) {
	if len(req.Images) == 0 {
		return nil, projectdomain.ErrNoImages
	}
	for _, img := range req.Images {
		if err := img.Validate(); err != nil {
			return nil, err
		}
	}

	addedAt := s.clock.Now()
	description := strings.TrimSpace(req.Description)
	photos := make([]projectdomain.Photo, 0, len(req.Images))
	for _, img := range req.Images {
		id := s.genID.Generate()
		key := photo.ProjectPhotoKey(projectID, id)
		if itemID != nil {
			key = photo.PunchListPhotoKey(projectID, *itemID, id)
		}
		if err := s.photos.Put(ctx, key, img); err != nil {
			s.discardBlobs(ctx, photos)
			return nil, err
		}
		photos = append(photos, projectdomain.Photo{
			ID:              id,
			CompanyID:       companyID,
			ProjectID:       projectID,
			PunchListItemID: itemID,
			Description:     description,
			BlobKey:         key,
			ContentType:     img.ContentType,
			DateAdded:       addedAt,
		})
	}

	if err := s.repo.InsertPhotos(ctx, s.db, photos); err != nil {
		s.discardBlobs(ctx, photos)
		return nil, err
	}

	s.log.Info("photos added",
		zap.String("project_id", projectID.String()),
		zap.Int("count", len(photos)),
		zap.Bool("punch_list", itemID != nil),
	)
	return photos, nil
}

func (s *Service) UpdatePunchListPhoto(ctx context.Context, projectID, itemID, photoID string, image photo.Image) (*projectdomain.Photo, error) {
	companyID, pid, err := s.resolveIDs(ctx, projectID)
	if err != nil {
		return nil, err
	}
	iid, err := parseID(itemID)
	if err != nil {
		return nil, err
	}
	phid, err := parseID(photoID)
	if err != nil {
		return nil, err
	}
	if err := image.Validate(); err != nil {
		return nil, err
	}

	meta, err := s.repo.FindPhoto(ctx, s.db, companyID, pid, phid)
	if err != nil {
		return nil, err
	}
	if meta == nil || meta.PunchListItemID == nil || *meta.PunchListItemID != iid {
		return nil, projectdomain.ErrPhotoNotFound
	}

	if err := s.photos.Put(ctx, meta.BlobKey, image); err != nil {
		return nil, err
	}
	meta.ContentType = image.ContentType
	meta.DateAdded = s.clock.Now()
	if err := s.repo.UpdatePhoto(ctx, s.db, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (s *Service) GetPhoto(ctx context.Context, projectID, photoID string) (*projectdomain.Photo, photo.Image, error) {
	companyID, pid, err := s.resolveIDs(ctx, projectID)
	if err != nil {
		return nil, photo.Image{}, err
	}
	phid, err := parseID(photoID)
	if err != nil {
		return nil, photo.Image{}, err
	}

	meta, err := s.repo.FindPhoto(ctx, s.db, companyID, pid, phid)
	if err != nil {
		return nil, photo.Image{}, err
	}
	if meta == nil {
		return nil, photo.Image{}, projectdomain.ErrPhotoNotFound
	}
	img, err := s.photos.Get(ctx, meta.BlobKey)
	if err != nil {
		return nil, photo.Image{}, err
	}
	return meta, img, nil
}

func (s *Service) discardBlobs(ctx context.Context, photos []projectdomain.Photo) {
	for _, p := range photos {
		if err := s.photos.Delete(ctx, p.BlobKey); err != nil {
			s.log.Warn("failed to discard photo blob", zap.String("key", p.BlobKey), zap.Error(err))
		}
	}
}

func (s *Service) defaultMarkup(ctx context.Context) decimal.Decimal {
	if s.companies != nil {
		if company, err := s.companies.Current(ctx); err == nil && company != nil {
			return company.DefaultMarkupPercent
		}
	}
	return decimal.NewFromFloat(s.invoicing.Get().DefaultMarkupPercent)
}

func (s *Service) mustFind(ctx context.Context, db *gorm.DB, companyID, projectID snowflake.ID) (*projectdomain.Project, error) {
	project, err := s.repo.FindByID(ctx, db, companyID, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, projectdomain.ErrNotFound
	}
	return project, nil
}

func (s *Service) resolveIDs(ctx context.Context, projectID string) (snowflake.ID, snowflake.ID, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return 0, 0, projectdomain.ErrInvalidCompany
	}
	pid, err := parseID(projectID)
	if err != nil {
		return 0, 0, err
	}
	return companyID, pid, nil
}

func (s *Service) auditLog(ctx context.Context, action string, projectID snowflake.ID, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	target := projectID.String()
	_ = s.audit.AuditLog(ctx, action, "project", &target, metadata)
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, projectdomain.ErrInvalidID
	}
	return id, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
