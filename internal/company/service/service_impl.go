package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	companydomain "github.com/smallbiznis/constructtrack/internal/company/domain"
	"github.com/smallbiznis/constructtrack/internal/companycontext"
	"github.com/smallbiznis/constructtrack/internal/config"
	"github.com/smallbiznis/constructtrack/pkg/db"
	"github.com/smallbiznis/constructtrack/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxSlugAttempts = 5

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Invoicing *config.InvoicingConfigHolder `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	genID     *snowflake.Node
	store     repository.Repository[companydomain.Company]
	invoicing *config.InvoicingConfigHolder
}

func New(p Params) companydomain.Service {
	return &Service{
		log:       p.Log.Named("company.service"),
		genID:     p.GenID,
		store:     repository.ProvideStore[companydomain.Company](p.DB),
		invoicing: p.Invoicing,
	}
}

func (s *Service) Create(ctx context.Context, req companydomain.CreateRequest) (*companydomain.Company, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, companydomain.ErrInvalidName
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.invoicing.Get().Currency
	}
	if len(currency) != 3 {
		return nil, companydomain.ErrInvalidCurrency
	}

	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, companydomain.ErrInvalidTimezone
	}

	markup := decimal.NewFromFloat(s.invoicing.Get().DefaultMarkupPercent)
	if req.DefaultMarkupPercent != nil {
		markup = *req.DefaultMarkupPercent
	}
	if markup.IsNegative() {
		return nil, companydomain.ErrInvalidMarkup
	}

	now := time.Now().UTC()
	base := slug.Make(name)
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		candidate := base
		if attempt > 0 {
			candidate = fmt.Sprintf("%s-%d", base, attempt+1)
		}
		company := &companydomain.Company{
			ID:                   s.genID.Generate(),
			Name:                 name,
			Slug:                 candidate,
			Currency:             currency,
			Timezone:             timezone,
			DefaultMarkupPercent: markup,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		err := s.store.Create(ctx, company)
		if err == nil {
			s.log.Info("company created", zap.String("company_id", company.ID.String()), zap.String("slug", candidate))
			return company, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("allocate slug for %q: %w", name, companydomain.ErrInvalidName)
}

func (s *Service) Get(ctx context.Context, id string) (*companydomain.Company, error) {
	companyID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || companyID == 0 {
		return nil, companydomain.ErrInvalidID
	}
	return s.find(ctx, companyID)
}

func (s *Service) Current(ctx context.Context) (*companydomain.Company, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, companydomain.ErrInvalidCompany
	}
	return s.find(ctx, companyID)
}

func (s *Service) find(ctx context.Context, id snowflake.ID) (*companydomain.Company, error) {
	item, err := s.store.FindOne(ctx, &companydomain.Company{ID: id})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, companydomain.ErrNotFound
	}
	return item, nil
}
