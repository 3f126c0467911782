package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	companydomain "github.com/smallbiznis/constructtrack/internal/company/domain"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultCompanyName   = "Smith Construction"
	defaultCurrency      = "USD"
	defaultMarkupPercent = 20
	defaultUserName      = "Ryan"
	defaultUserRole      = "Installer"
	defaultUserRate      = 2500
)

type Options struct {
	CompanyName string
	// Now anchors the sample project dates. Zero means time.Now.
	Now time.Time
}

type sampleProject struct {
	name      string
	address   string
	kind      string
	status    string
	startDays int
	endDays   int
	budget    int64
	spend     int64
	markup    int64
	punchList []samplePunchItem
}

type samplePunchItem struct {
	text     string
	complete bool
}

var sampleProjects = []sampleProject{
	{
		name: "Sally Wertman", address: "23296 US 12 W, Sturgis, MI 49091",
		kind: projectdomain.TypeRenovation, status: projectdomain.StatusInProgress,
		startDays: -60, endDays: 90, budget: 15_000_000, spend: 4_500_000, markup: 20,
		punchList: []samplePunchItem{
			{text: "Fix front door lock"},
			{text: "Paint trim in living room", complete: true},
			{text: "Repair drywall patch in hallway"},
		},
	},
	{
		name: "Tony Szafranski", address: "1370 E 720 S, Wolcottville, IN 46795",
		kind: projectdomain.TypeNewConstruction, status: projectdomain.StatusInProgress,
		startDays: -45, endDays: 120, budget: 32_000_000, spend: 8_000_000, markup: 15,
		punchList: []samplePunchItem{{text: "Install kitchen backsplash"}},
	},
	{
		name: "Joe Eicher", address: "6430 S 125 E, Wolcottville, IN 46795",
		kind: projectdomain.TypeInteriorFitOut, status: projectdomain.StatusOnHold,
		startDays: -90, endDays: 60, budget: 7_500_000, spend: 2_500_000, markup: 25,
	},
	{
		name: "Tyler Mitchell", address: "785 E 660 S, Wolcottville, IN 46795",
		kind: projectdomain.TypeNewConstruction, status: projectdomain.StatusInProgress,
		startDays: -15, endDays: 180, budget: 45_000_000, spend: 1_500_000, markup: 20,
	},
	{
		name: "Dennis Zmyslo", address: "260 Spring Beach Rd, Rome City, IN 46784",
		kind: projectdomain.TypeRenovation, status: projectdomain.StatusCompleted,
		startDays: -180, endDays: -10, budget: 9_500_000, spend: 9_250_000, markup: 20,
	},
	{
		name: "Stephanie Webster", address: "803 South Main Street, Topeka, IN 46571",
		kind: projectdomain.TypeDemolition, status: projectdomain.StatusInProgress,
		startDays: -5, endDays: 25, budget: 2_500_000, spend: 500_000, markup: 30,
	},
}

// EnsureDefaults seeds a company, its first crew member and the sample
// projects. It does nothing once any company exists.
func EnsureDefaults(db *gorm.DB, log *zap.Logger, opts Options) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	name := opts.CompanyName
	if name == "" {
		name = defaultCompanyName
	}

	ctx := context.Background()
	var seeded *companydomain.Company
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&companydomain.Company{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		company := companydomain.Company{
			ID:                   node.Generate(),
			Name:                 name,
			Slug:                 slug.Make(name),
			Currency:             defaultCurrency,
			Timezone:             "UTC",
			DefaultMarkupPercent: decimal.NewFromInt(defaultMarkupPercent),
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := tx.Create(&company).Error; err != nil {
			return err
		}

		user := userdomain.User{
			ID:         node.Generate(),
			CompanyID:  company.ID,
			Name:       defaultUserName,
			Role:       defaultUserRole,
			AccessRole: userdomain.AccessRoleAdmin,
			HourlyRate: defaultUserRate,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		for _, sample := range sampleProjects {
			start := now.AddDate(0, 0, sample.startDays)
			end := now.AddDate(0, 0, sample.endDays)
			project := projectdomain.Project{
				ID:            node.Generate(),
				CompanyID:     company.ID,
				Name:          sample.name,
				Address:       sample.address,
				Type:          sample.kind,
				Status:        sample.status,
				StartDate:     &start,
				EndDate:       &end,
				Budget:        sample.budget,
				CurrentSpend:  sample.spend,
				MarkupPercent: decimal.NewFromInt(sample.markup),
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := tx.Create(&project).Error; err != nil {
				return err
			}
			for _, item := range sample.punchList {
				row := projectdomain.PunchListItem{
					ID:         node.Generate(),
					CompanyID:  company.ID,
					ProjectID:  project.ID,
					Text:       item.text,
					IsComplete: item.complete,
					CreatedAt:  now,
					UpdatedAt:  now,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
		}

		seeded = &company
		return nil
	})
	if err != nil {
		return err
	}

	if seeded != nil {
		log.Info("seeded default company",
			zap.String("company_id", seeded.ID.String()),
			zap.String("slug", seeded.Slug),
			zap.Int("projects", len(sampleProjects)),
		)
	}
	return nil
}
