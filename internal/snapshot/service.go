// Package snapshot copies a company's collections to and from the key-value
// store, one JSON array per collection.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/constructtrack/internal/audit/domain"
	"github.com/smallbiznis/constructtrack/internal/companycontext"
	inventorydomain "github.com/smallbiznis/constructtrack/internal/inventory/domain"
	invoicedomain "github.com/smallbiznis/constructtrack/internal/invoice/domain"
	"github.com/smallbiznis/constructtrack/internal/kvstore"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	taskdomain "github.com/smallbiznis/constructtrack/internal/task/domain"
	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	CollectionUsers        = "users"
	CollectionProjects     = "projects"
	CollectionTasks        = "tasks"
	CollectionTimeLogs     = "timeLogs"
	CollectionInventory    = "inventory"
	CollectionOrderList    = "orderList"
	CollectionMaterialLogs = "materialLogs"
	CollectionInvoices     = "invoices"
)

// Collections lists every collection in write order.
var Collections = []string{
	CollectionUsers,
	CollectionProjects,
	CollectionTasks,
	CollectionTimeLogs,
	CollectionInventory,
	CollectionOrderList,
	CollectionMaterialLogs,
	CollectionInvoices,
}

var (
	ErrInvalidCompany    = errors.New("invalid_company")
	ErrUnknownCollection = errors.New("unknown_collection")
	ErrNoSnapshot        = errors.New("snapshot_not_found")
	ErrInvalidSnapshot   = errors.New("invalid_snapshot")
)

// Key is the store key of one collection of a company.
func Key(companyID snowflake.ID, collection string) string {
	return companyID.String() + ":" + collection
}

type Manifest struct {
	CompanyID   snowflake.ID   `json:"company_id"`
	Collections map[string]int `json:"collections"`
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Store kvstore.Store
	Audit auditdomain.Service `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	store kvstore.Store
	audit auditdomain.Service
}

func New(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("snapshot.service"),
		store: p.Store,
		audit: p.Audit,
	}
}

// Export writes every collection of the current company to the store.
func (s *Service) Export(ctx context.Context) (*Manifest, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, ErrInvalidCompany
	}

	var data dataset
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return data.load(tx, companyID)
	})
	if err != nil {
		return nil, err
	}

	docs := data.encode()
	manifest := &Manifest{CompanyID: companyID, Collections: map[string]int{}}
	for _, name := range Collections {
		doc := docs[name]
		raw, err := json.Marshal(doc.value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		if err := s.store.Put(ctx, Key(companyID, name), raw); err != nil {
			return nil, fmt.Errorf("store %s: %w", name, err)
		}
		manifest.Collections[name] = doc.count
	}

	s.log.Info("snapshot exported",
		zap.String("company_id", companyID.String()),
		zap.Any("collections", manifest.Collections),
	)
	s.auditEvent(ctx, "snapshot.exported", manifest)
	return manifest, nil
}

// Import replaces the current company's records with the stored collections
// in one transaction. A missing collection is treated as empty, but at least
// one must exist.
func (s *Service) Import(ctx context.Context) (*Manifest, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, ErrInvalidCompany
	}

	raw := make(map[string][]byte, len(Collections))
	for _, name := range Collections {
		value, err := s.store.Get(ctx, Key(companyID, name))
		if errors.Is(err, kvstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		raw[name] = value
	}
	if len(raw) == 0 {
		return nil, ErrNoSnapshot
	}

	data, err := decode(companyID, raw)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := purge(tx, companyID); err != nil {
			return err
		}
		return data.insert(tx)
	})
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{CompanyID: companyID, Collections: data.counts()}
	s.log.Info("snapshot imported",
		zap.String("company_id", companyID.String()),
		zap.Any("collections", manifest.Collections),
	)
	s.auditEvent(ctx, "snapshot.imported", manifest)
	return manifest, nil
}

// Collection returns the stored JSON array of one collection.
func (s *Service) Collection(ctx context.Context, name string) (json.RawMessage, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, ErrInvalidCompany
	}
	if !isCollection(name) {
		return nil, ErrUnknownCollection
	}
	raw, err := s.store.Get(ctx, Key(companyID, name))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

func (s *Service) auditEvent(ctx context.Context, action string, manifest *Manifest) {
	if s.audit == nil {
		return
	}
	target := manifest.CompanyID.String()
	metadata := map[string]any{}
	for name, count := range manifest.Collections {
		metadata[name] = count
	}
	_ = s.audit.AuditLog(ctx, action, "snapshot", &target, metadata)
}

func isCollection(name string) bool {
	for _, candidate := range Collections {
		if candidate == name {
			return true
		}
	}
	return false
}

// purge removes the company's records children first.
func purge(tx *gorm.DB, companyID snowflake.ID) error {
	models := []any{
		&invoicedomain.LineItem{},
		&invoicedomain.Invoice{},
		&inventorydomain.MaterialLog{},
		&inventorydomain.OrderListEntry{},
		&inventorydomain.Item{},
		&timetrackingdomain.TimeLog{},
		&taskdomain.Task{},
		&projectdomain.Photo{},
		&projectdomain.PunchListItem{},
		&userdomain.User{},
		&projectdomain.Project{},
	}
	for _, model := range models {
		if err := tx.Where("company_id = ?", companyID).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
