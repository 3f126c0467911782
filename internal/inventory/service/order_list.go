package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/constructtrack/internal/companycontext"
	inventorydomain "github.com/smallbiznis/constructtrack/internal/inventory/domain"
	"github.com/smallbiznis/constructtrack/pkg/db"
	"go.uber.org/zap"
)

// AddToOrderList is idempotent: an item already on the list keeps its line.
func (s *Service) AddToOrderList(ctx context.Context, itemID string) (inventorydomain.OrderEntry, error) {
	companyID, id, err := s.resolveIDs(ctx, itemID, inventorydomain.ErrInvalidItemID)
	if err != nil {
		return nil, err
	}
	item, err := s.mustFindItem(ctx, s.db, companyID, id)
	if err != nil {
		return nil, err
	}

	entry := inventorydomain.InventoryEntry{ItemID: item.ID, Item: item}
	existing, err := s.repo.FindOrderEntryByItem(ctx, s.db, companyID, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return entry, nil
	}

	err = s.repo.InsertOrderEntry(ctx, s.db, &inventorydomain.OrderListEntry{
		ID:              s.genID.Generate(),
		CompanyID:       companyID,
		InventoryItemID: &item.ID,
		CreatedAt:       s.clock.Now(),
	})
	if err != nil && !db.IsDuplicateKeyErr(err) {
		return nil, err
	}
	return entry, nil
}

func (s *Service) AddManualToOrderList(ctx context.Context, name string) (inventorydomain.OrderEntry, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, inventorydomain.ErrInvalidCompany
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, inventorydomain.ErrInvalidName
	}

	row := &inventorydomain.OrderListEntry{
		ID:        s.genID.Generate(),
		CompanyID: companyID,
		Name:      name,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertOrderEntry(ctx, s.db, row); err != nil {
		return nil, err
	}
	return inventorydomain.ManualEntry{ID: row.ID, Name: name}, nil
}

// RemoveFromOrderList matches inventory lines by item id and manual lines
// by their own id. Removing an absent entry is a no-op.
func (s *Service) RemoveFromOrderList(ctx context.Context, entry inventorydomain.OrderEntry) error {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return inventorydomain.ErrInvalidCompany
	}

	var (
		removed bool
		err     error
	)
	switch e := entry.(type) {
	case inventorydomain.InventoryEntry:
		removed, err = s.repo.DeleteOrderEntryByItem(ctx, s.db, companyID, e.ItemID)
	case inventorydomain.ManualEntry:
		removed, err = s.repo.DeleteManualOrderEntry(ctx, s.db, companyID, e.ID)
	default:
		return inventorydomain.ErrInvalidOrderEntry
	}
	if err != nil {
		return err
	}
	if !removed {
		s.log.Debug("order entry already absent", zap.String("key", entry.Key()))
	}
	return nil
}

func (s *Service) ClearOrderList(ctx context.Context) error {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return inventorydomain.ErrInvalidCompany
	}
	removed, err := s.repo.ClearOrderList(ctx, s.db, companyID)
	if err != nil {
		return err
	}
	s.log.Info("order list cleared", zap.Int64("entries", removed))
	return nil
}

func (s *Service) ListOrderList(ctx context.Context) ([]inventorydomain.OrderEntry, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, inventorydomain.ErrInvalidCompany
	}
	rows, err := s.repo.ListOrderList(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}

	var itemIDs []snowflake.ID
	for _, row := range rows {
		if row.InventoryItemID != nil {
			itemIDs = append(itemIDs, *row.InventoryItemID)
		}
	}
	items, err := s.repo.FindItems(ctx, s.db, companyID, itemIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]*inventorydomain.Item, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	entries := make([]inventorydomain.OrderEntry, 0, len(rows))
	for _, row := range rows {
		var item *inventorydomain.Item
		if row.InventoryItemID != nil {
			item = byID[*row.InventoryItemID]
		}
		entries = append(entries, inventorydomain.EntryFromRow(row, item))
	}
	return entries, nil
}
