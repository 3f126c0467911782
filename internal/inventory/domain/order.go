package domain

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const (
	OrderEntryInventory = "inventory"
	OrderEntryManual    = "manual"
)

// OrderEntry is an order list line: either an InventoryEntry or a
// ManualEntry. Key identifies the line for removal.
type OrderEntry interface {
	Kind() string
	Key() string
	orderEntry()
}

// InventoryEntry references a stocked item. Adding the same item twice
// keeps a single line.
type InventoryEntry struct {
	ItemID snowflake.ID `json:"item_id"`
	Item   *Item        `json:"item,omitempty"`
}

// ManualEntry is a free-text line with its own id.
type ManualEntry struct {
	ID   snowflake.ID `json:"id"`
	Name string       `json:"name"`
}

func (InventoryEntry) Kind() string { return OrderEntryInventory }
func (ManualEntry) Kind() string    { return OrderEntryManual }

func (e InventoryEntry) Key() string { return OrderEntryInventory + ":" + e.ItemID.String() }
func (e ManualEntry) Key() string    { return OrderEntryManual + ":" + e.ID.String() }

func (InventoryEntry) orderEntry() {}
func (ManualEntry) orderEntry()    {}

// ParseOrderEntryKey turns "inventory:<itemId>" or "manual:<id>" back into
// an entry usable for removal.
func ParseOrderEntryKey(key string) (OrderEntry, error) {
	kind, raw, ok := strings.Cut(strings.TrimSpace(key), ":")
	if !ok {
		return nil, ErrInvalidOrderEntry
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return nil, ErrInvalidOrderEntry
	}
	switch kind {
	case OrderEntryInventory:
		return InventoryEntry{ItemID: id}, nil
	case OrderEntryManual:
		return ManualEntry{ID: id}, nil
	default:
		return nil, ErrInvalidOrderEntry
	}
}

// EntryFromRow converts a stored row. item may be nil for manual rows or
// when the referenced item is gone.
func EntryFromRow(row OrderListEntry, item *Item) OrderEntry {
	if row.InventoryItemID != nil {
		return InventoryEntry{ItemID: *row.InventoryItemID, Item: item}
	}
	return ManualEntry{ID: row.ID, Name: row.Name}
}

// OrderEntryView is the JSON shape of an entry.
type OrderEntryView struct {
	Type   string        `json:"type"`
	Key    string        `json:"key"`
	ItemID *snowflake.ID `json:"item_id,omitempty"`
	ID     *snowflake.ID `json:"id,omitempty"`
	Name   string        `json:"name"`
	Item   *Item         `json:"item,omitempty"`
}

func ViewOf(entry OrderEntry) OrderEntryView {
	switch e := entry.(type) {
	case InventoryEntry:
		view := OrderEntryView{Type: e.Kind(), Key: e.Key(), ItemID: &e.ItemID, Item: e.Item}
		if e.Item != nil {
			view.Name = e.Item.Name
		}
		return view
	case ManualEntry:
		return OrderEntryView{Type: e.Kind(), Key: e.Key(), ID: &e.ID, Name: e.Name}
	default:
		panic(fmt.Sprintf("inventory: unknown order entry %T", entry))
	}
}
