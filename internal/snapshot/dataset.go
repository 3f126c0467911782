package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	inventorydomain "github.com/smallbiznis/constructtrack/internal/inventory/domain"
	invoicedomain "github.com/smallbiznis/constructtrack/internal/invoice/domain"
	"github.com/smallbiznis/constructtrack/internal/photo"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	taskdomain "github.com/smallbiznis/constructtrack/internal/task/domain"
	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
	"gorm.io/gorm"
)

const insertBatchSize = 200

// dataset is every record of one company, each slice ordered by id.
type dataset struct {
	users     []userdomain.User
	projects  []projectdomain.Project
	punchList []projectdomain.PunchListItem
	photos    []projectdomain.Photo
	tasks     []taskdomain.Task
	timeLogs  []timetrackingdomain.TimeLog
	items     []inventorydomain.Item
	orders    []inventorydomain.OrderListEntry
	materials []inventorydomain.MaterialLog
	invoices  []invoicedomain.Invoice
	lines     []invoicedomain.LineItem
}

func (d *dataset) load(tx *gorm.DB, companyID snowflake.ID) error {
	targets := []any{
		&d.users, &d.projects, &d.punchList, &d.photos, &d.tasks, &d.timeLogs,
		&d.items, &d.orders, &d.materials, &d.invoices,
	}
	for _, target := range targets {
		if err := tx.Where("company_id = ?", companyID).Order("id ASC").Find(target).Error; err != nil {
			return err
		}
	}
	return tx.Where("company_id = ?", companyID).
		Order("invoice_id ASC, position ASC").
		Find(&d.lines).Error
}

func (d *dataset) counts() map[string]int {
	return map[string]int{
		CollectionUsers:        len(d.users),
		CollectionProjects:     len(d.projects),
		CollectionTasks:        len(d.tasks),
		CollectionTimeLogs:     len(d.timeLogs),
		CollectionInventory:    len(d.items),
		CollectionOrderList:    len(d.orders),
		CollectionMaterialLogs: len(d.materials),
		CollectionInvoices:     len(d.invoices),
	}
}

func (d *dataset) insert(tx *gorm.DB) error {
	batches := []struct {
		rows any
		n    int
	}{
		{&d.projects, len(d.projects)},
		{&d.users, len(d.users)},
		{&d.punchList, len(d.punchList)},
		{&d.photos, len(d.photos)},
		{&d.tasks, len(d.tasks)},
		{&d.items, len(d.items)},
		{&d.orders, len(d.orders)},
		{&d.invoices, len(d.invoices)},
		{&d.lines, len(d.lines)},
		{&d.timeLogs, len(d.timeLogs)},
		{&d.materials, len(d.materials)},
	}
	for _, batch := range batches {
		if batch.n == 0 {
			continue
		}
		if err := tx.CreateInBatches(batch.rows, insertBatchSize).Error; err != nil {
			return err
		}
	}
	return nil
}

type encoded struct {
	value any
	count int
}

func (d *dataset) encode() map[string]encoded {
	users := make([]userDoc, 0, len(d.users))
	for _, u := range d.users {
		users = append(users, userDoc{
			ID:               u.ID,
			Name:             u.Name,
			Role:             u.Role,
			AccessRole:       u.AccessRole,
			IsClockedIn:      u.IsClockedIn,
			HourlyRate:       Amount(u.HourlyRate),
			ClockInTime:      u.ClockInTime,
			CurrentProjectID: u.CurrentProjectID,
			CreatedAt:        u.CreatedAt,
			UpdatedAt:        u.UpdatedAt,
		})
	}

	itemPhotos := map[snowflake.ID][]photoDoc{}
	projectPhotos := map[snowflake.ID][]photoDoc{}
	for _, p := range d.photos {
		doc := photoDoc{ID: p.ID, Description: p.Description, ContentType: p.ContentType, DateAdded: p.DateAdded}
		if p.PunchListItemID != nil {
			itemPhotos[*p.PunchListItemID] = append(itemPhotos[*p.PunchListItemID], doc)
			continue
		}
		projectPhotos[p.ProjectID] = append(projectPhotos[p.ProjectID], doc)
	}
	punchList := map[snowflake.ID][]punchListDoc{}
	for _, item := range d.punchList {
		punchList[item.ProjectID] = append(punchList[item.ProjectID], punchListDoc{
			ID:         item.ID,
			Text:       item.Text,
			IsComplete: item.IsComplete,
			Photos:     nonNil(itemPhotos[item.ID]),
			CreatedAt:  item.CreatedAt,
			UpdatedAt:  item.UpdatedAt,
		})
	}
	projects := make([]projectDoc, 0, len(d.projects))
	for _, p := range d.projects {
		projects = append(projects, projectDoc{
			ID:            p.ID,
			Name:          p.Name,
			Address:       p.Address,
			Type:          p.Type,
			Status:        p.Status,
			StartDate:     p.StartDate,
			EndDate:       p.EndDate,
			Budget:        Amount(p.Budget),
			CurrentSpend:  Amount(p.CurrentSpend),
			MarkupPercent: Number(p.MarkupPercent),
			PunchList:     nonNil(punchList[p.ID]),
			Photos:        nonNil(projectPhotos[p.ID]),
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
		})
	}

	tasks := make([]taskDoc, 0, len(d.tasks))
	for _, t := range d.tasks {
		tasks = append(tasks, taskDoc{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			ProjectID:   t.ProjectID,
			AssigneeID:  t.AssigneeID,
			DueDate:     t.DueDate,
			Status:      t.Status,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		})
	}

	timeLogs := make([]timeLogDoc, 0, len(d.timeLogs))
	for _, l := range d.timeLogs {
		timeLogs = append(timeLogs, timeLogDoc{
			ID:               l.ID,
			UserID:           l.UserID,
			ProjectID:        l.ProjectID,
			ClockIn:          l.ClockIn,
			ClockOut:         l.ClockOut,
			DurationMs:       l.DurationMs,
			Cost:             amountPtr(l.Cost),
			HourlyRate:       amountPtr(l.HourlyRate),
			ClockSkewed:      l.ClockSkewed,
			ClockInLocation:  l.ClockInPosition(),
			ClockOutLocation: l.ClockOutPosition(),
			InvoiceID:        l.InvoiceID,
			CreatedAt:        l.CreatedAt,
		})
	}

	items := make([]inventoryDoc, 0, len(d.items))
	for _, i := range d.items {
		items = append(items, inventoryDoc{
			ID:                i.ID,
			Name:              i.Name,
			Quantity:          Number(i.Quantity),
			Unit:              i.Unit,
			Cost:              Amount(i.Cost),
			LowStockThreshold: numberPtr(i.LowStockThreshold),
			CreatedAt:         i.CreatedAt,
			UpdatedAt:         i.UpdatedAt,
		})
	}

	orders := make([]orderDoc, 0, len(d.orders))
	for _, o := range d.orders {
		if o.InventoryItemID != nil {
			orders = append(orders, orderDoc{
				Type:      inventorydomain.OrderEntryInventory,
				ItemID:    o.InventoryItemID,
				CreatedAt: o.CreatedAt,
			})
			continue
		}
		id := o.ID
		orders = append(orders, orderDoc{
			Type:      inventorydomain.OrderEntryManual,
			ID:        &id,
			Name:      o.Name,
			CreatedAt: o.CreatedAt,
		})
	}

	materials := make([]materialLogDoc, 0, len(d.materials))
	for _, m := range d.materials {
		materials = append(materials, materialLogDoc{
			ID:              m.ID,
			ProjectID:       m.ProjectID,
			InventoryItemID: m.InventoryItemID,
			Description:     m.Description,
			QuantityUsed:    Number(m.QuantityUsed),
			UnitCost:        Amount(m.UnitCost),
			CostAtTime:      Amount(m.CostAtTime),
			DateUsed:        m.DateUsed,
			InvoiceID:       m.InvoiceID,
			ReceiptPhotoID:  m.ReceiptPhotoID,
		})
	}

	linesByInvoice := map[snowflake.ID][]invoicedomain.LineItem{}
	for _, line := range d.lines {
		linesByInvoice[line.InvoiceID] = append(linesByInvoice[line.InvoiceID], line)
	}
	invoices := make([]invoiceDoc, 0, len(d.invoices))
	for _, inv := range d.invoices {
		inv.Attach(linesByInvoice[inv.ID])
		invoices = append(invoices, invoiceDoc{
			ID:                inv.ID,
			InvoiceNumber:     inv.InvoiceNumber,
			Sequence:          inv.Sequence,
			ProjectID:         inv.ProjectID,
			IssueDate:         inv.IssueDate,
			DueDate:           inv.DueDate,
			Status:            string(inv.Status),
			Currency:          inv.Currency,
			LaborLineItems:    encodeLines(inv.LaborLineItems),
			MaterialLineItems: encodeLines(inv.MaterialLineItems),
			Subtotal:          Amount(inv.SubtotalAmount),
			MarkupPercent:     Number(inv.MarkupPercent),
			MarkupAmount:      Amount(inv.MarkupAmount),
			TotalAmount:       Amount(inv.TotalAmount),
			CreatedAt:         inv.CreatedAt,
			UpdatedAt:         inv.UpdatedAt,
		})
	}

	return map[string]encoded{
		CollectionUsers:        {users, len(users)},
		CollectionProjects:     {projects, len(projects)},
		CollectionTasks:        {tasks, len(tasks)},
		CollectionTimeLogs:     {timeLogs, len(timeLogs)},
		CollectionInventory:    {items, len(items)},
		CollectionOrderList:    {orders, len(orders)},
		CollectionMaterialLogs: {materials, len(materials)},
		CollectionInvoices:     {invoices, len(invoices)},
	}
}

func encodeLines(lines []invoicedomain.LineItem) []lineDoc {
	out := make([]lineDoc, 0, len(lines))
	for _, line := range lines {
		out = append(out, lineDoc{
			ID:            line.ID,
			Description:   line.Description,
			Quantity:      Number(line.Quantity),
			UnitPrice:     Amount(line.UnitPrice),
			Total:         Amount(line.Total),
			TimeLogID:     line.TimeLogID,
			MaterialLogID: line.MaterialLogID,
		})
	}
	return out
}

func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}

func unmarshal(raw map[string][]byte, name string, target any) error {
	value, ok := raw[name]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(value, target); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidSnapshot, name, err)
	}
	return nil
}

// decode rebuilds records from stored documents and stamps them with
// companyID.
func decode(companyID snowflake.ID, raw map[string][]byte) (*dataset, error) {
	var (
		users     []userDoc
		projects  []projectDoc
		tasks     []taskDoc
		timeLogs  []timeLogDoc
		items     []inventoryDoc
		orders    []orderDoc
		materials []materialLogDoc
		invoices  []invoiceDoc
	)
	targets := map[string]any{
		CollectionUsers:        &users,
		CollectionProjects:     &projects,
		CollectionTasks:        &tasks,
		CollectionTimeLogs:     &timeLogs,
		CollectionInventory:    &items,
		CollectionOrderList:    &orders,
		CollectionMaterialLogs: &materials,
		CollectionInvoices:     &invoices,
	}
	for _, name := range Collections {
		if err := unmarshal(raw, name, targets[name]); err != nil {
			return nil, err
		}
	}

	d := &dataset{}
	for _, u := range users {
		d.users = append(d.users, userdomain.User{
			ID:               u.ID,
			CompanyID:        companyID,
			Name:             u.Name,
			Role:             u.Role,
			AccessRole:       defaultString(u.AccessRole, userdomain.AccessRoleEmployee),
			HourlyRate:       int64(u.HourlyRate),
			IsClockedIn:      u.IsClockedIn,
			ClockInTime:      u.ClockInTime,
			CurrentProjectID: u.CurrentProjectID,
			CreatedAt:        u.CreatedAt,
			UpdatedAt:        u.UpdatedAt,
		})
	}

	for _, p := range projects {
		d.projects = append(d.projects, projectdomain.Project{
			ID:            p.ID,
			CompanyID:     companyID,
			Name:          p.Name,
			Address:       p.Address,
			Type:          p.Type,
			Status:        p.Status,
			StartDate:     p.StartDate,
			EndDate:       p.EndDate,
			Budget:        int64(p.Budget),
			CurrentSpend:  int64(p.CurrentSpend),
			MarkupPercent: decimal.Decimal(p.MarkupPercent),
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
		})
		for _, ph := range p.Photos {
			d.photos = append(d.photos, projectdomain.Photo{
				ID:          ph.ID,
				CompanyID:   companyID,
				ProjectID:   p.ID,
				Description: ph.Description,
				BlobKey:     photo.ProjectPhotoKey(p.ID, ph.ID),
				ContentType: ph.ContentType,
				DateAdded:   ph.DateAdded,
			})
		}
		for _, item := range p.PunchList {
			d.punchList = append(d.punchList, projectdomain.PunchListItem{
				ID:         item.ID,
				CompanyID:  companyID,
				ProjectID:  p.ID,
				Text:       item.Text,
				IsComplete: item.IsComplete,
				CreatedAt:  item.CreatedAt,
				UpdatedAt:  item.UpdatedAt,
			})
			for _, ph := range item.Photos {
				itemID := item.ID
				d.photos = append(d.photos, projectdomain.Photo{
					ID:              ph.ID,
					CompanyID:       companyID,
					ProjectID:       p.ID,
					PunchListItemID: &itemID,
					Description:     ph.Description,
					BlobKey:         photo.PunchListPhotoKey(p.ID, item.ID, ph.ID),
					ContentType:     ph.ContentType,
					DateAdded:       ph.DateAdded,
				})
			}
		}
	}

	for _, t := range tasks {
		d.tasks = append(d.tasks, taskdomain.Task{
			ID:          t.ID,
			CompanyID:   companyID,
			ProjectID:   t.ProjectID,
			AssigneeID:  t.AssigneeID,
			Title:       t.Title,
			Description: t.Description,
			DueDate:     t.DueDate,
			Status:      t.Status,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		})
	}

	for _, l := range timeLogs {
		d.timeLogs = append(d.timeLogs, timetrackingdomain.TimeLog{
			ID:               l.ID,
			CompanyID:        companyID,
			UserID:           l.UserID,
			ProjectID:        l.ProjectID,
			ClockIn:          l.ClockIn,
			ClockOut:         l.ClockOut,
			DurationMs:       l.DurationMs,
			Cost:             l.Cost.cents(),
			HourlyRate:       l.HourlyRate.cents(),
			ClockSkewed:      l.ClockSkewed,
			ClockInLocation:  timetrackingdomain.EncodeLocation(l.ClockInLocation),
			ClockOutLocation: timetrackingdomain.EncodeLocation(l.ClockOutLocation),
			InvoiceID:        l.InvoiceID,
			CreatedAt:        l.CreatedAt,
		})
	}

	for _, i := range items {
		d.items = append(d.items, inventorydomain.Item{
			ID:                i.ID,
			CompanyID:         companyID,
			Name:              i.Name,
			Quantity:          decimal.Decimal(i.Quantity),
			Unit:              i.Unit,
			Cost:              int64(i.Cost),
			LowStockThreshold: i.LowStockThreshold.decimal(),
			CreatedAt:         i.CreatedAt,
			UpdatedAt:         i.UpdatedAt,
		})
	}

	for _, o := range orders {
		switch o.Type {
		case inventorydomain.OrderEntryInventory:
			if o.ItemID == nil {
				return nil, fmt.Errorf("%w: orderList entry without itemId", ErrInvalidSnapshot)
			}
			id := o.ItemID
			if o.ID != nil {
				id = o.ID
			}
			d.orders = append(d.orders, inventorydomain.OrderListEntry{
				ID:              *id,
				CompanyID:       companyID,
				InventoryItemID: o.ItemID,
				CreatedAt:       o.CreatedAt,
			})
		case inventorydomain.OrderEntryManual:
			if o.ID == nil {
				return nil, fmt.Errorf("%w: manual orderList entry without id", ErrInvalidSnapshot)
			}
			d.orders = append(d.orders, inventorydomain.OrderListEntry{
				ID:        *o.ID,
				CompanyID: companyID,
				Name:      o.Name,
				CreatedAt: o.CreatedAt,
			})
		default:
			return nil, fmt.Errorf("%w: orderList type %q", ErrInvalidSnapshot, o.Type)
		}
	}

	for _, m := range materials {
		d.materials = append(d.materials, inventorydomain.MaterialLog{
			ID:              m.ID,
			CompanyID:       companyID,
			ProjectID:       m.ProjectID,
			InventoryItemID: m.InventoryItemID,
			Description:     m.Description,
			QuantityUsed:    decimal.Decimal(m.QuantityUsed),
			UnitCost:        int64(m.UnitCost),
			CostAtTime:      int64(m.CostAtTime),
			DateUsed:        m.DateUsed,
			InvoiceID:       m.InvoiceID,
			ReceiptPhotoID:  m.ReceiptPhotoID,
		})
	}

	for _, inv := range invoices {
		d.invoices = append(d.invoices, invoicedomain.Invoice{
			ID:             inv.ID,
			CompanyID:      companyID,
			ProjectID:      inv.ProjectID,
			InvoiceNumber:  inv.InvoiceNumber,
			Sequence:       inv.Sequence,
			Status:         invoicedomain.Status(inv.Status),
			IssueDate:      inv.IssueDate,
			DueDate:        inv.DueDate,
			Currency:       inv.Currency,
			SubtotalAmount: int64(inv.Subtotal),
			MarkupPercent:  decimal.Decimal(inv.MarkupPercent),
			MarkupAmount:   int64(inv.MarkupAmount),
			TotalAmount:    int64(inv.TotalAmount),
			CreatedAt:      inv.CreatedAt,
			UpdatedAt:      inv.UpdatedAt,
		})
		position := 0
		for _, group := range []struct {
			kind  string
			lines []lineDoc
		}{
			{invoicedomain.LineKindLabor, inv.LaborLineItems},
			{invoicedomain.LineKindMaterial, inv.MaterialLineItems},
		} {
			for _, line := range group.lines {
				d.lines = append(d.lines, invoicedomain.LineItem{
					ID:            line.ID,
					CompanyID:     companyID,
					InvoiceID:     inv.ID,
					Kind:          group.kind,
					Position:      position,
					Description:   line.Description,
					Quantity:      decimal.Decimal(line.Quantity),
					UnitPrice:     int64(line.UnitPrice),
					Total:         int64(line.Total),
					TimeLogID:     line.TimeLogID,
					MaterialLogID: line.MaterialLogID,
				})
				position++
			}
		}
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// validate rejects documents that would leave clock state, stock or invoice
// totals inconsistent once committed.
func (d *dataset) validate() error {
	open := make(map[snowflake.ID][]timetrackingdomain.TimeLog)
	for _, l := range d.timeLogs {
		if l.IsOpen() {
			open[l.UserID] = append(open[l.UserID], l)
			continue
		}
		if l.DurationMs == nil || l.Cost == nil {
			return fmt.Errorf("%w: time log %s closed without duration or cost", ErrInvalidSnapshot, l.ID)
		}
		if *l.DurationMs < 0 || *l.Cost < 0 {
			return fmt.Errorf("%w: time log %s has a negative duration or cost", ErrInvalidSnapshot, l.ID)
		}
	}

	users := make(map[snowflake.ID]struct{}, len(d.users))
	for _, u := range d.users {
		users[u.ID] = struct{}{}
		logs := open[u.ID]
		if !u.IsClockedIn {
			if u.ClockInTime != nil || u.CurrentProjectID != nil || len(logs) > 0 {
				return fmt.Errorf("%w: user %s is clocked out but has clock state", ErrInvalidSnapshot, u.ID)
			}
			continue
		}
		if u.ClockInTime == nil || u.CurrentProjectID == nil {
			return fmt.Errorf("%w: user %s is clocked in without time or project", ErrInvalidSnapshot, u.ID)
		}
		if len(logs) != 1 || logs[0].ProjectID != *u.CurrentProjectID {
			return fmt.Errorf("%w: user %s is clocked in without one open log on project %s", ErrInvalidSnapshot, u.ID, *u.CurrentProjectID)
		}
	}
	for userID := range open {
		if _, ok := users[userID]; !ok {
			return fmt.Errorf("%w: open time log for unknown user %s", ErrInvalidSnapshot, userID)
		}
	}

	for _, item := range d.items {
		if item.Quantity.IsNegative() {
			return fmt.Errorf("%w: inventory item %s has a negative quantity", ErrInvalidSnapshot, item.ID)
		}
	}
	for _, m := range d.materials {
		if m.QuantityUsed.IsNegative() || m.CostAtTime < 0 {
			return fmt.Errorf("%w: material log %s has a negative quantity or cost", ErrInvalidSnapshot, m.ID)
		}
	}

	lineTotals := make(map[snowflake.ID]int64, len(d.invoices))
	for _, line := range d.lines {
		if line.Quantity.IsNegative() {
			return fmt.Errorf("%w: invoice line %s has a negative quantity", ErrInvalidSnapshot, line.ID)
		}
		lineTotals[line.InvoiceID] += line.Total
	}
	for _, inv := range d.invoices {
		if inv.SubtotalAmount != lineTotals[inv.ID] {
			return fmt.Errorf("%w: invoice %s subtotal does not match its lines", ErrInvalidSnapshot, inv.ID)
		}
		if inv.TotalAmount != inv.SubtotalAmount+inv.MarkupAmount {
			return fmt.Errorf("%w: invoice %s total does not match subtotal plus markup", ErrInvalidSnapshot, inv.ID)
		}
	}
	return nil
}

func defaultString(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
