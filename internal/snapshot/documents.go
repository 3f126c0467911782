package snapshot

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/constructtrack/internal/geo"
	"github.com/smallbiznis/constructtrack/pkg/money"
)

// Amount is stored in minor units and travels as a major-unit JSON number.
type Amount int64

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(money.ToDecimal(int64(a)).StringFixed(2)), nil
}

func (a *Amount) UnmarshalJSON(raw []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return err
	}
	*a = Amount(money.FromDecimal(d))
	return nil
}

func amountPtr(v *int64) *Amount {
	if v == nil {
		return nil
	}
	a := Amount(*v)
	return &a
}

func (a *Amount) cents() *int64 {
	if a == nil {
		return nil
	}
	v := int64(*a)
	return &v
}

// Number is a decimal written as a bare JSON number.
type Number decimal.Decimal

func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(n).String()), nil
}

func (n *Number) UnmarshalJSON(raw []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return err
	}
	*n = Number(d)
	return nil
}

func numberPtr(d *decimal.Decimal) *Number {
	if d == nil {
		return nil
	}
	n := Number(*d)
	return &n
}

func (n *Number) decimal() *decimal.Decimal {
	if n == nil {
		return nil
	}
	d := decimal.Decimal(*n)
	return &d
}

type userDoc struct {
	ID               snowflake.ID  `json:"id"`
	Name             string        `json:"name"`
	Role             string        `json:"role"`
	AccessRole       string        `json:"accessRole,omitempty"`
	IsClockedIn      bool          `json:"isClockedIn"`
	HourlyRate       Amount        `json:"hourlyRate"`
	ClockInTime      *time.Time    `json:"clockInTime,omitempty"`
	CurrentProjectID *snowflake.ID `json:"currentProjectId,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

type photoDoc struct {
	ID          snowflake.ID `json:"id"`
	Description string       `json:"description"`
	ContentType string       `json:"contentType"`
	DateAdded   time.Time    `json:"dateAdded"`
}

type punchListDoc struct {
	ID         snowflake.ID `json:"id"`
	Text       string       `json:"text"`
	IsComplete bool         `json:"isComplete"`
	Photos     []photoDoc   `json:"photos"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

type projectDoc struct {
	ID            snowflake.ID   `json:"id"`
	Name          string         `json:"name"`
	Address       string         `json:"address"`
	Type          string         `json:"type"`
	Status        string         `json:"status"`
	StartDate     *time.Time     `json:"startDate,omitempty"`
	EndDate       *time.Time     `json:"endDate,omitempty"`
	Budget        Amount         `json:"budget"`
	CurrentSpend  Amount         `json:"currentSpend"`
	MarkupPercent Number         `json:"markupPercent"`
	PunchList     []punchListDoc `json:"punchList"`
	Photos        []photoDoc     `json:"photos"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

type taskDoc struct {
	ID          snowflake.ID  `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	ProjectID   snowflake.ID  `json:"projectId"`
	AssigneeID  *snowflake.ID `json:"assigneeId,omitempty"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
	Status      string        `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type timeLogDoc struct {
	ID               snowflake.ID  `json:"id"`
	UserID           snowflake.ID  `json:"userId"`
	ProjectID        snowflake.ID  `json:"projectId"`
	ClockIn          time.Time     `json:"clockIn"`
	ClockOut         *time.Time    `json:"clockOut,omitempty"`
	DurationMs       *int64        `json:"durationMs,omitempty"`
	Cost             *Amount       `json:"cost,omitempty"`
	HourlyRate       *Amount       `json:"hourlyRate,omitempty"`
	ClockSkewed      bool          `json:"clockSkewed,omitempty"`
	ClockInLocation  *geo.Location `json:"clockInLocation,omitempty"`
	ClockOutLocation *geo.Location `json:"clockOutLocation,omitempty"`
	InvoiceID        *snowflake.ID `json:"invoiceId,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
}

type inventoryDoc struct {
	ID                snowflake.ID `json:"id"`
	Name              string       `json:"name"`
	Quantity          Number       `json:"quantity"`
	Unit              string       `json:"unit"`
	Cost              Amount       `json:"cost"`
	LowStockThreshold *Number      `json:"lowStockThreshold,omitempty"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// orderDoc is either {"type":"inventory","itemId":...} or
// {"type":"manual","id":...,"name":...}.
type orderDoc struct {
	Type      string        `json:"type"`
	ItemID    *snowflake.ID `json:"itemId,omitempty"`
	ID        *snowflake.ID `json:"id,omitempty"`
	Name      string        `json:"name,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

type materialLogDoc struct {
	ID              snowflake.ID  `json:"id"`
	ProjectID       snowflake.ID  `json:"projectId"`
	InventoryItemID *snowflake.ID `json:"inventoryItemId,omitempty"`
	Description     string        `json:"description"`
	QuantityUsed    Number        `json:"quantityUsed"`
	UnitCost        Amount        `json:"unitCost"`
	CostAtTime      Amount        `json:"costAtTime"`
	DateUsed        time.Time     `json:"dateUsed"`
	InvoiceID       *snowflake.ID `json:"invoiceId,omitempty"`
	ReceiptPhotoID  *string       `json:"receiptPhotoId,omitempty"`
}

type lineDoc struct {
	ID            snowflake.ID  `json:"id"`
	Description   string        `json:"description"`
	Quantity      Number        `json:"quantity"`
	UnitPrice     Amount        `json:"unitPrice"`
	Total         Amount        `json:"total"`
	TimeLogID     *snowflake.ID `json:"timeLogId,omitempty"`
	MaterialLogID *snowflake.ID `json:"materialLogId,omitempty"`
}

type invoiceDoc struct {
	ID                snowflake.ID `json:"id"`
	InvoiceNumber     string       `json:"invoiceNumber"`
	Sequence          int64        `json:"sequence"`
	ProjectID         snowflake.ID `json:"projectId"`
	IssueDate         time.Time    `json:"issueDate"`
	DueDate           time.Time    `json:"dueDate"`
	Status            string       `json:"status"`
	Currency          string       `json:"currency"`
	LaborLineItems    []lineDoc    `json:"laborLineItems"`
	MaterialLineItems []lineDoc    `json:"materialLineItems"`
	Subtotal          Amount       `json:"subtotal"`
	MarkupPercent     Number       `json:"markupPercent"`
	MarkupAmount      Amount       `json:"markupAmount"`
	TotalAmount       Amount       `json:"totalAmount"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}
