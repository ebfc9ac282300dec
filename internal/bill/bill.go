package bill

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pennapps-tabby/tabby-demo/internal/split"
)

func init() {
	// API clients and the persisted JSON expect plain numbers for money
	// fields, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Item is a single line item on a bill. Immutable once parsed.
type Item struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Bill represents a parsed receipt and, once items have been assigned, the
// per-person splits derived from it.
//
// Total is trusted as-is from the interpreter at parse time; it is only
// recomputed as subtotal+tax+tip when a tip override arrives at assignment
// time. The two can therefore disagree on a freshly parsed bill, which is a
// tolerated inconsistency.
type Bill struct {
	ID                string                   `json:"id"`
	RestaurantName    string                   `json:"restaurant_name"`
	Items             []Item                   `json:"items"`
	Subtotal          decimal.Decimal          `json:"subtotal"`
	Tax               decimal.Decimal          `json:"tax"`
	Tip               decimal.Decimal          `json:"tip"`
	Total             decimal.Decimal          `json:"total"`
	ImageReference    string                   `json:"image_reference"`
	ImageContentType  string                   `json:"image_content_type,omitempty"`
	Splits            map[string]*split.Detail `json:"splits,omitempty"`
	AssignmentsDetail []split.Assignment       `json:"assignments_detail,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// Assigned reports whether items have been assigned at least once, i.e. the
// bill has splits.
func (b *Bill) Assigned() bool {
	return len(b.Splits) > 0
}

// SplitItems converts the bill's line items into the split engine's input
// form.
func (b *Bill) SplitItems() []split.Item {
	items := make([]split.Item, len(b.Items))
	for i, item := range b.Items {
		items[i] = split.Item{Name: item.Name, Price: item.Price}
	}
	return items
}

// PaymentLink is one person's payable link with its QR encoding.
type PaymentLink struct {
	Person    string          `json:"person"`
	Amount    decimal.Decimal `json:"amount"`
	VenmoLink string          `json:"venmo_link"`
	QRCode    string          `json:"qr_code"`
	Paid      bool            `json:"paid"`
}

// PaymentSummary is the full payment-links view of an assigned bill:
// one link per person who owes money, plus the organizer's own total and the
// amount still outstanding across everyone else.
type PaymentSummary struct {
	PaymentLinks      []PaymentLink   `json:"payment_links"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	MyTotal           decimal.Decimal `json:"my_total"`
}
