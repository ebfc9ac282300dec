// Package split computes per-person monetary obligations for a shared bill.
//
// The computation is a pure function: it never touches storage or I/O and
// never mutates its inputs. Each item's price is divided evenly among the
// people assigned to it, and tax and tip are distributed proportionally to
// each person's item total.
package split

import (
	"github.com/shopspring/decimal"
)

// Item is a single line on a bill.
type Item struct {
	Name  string
	Price decimal.Decimal
}

// Assignment maps a bill item (by index) to the people sharing its cost.
// Order of names is irrelevant and duplicates carry no meaning.
type Assignment struct {
	ItemID     int      `json:"item_id"`
	AssignedTo []string `json:"assigned_to"`
}

// Detail is one person's share of a bill. TotalDue is always recomputed from
// the other monetary fields, never set independently.
type Detail struct {
	ItemTotal decimal.Decimal `json:"item_total"`
	TaxShare  decimal.Decimal `json:"tax_share"`
	TipShare  decimal.Decimal `json:"tip_share"`
	TotalDue  decimal.Decimal `json:"total_due"`
	Paid      bool            `json:"paid"`
}

// Compute calculates each person's share of the bill from the item
// assignments. Every name in people receives a Detail, even if nothing was
// assigned to them. The result is deterministic and independent of
// assignment order.
//
// An item assigned to nobody contributes nothing to anyone, an assignment
// with an out-of-range index is ignored, and an assignee missing from the
// roster has their portion of the item discarded. Discarded portions are
// not redistributed.
func Compute(items []Item, assignments []Assignment, people []string, tax, tip decimal.Decimal) map[string]*Detail {
	details := make(map[string]*Detail, len(people))
	for _, person := range people {
		details[person] = &Detail{}
	}

	for _, assignment := range assignments {
		if assignment.ItemID < 0 || assignment.ItemID >= len(items) {
			continue
		}
		assignees := dedupe(assignment.AssignedTo)
		if len(assignees) == 0 {
			continue
		}

		// Intermediate division stays unrounded so shares do not compound
		// rounding error; only TotalDue is rounded at the end.
		perPerson := items[assignment.ItemID].Price.Div(decimal.NewFromInt(int64(len(assignees))))
		for _, person := range assignees {
			if detail, ok := details[person]; ok {
				detail.ItemTotal = detail.ItemTotal.Add(perPerson)
			}
		}
	}

	itemSubtotal := decimal.Zero
	for _, detail := range details {
		itemSubtotal = itemSubtotal.Add(detail.ItemTotal)
	}

	// A zero basis means nobody consumed anything, so there is nothing to
	// proportion tax or tip against.
	if itemSubtotal.IsPositive() {
		for _, detail := range details {
			if detail.ItemTotal.IsPositive() {
				proportion := detail.ItemTotal.Div(itemSubtotal)
				detail.TaxShare = proportion.Mul(tax)
				detail.TipShare = proportion.Mul(tip)
			}
		}
	}

	for _, detail := range details {
		detail.TotalDue = detail.ItemTotal.Add(detail.TaxShare).Add(detail.TipShare).Round(2)
	}

	return details
}

// dedupe returns the names with duplicates removed, preserving first
// occurrence order.
func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	return result
}
