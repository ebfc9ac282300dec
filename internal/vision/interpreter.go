package vision

import "github.com/shopspring/decimal"

// ParsedItem is a single line item extracted from a receipt.
type ParsedItem struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// ParsedReceipt contains the structured information extracted from a receipt
// image. Tip defaults to zero when the receipt carries none.
type ParsedReceipt struct {
	RestaurantName string          `json:"restaurant_name"`
	Items          []ParsedItem    `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	Tip            decimal.Decimal `json:"tip"`
	Total          decimal.Decimal `json:"total"`
}

// Interpreter defines the interface for receipt interpretation backends.
type Interpreter interface {
	// InterpretReceipt analyzes a receipt image/PDF and extracts its line
	// items and totals.
	InterpretReceipt(imageData []byte, contentType string) (*ParsedReceipt, error)
	// Close closes the interpreter and releases resources
	Close() error
}
