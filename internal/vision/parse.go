package vision

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseReceiptJSON extracts and validates the JSON document from a provider's
// text response. Providers do not always honor the no-markdown instruction,
// so fenced code blocks and surrounding prose are tolerated.
func parseReceiptJSON(text string) (*ParsedReceipt, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var parsed ParsedReceipt
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	if err := validateParsedReceipt(&parsed); err != nil {
		return nil, err
	}

	return &parsed, nil
}

// validateParsedReceipt enforces the interpreter contract: required fields
// present, all monetary values non-negative. A malformed response fails
// outright; there is no partial recovery.
func validateParsedReceipt(parsed *ParsedReceipt) error {
	parsed.RestaurantName = strings.TrimSpace(parsed.RestaurantName)
	if parsed.RestaurantName == "" {
		return fmt.Errorf("missing restaurant name")
	}
	if len(parsed.Items) == 0 {
		return fmt.Errorf("no items found on receipt")
	}
	for i, item := range parsed.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("item %d has no name", i)
		}
		if item.Price.IsNegative() {
			return fmt.Errorf("item %q has negative price %s", item.Name, item.Price)
		}
	}
	if parsed.Subtotal.IsNegative() {
		return fmt.Errorf("negative subtotal %s", parsed.Subtotal)
	}
	if parsed.Tax.IsNegative() {
		return fmt.Errorf("negative tax %s", parsed.Tax)
	}
	if parsed.Tip.IsNegative() {
		return fmt.Errorf("negative tip %s", parsed.Tip)
	}
	if parsed.Total.IsNegative() {
		return fmt.Errorf("negative total %s", parsed.Total)
	}
	return nil
}
