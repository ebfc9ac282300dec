// Package paylink formats payment deep links and their QR encodings.
// Everything here is pure string/image formatting; no network or state
// access.
package paylink

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
)

// qrSize is the pixel width of generated QR images.
const qrSize = 256

// PageLink builds a universal pay-page link of the form
// {base}/pay?recipient=..&amount=..&note=.. with the amount rendered to
// exactly two fractional digits.
func PageLink(baseURL, recipient string, amount decimal.Decimal, note string) string {
	params := url.Values{}
	params.Set("recipient", recipient)
	params.Set("amount", amount.StringFixed(2))
	params.Set("note", note)
	return fmt.Sprintf("%s/pay?%s", strings.TrimSuffix(baseURL, "/"), params.Encode())
}

// VenmoLink builds a Venmo charge deep link for the given handle.
func VenmoLink(handle string, amount decimal.Decimal, note string) string {
	params := url.Values{}
	params.Set("txn", "charge")
	params.Set("amount", amount.StringFixed(2))
	params.Set("note", note)
	return fmt.Sprintf("https://venmo.com/%s?%s", url.PathEscape(strings.TrimPrefix(handle, "@")), params.Encode())
}

// QRDataURI encodes the given URI as a PNG QR code wrapped in a base64 data
// URI, ready to drop into an <img> tag.
func QRDataURI(uri string) (string, error) {
	png, err := qrcode.Encode(uri, qrcode.Medium, qrSize)
	if err != nil {
		return "", fmt.Errorf("encoding QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
