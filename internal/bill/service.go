package bill

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pennapps-tabby/tabby-demo/internal/paylink"
	"github.com/pennapps-tabby/tabby-demo/internal/split"
	"github.com/pennapps-tabby/tabby-demo/internal/vision"
)

// IDGenerator generates unique IDs for bills
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates random UUIDs, the collision-free ids the store
// contract assumes
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service orchestrates bill operations: parsing uploads into bills,
// assigning items, toggling paid flags, and building payment links. Each
// operation is a single read-modify-write against the store; concurrent
// writers to the same bill id race last-write-wins, which is an accepted
// limitation.
type Service struct {
	db          DB
	interpreter vision.Interpreter
	storage     Storage
	payBaseURL  string
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time
// source. If payBaseURL is non-empty, payment links point at its /pay page
// instead of directly at Venmo.
func NewService(db DB, interpreter vision.Interpreter, storage Storage, payBaseURL string) *Service {
	return NewServiceWithDeps(db, interpreter, storage, payBaseURL, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, interpreter vision.Interpreter, storage Storage, payBaseURL string, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		interpreter: interpreter,
		storage:     storage,
		payBaseURL:  payBaseURL,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and
// truncating length; phone cameras generate very long names.
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// UploadReceipt stores the receipt image, interprets it, and persists the
// resulting bill. On interpreter failure nothing is persisted: the saved
// image is cleaned up and no bill record is written.
func (s *Service) UploadReceipt(filename string, data []byte, contentType string) (*Bill, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	cleanFilename := sanitizeFilename(filename)

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving image: %w", err)
	}

	parsed, err := s.interpreter.InterpretReceipt(data, contentType)
	if err != nil {
		slog.Error("Failed to interpret receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	items := make([]Item, len(parsed.Items))
	for i, item := range parsed.Items {
		items[i] = Item{Name: item.Name, Price: item.Price}
	}

	// The interpreter-supplied total is trusted as-is here; it is only
	// recomputed when a tip override arrives at assignment time.
	bill := &Bill{
		ID:               id,
		RestaurantName:   parsed.RestaurantName,
		Items:            items,
		Subtotal:         parsed.Subtotal,
		Tax:              parsed.Tax,
		Tip:              parsed.Tip,
		Total:            parsed.Total,
		ImageReference:   savedPath,
		ImageContentType: contentType,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.db.SaveBill(bill); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving bill: %w", err)
	}

	return bill, nil
}

// GetBill retrieves a bill by ID
func (s *Service) GetBill(id string) (*Bill, error) {
	return s.db.GetBill(id)
}

// AssignItems recomputes the bill's splits from the given assignments and
// roster, overwriting any prior splits and assignments wholesale. Every
// person's paid flag resets to false on re-assignment because the splits are
// rebuilt from scratch.
//
// A non-nil tip replaces the bill's tip and forces the total to be
// recomputed as subtotal+tax+tip before shares are calculated, so a
// handwritten tip discovered after the initial parse is distributed exactly
// like tax.
func (s *Service) AssignItems(billID string, assignments []split.Assignment, people []string, tip *decimal.Decimal) (*Bill, error) {
	if len(people) == 0 {
		return nil, fmt.Errorf("%w: at least one person is required", ErrInvalidInput)
	}
	for _, person := range people {
		if strings.TrimSpace(person) == "" {
			return nil, fmt.Errorf("%w: person names must not be blank", ErrInvalidInput)
		}
	}
	// Negative indices are rejected outright; indices past the end of the
	// item list are silently ignored by the split engine.
	for _, assignment := range assignments {
		if assignment.ItemID < 0 {
			return nil, fmt.Errorf("%w: negative item index %d", ErrInvalidInput, assignment.ItemID)
		}
	}
	if tip != nil && tip.IsNegative() {
		return nil, fmt.Errorf("%w: negative tip %s", ErrInvalidInput, tip)
	}

	bill, err := s.db.GetBill(billID)
	if err != nil {
		return nil, err
	}

	if tip != nil {
		bill.Tip = *tip
		bill.Total = bill.Subtotal.Add(bill.Tax).Add(bill.Tip)
	}

	bill.Splits = split.Compute(bill.SplitItems(), assignments, people, bill.Tax, bill.Tip)
	bill.AssignmentsDetail = assignments
	bill.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveBill(bill); err != nil {
		return nil, fmt.Errorf("saving bill: %w", err)
	}

	return bill, nil
}

// TogglePaid flips one person's paid flag on an assigned bill.
func (s *Service) TogglePaid(billID, person string) (*Bill, error) {
	bill, err := s.db.GetBill(billID)
	if err != nil {
		return nil, err
	}

	if !bill.Assigned() {
		return nil, fmt.Errorf("bill %s has no splits: %w", billID, ErrNotFound)
	}

	detail, ok := bill.Splits[person]
	if !ok {
		return nil, fmt.Errorf("person %q not in splits: %w", person, ErrNotFound)
	}

	detail.Paid = !detail.Paid
	bill.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveBill(bill); err != nil {
		return nil, fmt.Errorf("saving bill: %w", err)
	}

	return bill, nil
}

// PaymentLinks builds a payable link and QR code for every person who owes
// money, excluding the organizer, who collects rather than pays. People
// owing nothing receive no link.
func (s *Service) PaymentLinks(billID, organizerHandle, organizerName string) (*PaymentSummary, error) {
	if strings.TrimSpace(organizerHandle) == "" {
		return nil, fmt.Errorf("%w: organizer handle is required", ErrInvalidInput)
	}

	bill, err := s.db.GetBill(billID)
	if err != nil {
		return nil, err
	}

	if !bill.Assigned() {
		return nil, fmt.Errorf("bill %s: %w", billID, ErrNotYetAssigned)
	}

	note := fmt.Sprintf("Bill from %s", bill.RestaurantName)

	people := make([]string, 0, len(bill.Splits))
	for person := range bill.Splits {
		people = append(people, person)
	}
	sort.Strings(people)

	summary := &PaymentSummary{PaymentLinks: []PaymentLink{}}
	for _, person := range people {
		detail := bill.Splits[person]
		if person == organizerName {
			summary.MyTotal = detail.TotalDue
			continue
		}
		if !detail.TotalDue.IsPositive() {
			continue
		}

		link := s.buildLink(organizerHandle, detail.TotalDue, note)
		qr, err := paylink.QRDataURI(link)
		if err != nil {
			return nil, fmt.Errorf("encoding QR for %s: %w", person, err)
		}

		summary.PaymentLinks = append(summary.PaymentLinks, PaymentLink{
			Person:    person,
			Amount:    detail.TotalDue,
			VenmoLink: link,
			QRCode:    qr,
			Paid:      detail.Paid,
		})
		if !detail.Paid {
			summary.OutstandingAmount = summary.OutstandingAmount.Add(detail.TotalDue)
		}
	}

	return summary, nil
}

func (s *Service) buildLink(recipient string, amount decimal.Decimal, note string) string {
	if s.payBaseURL != "" {
		return paylink.PageLink(s.payBaseURL, recipient, amount, note)
	}
	return paylink.VenmoLink(recipient, amount, note)
}

// BillImage retrieves the stored receipt image for a bill.
func (s *Service) BillImage(id string) ([]byte, string, error) {
	bill, err := s.db.GetBill(id)
	if err != nil {
		return nil, "", err
	}

	data, err := s.storage.Get(bill.ImageReference)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt image: %w", err)
	}

	return data, bill.ImageContentType, nil
}

// DeleteBill removes a bill and its stored image. Administrative operation;
// nothing in the split or payment flow deletes bills.
func (s *Service) DeleteBill(id string) error {
	bill, err := s.db.GetBill(id)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(bill.ImageReference); err != nil {
		slog.Warn("Failed to delete receipt image", "filename", bill.ImageReference, "error", err)
	}

	if err := s.db.DeleteBill(id); err != nil {
		return fmt.Errorf("deleting bill: %w", err)
	}
	return nil
}
