package bill

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pennapps-tabby/tabby-demo/internal/split"
)

// maxUploadSize caps receipt uploads; high-resolution phone photos can be
// large.
const maxUploadSize = int64(50 << 20) // 50MB

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes a JSON response body with the given status
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError maps a service error onto the HTTP taxonomy and writes a JSON
// error body
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNotYetAssigned):
		status = http.StatusBadRequest
	case errors.Is(err, ErrUpstream):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// handleHealth reports service liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// uploadResponse mirrors the client contract for a freshly parsed bill.
type uploadResponse struct {
	BillID         string          `json:"bill_id"`
	RestaurantName string          `json:"restaurant_name"`
	Items          []Item          `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	Tip            decimal.Decimal `json:"tip"`
	Total          decimal.Decimal `json:"total"`
}

// handleUploadReceipt accepts a multipart receipt image and returns the
// parsed bill
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errorMsg})
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file provided"})
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "File is too large. Maximum size is 50MB. Please compress or resize your image."})
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error reading file. Please try again."})
		return
	}

	// Browsers that don't sniff the type send application/octet-stream;
	// fall back to the file extension in that case.
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		switch ext {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	if !strings.HasPrefix(contentType, "image/") && contentType != "application/pdf" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "File must be an image or PDF"})
		return
	}

	bill, err := s.service.UploadReceipt(header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error processing receipt", "filename", header.Filename, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		BillID:         bill.ID,
		RestaurantName: bill.RestaurantName,
		Items:          bill.Items,
		Subtotal:       bill.Subtotal,
		Tax:            bill.Tax,
		Tip:            bill.Tip,
		Total:          bill.Total,
	})
}

// handleGetBill returns a single bill
func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := s.service.GetBill(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bill)
}

// assignRequest carries an item-to-people assignment plus the roster and an
// optional tip override.
type assignRequest struct {
	Assignments []split.Assignment `json:"assignments"`
	People      []string           `json:"people"`
	Tip         *decimal.Decimal   `json:"tip,omitempty"`
}

// handleAssign recomputes splits from an assignment request
func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	bill, err := s.service.AssignItems(r.PathValue("id"), req.Assignments, req.People, req.Tip)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"splits": bill.Splits})
}

// togglePaidRequest names the person whose paid flag should flip.
type togglePaidRequest struct {
	Person string `json:"person"`
}

// handleTogglePaid flips one person's paid flag
func (s *Server) handleTogglePaid(w http.ResponseWriter, r *http.Request) {
	var req togglePaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	bill, err := s.service.TogglePaid(r.PathValue("id"), req.Person)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"splits": bill.Splits})
}

// handlePaymentLinks builds payment links for everyone who owes money
func (s *Server) handlePaymentLinks(w http.ResponseWriter, r *http.Request) {
	organizerHandle := r.URL.Query().Get("organizer_venmo")
	organizerName := r.URL.Query().Get("organizer_name")

	summary, err := s.service.PaymentLinks(r.PathValue("id"), organizerHandle, organizerName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleBillImage serves the stored receipt image for a bill
func (s *Server) handleBillImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.BillImage(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteBill removes a bill and its image
func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteBill(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
