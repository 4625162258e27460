package sale

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zombor/cashier/internal/scanning"
)

// maxUploadSize bounds image and ticket uploads (phone photos run large)
const maxUploadSize = int64(20 << 20)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// pathIndex reads the {index} path value
func pathIndex(r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		return 0, false
	}
	return index, true
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleStaticCSS serves the CSS file
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

// handleStaticJS serves the JavaScript file
func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(appJS)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Items())
}

// handleUpdateItem changes the price and/or image of one item
func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid item index")
		return
	}

	var req struct {
		Price *string `json:"price"`
		Image *string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snap, err := s.service.UpdateItem(index, req.Price, req.Image)
	if errors.Is(err, ErrItemNotFound) {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}
	if err != nil {
		slog.Error("Error updating item", "index", index, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleResetItems(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Reset()
	if err != nil {
		slog.Error("Error resetting items", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// readUpload pulls the "file" part out of a multipart form.
// On failure it has already written the response.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 20MB.")
			return nil, "", false
		}
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return nil, "", false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return nil, "", false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return nil, "", false
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFromExt(header.Filename)
	}
	return data, contentType, true
}

func contentTypeFromExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleUploadImage stores a picture for one item
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid item index")
		return
	}

	data, contentType, ok := readUpload(w, r)
	if !ok {
		return
	}

	snap, err := s.service.UploadImage(index, data, contentType)
	switch {
	case errors.Is(err, ErrItemNotFound):
		writeError(w, http.StatusNotFound, "Item not found")
	case errors.Is(err, scanning.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		slog.Error("Error uploading image", "index", index, "error", err)
		writeError(w, http.StatusInternalServerError, "Error saving image")
	default:
		writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.GetImage(r.PathValue("name"))
	if errors.Is(err, ErrFileNotFound) {
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Error reading image", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := s.service.ListSales()
	if err != nil {
		slog.Error("Error listing sales", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Ensure we always return an array, not nil
	if sales == nil {
		sales = []*Sale{}
	}
	writeJSON(w, http.StatusOK, sales)
}

// handleSubmitSale records a sale for the current total
func (s *Server) handleSubmitSale(w http.ResponseWriter, r *http.Request) {
	sale, err := s.service.Submit()
	if errors.Is(err, ErrInvalidTotal) {
		writeError(w, http.StatusBadRequest, "Total must be greater than 0")
		return
	}
	if err != nil {
		slog.Error("Error submitting sale", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (s *Server) handleRevenue(w http.ResponseWriter, r *http.Request) {
	rev, err := s.service.Revenue()
	if err != nil {
		slog.Error("Error loading revenue", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// handleScanTicket fills in prices from a photographed order ticket
func (s *Server) handleScanTicket(w http.ResponseWriter, r *http.Request) {
	data, contentType, ok := readUpload(w, r)
	if !ok {
		return
	}

	result, err := s.service.ScanTicket(data, contentType)
	switch {
	case errors.Is(err, ErrNoScanner):
		writeError(w, http.StatusServiceUnavailable, "Ticket scanning is not configured")
	case errors.Is(err, scanning.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusBadGateway, "Could not read the ticket. Please enter prices by hand.")
	default:
		writeJSON(w, http.StatusOK, result)
	}
}
