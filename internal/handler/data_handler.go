package handler

import (
	"io"
	"net/http"

	"loyaltytracker/internal/service"
)

// DataHandler handles export, import and clearing of the loyalty document
type DataHandler struct {
	loyaltyService *service.LoyaltyService
	dataService    *service.DataService
}

// NewDataHandler creates a new data handler
func NewDataHandler(loyaltyService *service.LoyaltyService, dataService *service.DataService) *DataHandler {
	return &DataHandler{
		loyaltyService: loyaltyService,
		dataService:    dataService,
	}
}

// Export handles GET /data/export
func (h *DataHandler) Export(w http.ResponseWriter, r *http.Request) {
	data := h.loyaltyService.ExportData(r.Context())
	if data == "" {
		WriteError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "no data has been saved yet")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="loyalty-data.json"`)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, data)
}

// Import handles POST /data/import with a previously exported document as the body
func (h *DataHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		WriteValidationError(w, "failed to read request body")
		return
	}
	if len(body) == 0 {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
		return
	}

	if !h.loyaltyService.ImportData(r.Context(), string(body)) {
		WriteValidationError(w, "import rejected: not a valid loyalty export")
		return
	}

	WriteOK(w, h.loyaltyService.Summary())
}

// Clear handles DELETE /data?confirm=true
func (h *DataHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		WriteValidationError(w, "clearing all data requires confirm=true")
		return
	}

	if !h.loyaltyService.ClearAllData(r.Context()) {
		WriteInternalError(w)
		return
	}

	WriteNoContent(w)
}

// Storage handles GET /data/storage
func (h *DataHandler) Storage(w http.ResponseWriter, r *http.Request) {
	WriteOK(w, h.dataService.GetStorageInfo(r.Context()))
}

// Stats handles GET /stats
func (h *DataHandler) Stats(w http.ResponseWriter, r *http.Request) {
	WriteOK(w, h.loyaltyService.Summary())
}
