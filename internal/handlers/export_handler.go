package handlers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"catalog-import-service/internal/middleware"
	"catalog-import-service/internal/models"
	"catalog-import-service/internal/projection"
	"catalog-import-service/internal/repository"
	"catalog-import-service/internal/storage"
)

const exportSheet = "Products"

type ExportHandler struct {
	repo      *repository.ProductsRepository
	projector *projection.Projector
	archiver  storage.Archiver
	log       *logrus.Entry
}

// NewExportHandler creates an export handler. archiver may be nil, in which
// case archive requests are rejected.
func NewExportHandler(repo *repository.ProductsRepository, archiver storage.Archiver, logger *logrus.Logger) *ExportHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ExportHandler{
		repo:      repo,
		projector: projection.Default,
		archiver:  archiver,
		log:       logger.WithField("component", "handlers.export"),
	}
}

type exportFilters struct {
	IDs             []string `json:"ids"`
	CategoryID      string   `json:"categoryId"`
	IsActive        *bool    `json:"isActive"`
	InventoryStatus string   `json:"inventoryStatus"`
	Search          string   `json:"search"`
	Limit           int      `json:"limit"`
}

type exportRequest struct {
	Format  string        `json:"format"`
	Fields  []string      `json:"fields"`
	Filters exportFilters `json:"filters"`
	Archive bool          `json:"archive"`
}

// ExportArchiveResponse is returned when an export is archived instead of streamed
type ExportArchiveResponse struct {
	Success bool     `json:"success"`
	URL     string   `json:"url"`
	Count   int      `json:"count"`
	Fields  []string `json:"fields"`
}

// ListExportFields lists every field an export can request
// GET /api/v1/products/export/fields
func (h *ExportHandler) ListExportFields(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"fields":        h.projector.Fields(),
		"defaultFields": projection.DefaultFields,
	})
}

// ExportProducts renders the tenant's products in csv, xlsx or json
// POST /api/v1/products/export
func (h *ExportHandler) ExportProducts(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	format := projection.Format(req.Format)
	switch format {
	case "":
		format = projection.FormatCSV
	case projection.FormatCSV, projection.FormatXLSX, projection.FormatJSON:
	default:
		respondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv, xlsx or json", nil)
		return
	}

	fields := projection.DefaultFields
	if len(req.Fields) > 0 {
		fields = h.projector.Known(req.Fields)
		if len(fields) == 0 {
			respondError(c, http.StatusBadRequest, "NO_VALID_FIELDS", "None of the requested fields can be exported", req.Fields)
			return
		}
	}
	if req.Archive && h.archiver == nil {
		respondError(c, http.StatusBadRequest, "ARCHIVE_NOT_CONFIGURED", "Export archiving is not configured", nil)
		return
	}

	filter, err := req.Filters.toFilter()
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_FILTER", err.Error(), nil)
		return
	}
	products, err := h.repo.ListProducts(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.log.WithError(err).Error("Failed to list products for export")
		respondError(c, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to load products", err.Error())
		return
	}

	rows := make([]map[string]interface{}, len(products))
	for i := range products {
		rows[i] = h.projector.Project(&products[i], fields, format)
	}

	data, contentType, err := render(format, fields, rows)
	if err != nil {
		h.log.WithError(err).Error("Failed to render export")
		respondError(c, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to render export", err.Error())
		return
	}
	filename := fmt.Sprintf("products_%s.%s", time.Now().UTC().Format("20060102_150405"), format)

	h.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"format":    format,
		"count":     len(products),
		"archive":   req.Archive,
	}).Info("Products exported")

	if req.Archive {
		url, err := h.archiver.Archive(c.Request.Context(), tenantID, filename, contentType, data)
		if err != nil {
			h.log.WithError(err).Error("Failed to archive export")
			respondError(c, http.StatusBadGateway, "ARCHIVE_FAILED", "Failed to archive export", err.Error())
			return
		}
		c.JSON(http.StatusOK, ExportArchiveResponse{Success: true, URL: url, Count: len(products), Fields: fields})
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, data)
}

func (f exportFilters) toFilter() (repository.ProductFilter, error) {
	filter := repository.ProductFilter{
		CategoryID:      f.CategoryID,
		IsActive:        f.IsActive,
		InventoryStatus: models.InventoryStatus(f.InventoryStatus),
		Search:          f.Search,
		Limit:           f.Limit,
	}
	for _, raw := range f.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid product id %q", raw)
		}
		filter.IDs = append(filter.IDs, id)
	}
	return filter, nil
}

func render(format projection.Format, fields []string, rows []map[string]interface{}) ([]byte, string, error) {
	switch format {
	case projection.FormatJSON:
		data, err := json.Marshal(rows)
		return data, "application/json", err
	case projection.FormatXLSX:
		data, err := renderXLSX(fields, rows)
		return data, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", err
	default:
		data, err := renderCSV(fields, rows)
		return data, "text/csv", err
	}
}

func renderCSV(fields []string, rows []map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := make([]string, len(fields))
		for i, f := range fields {
			record[i] = cellString(row[f])
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func renderXLSX(fields []string, rows []map[string]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", exportSheet)
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	header := make([]interface{}, len(fields))
	for i, name := range fields {
		header[i] = name
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(fields), 1)
	f.SetCellStyle(exportSheet, "A1", last, headerStyle)

	for r, row := range rows {
		values := make([]interface{}, len(fields))
		for i, name := range fields {
			values[i] = row[name]
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
