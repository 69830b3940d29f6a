package handlers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"catalog-import-service/internal/events"
	"catalog-import-service/internal/importer"
	"catalog-import-service/internal/middleware"
	"catalog-import-service/internal/models"
	"catalog-import-service/internal/repository"
)

// DefaultMaxImportRows caps a single import request
const DefaultMaxImportRows = 5000

type ImportHandler struct {
	repo      *repository.ProductsRepository
	locker    *repository.ImportLocker
	publisher *events.Publisher
	maxRows   int
	logger    *logrus.Logger
	log       *logrus.Entry
}

func NewImportHandler(repo *repository.ProductsRepository, locker *repository.ImportLocker, publisher *events.Publisher, maxRows int, logger *logrus.Logger) *ImportHandler {
	if maxRows <= 0 {
		maxRows = DefaultMaxImportRows
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ImportHandler{
		repo:      repo,
		locker:    locker,
		publisher: publisher,
		maxRows:   maxRows,
		logger:    logger,
		log:       logger.WithField("component", "handlers.import"),
	}
}

// importRequest is the JSON body form of validate and import
type importRequest struct {
	Products []models.CandidateProduct `json:"products"`
	Options  models.ImportOptions      `json:"options"`
}

// ImportResponse is returned by the import endpoint
type ImportResponse struct {
	Success      bool                      `json:"success"`
	Summary      models.ImportSummary      `json:"summary"`
	Results      []models.ImportResult     `json:"results"`
	Validation   []models.ValidationResult `json:"validation"`
	ProcessingMs int64                     `json:"processingMs"`
}

// ValidationResponse is returned by the validate endpoint and by dry runs
type ValidationResponse struct {
	Success bool                      `json:"success"`
	Total   int                       `json:"total"`
	Valid   int                       `json:"valid"`
	Invalid int                       `json:"invalid"`
	Results []models.ValidationResult `json:"results"`
}

// GetImportTemplate returns the import template definition or file
// GET /api/v1/products/import/template
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	template := models.ProductImportTemplate()

	switch c.DefaultQuery("format", "json") {
	case "csv":
		h.generateCSVTemplate(c, template)
	case "xlsx":
		h.generateXLSXTemplate(c, template)
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
	}
}

// generateCSVTemplate writes the header row and the sample rows
func (h *ImportHandler) generateCSVTemplate(c *gin.Context, template models.ImportTemplate) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=products_import_template.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	writer.Write(headers)
	for _, sample := range template.SampleData {
		row := make([]string, len(template.Columns))
		for i, col := range template.Columns {
			row[i] = sample[col.Name]
		}
		writer.Write(row)
	}
}

// generateXLSXTemplate writes a Products sheet with styled headers and an
// Instructions sheet describing every column
func (h *ImportHandler) generateXLSXTemplate(c *gin.Context, template models.ImportTemplate) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Products"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})

	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		style := headerStyle
		if col.Required {
			headerText = col.Name + " *"
			style = requiredStyle
		}
		f.SetCellValue(sheetName, cell, headerText)
		f.SetCellStyle(sheetName, cell, cell, style)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 20)
	}

	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", "Product Import Instructions")
	f.SetCellValue("Instructions", "A3", "Columns marked * are required. Category IDs must already exist.")
	f.SetCellValue("Instructions", "A4", "Variants: size/color/stock[/sku] entries separated by ';', e.g. M/Black/10;L/Black/4")
	f.SetCellValue("Instructions", "A5", "Images: URLs separated by '|'. The first image becomes the primary image.")

	f.SetCellValue("Instructions", "A7", "Column")
	f.SetCellValue("Instructions", "B7", "Description")
	f.SetCellValue("Instructions", "C7", "Required")
	f.SetCellValue("Instructions", "D7", "Type")
	f.SetCellValue("Instructions", "E7", "Example")
	for i, col := range template.Columns {
		row := i + 8
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetSheetRow("Instructions", fmt.Sprintf("A%d", row), &[]interface{}{col.Name, col.Description, required, col.Type, col.Example})
	}
	f.SetColWidth("Instructions", "A", "A", 25)
	f.SetColWidth("Instructions", "B", "B", 60)
	f.SetColWidth("Instructions", "C", "D", 15)
	f.SetColWidth("Instructions", "E", "E", 40)

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=products_import_template.xlsx")
	if err := f.Write(c.Writer); err != nil {
		h.log.WithError(err).Error("Failed to write XLSX template")
	}
}

// ValidateImport checks a batch without writing anything
// POST /api/v1/products/import/validate
func (h *ImportHandler) ValidateImport(c *gin.Context) {
	candidates, _, ok := h.readCandidates(c)
	if !ok {
		return
	}
	store := h.repo.Scoped(middleware.GetTenantID(c))
	results := importer.NewValidator(store, h.logger).Validate(c.Request.Context(), candidates)
	c.JSON(http.StatusOK, validationResponse(results))
}

// ImportProducts validates a batch, then creates, updates or skips each valid
// record. Invalid records are reported as errors without being written.
// POST /api/v1/products/import
func (h *ImportHandler) ImportProducts(c *gin.Context) {
	startTime := time.Now()
	tenantID := middleware.GetTenantID(c)
	ctx := c.Request.Context()

	candidates, opts, ok := h.readCandidates(c)
	if !ok {
		return
	}

	store := h.repo.Scoped(tenantID)
	if opts.ValidateOnly {
		results := importer.NewValidator(store, h.logger).Validate(ctx, candidates)
		c.JSON(http.StatusOK, validationResponse(results))
		return
	}

	release, err := h.locker.Acquire(ctx, tenantID)
	if errors.Is(err, repository.ErrImportInProgress) {
		respondError(c, http.StatusConflict, "IMPORT_IN_PROGRESS", err.Error(), nil)
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("tenant_id", tenantID).Error("Failed to acquire import lock")
		respondError(c, http.StatusServiceUnavailable, "LOCK_UNAVAILABLE", "Could not start the import, please retry", nil)
		return
	}
	defer release()

	validation := importer.NewValidator(store, h.logger).Validate(ctx, candidates)
	valid := importer.FilterValid(candidates, validation)
	executed, _, err := importer.NewExecutor(store, h.logger).Execute(ctx, valid, opts)
	if err != nil {
		h.log.WithError(err).Error("Import executor unavailable")
		respondError(c, http.StatusInternalServerError, "IMPORT_FAILED", err.Error(), nil)
		return
	}

	results := importer.MergeResults(validation, executed)
	summary := importer.Summarize(results)

	h.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"total":     summary.Total,
		"imported":  summary.Imported,
		"updated":   summary.Updated,
		"skipped":   summary.Skipped,
		"errors":    summary.Errors,
	}).Info("Import finished")
	h.publisher.PublishImportCompleted(ctx, tenantID, middleware.GetUserID(c), summary, results)

	c.JSON(http.StatusOK, ImportResponse{
		Success:      summary.Success,
		Summary:      summary,
		Results:      results,
		Validation:   validation,
		ProcessingMs: time.Since(startTime).Milliseconds(),
	})
}

// readCandidates accepts a multipart upload (file + option fields) or a JSON
// body. It writes the error response itself and returns ok=false on failure.
func (h *ImportHandler) readCandidates(c *gin.Context) ([]models.CandidateProduct, models.ImportOptions, bool) {
	var (
		candidates []models.CandidateProduct
		opts       models.ImportOptions
	)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			respondError(c, http.StatusBadRequest, "FILE_REQUIRED", "Please upload a CSV, Excel or JSON file", nil)
			return nil, opts, false
		}
		defer file.Close()

		opts = models.ImportOptions{
			SkipDuplicates: c.DefaultPostForm("skipDuplicates", "false") == "true",
			UpdateExisting: c.DefaultPostForm("updateExisting", "false") == "true",
			ValidateOnly:   c.DefaultPostForm("validateOnly", "false") == "true",
		}

		format, ok := importFormat(header.Filename)
		if !ok {
			respondError(c, http.StatusBadRequest, "INVALID_FORMAT", "Only CSV, XLSX and JSON files are supported", nil)
			return nil, opts, false
		}

		candidates, err = readFile(format, file)
		if err != nil {
			respondError(c, http.StatusBadRequest, "PARSE_ERROR", err.Error(), nil)
			return nil, opts, false
		}
	} else {
		var req importRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return nil, opts, false
		}
		candidates, opts = req.Products, req.Options
	}

	if len(candidates) == 0 {
		respondError(c, http.StatusBadRequest, "EMPTY_IMPORT", "The import contains no products", nil)
		return nil, opts, false
	}
	if len(candidates) > h.maxRows {
		respondError(c, http.StatusRequestEntityTooLarge, "TOO_MANY_ROWS",
			fmt.Sprintf("An import may contain at most %d products, got %d", h.maxRows, len(candidates)), nil)
		return nil, opts, false
	}
	return candidates, opts, true
}

func readFile(format models.ImportFormat, file io.Reader) ([]models.CandidateProduct, error) {
	switch format {
	case models.ImportFormatCSV:
		rows, err := parseCSV(file)
		if err != nil {
			return nil, err
		}
		return importer.CandidatesFromRows(rows), nil
	case models.ImportFormatXLSX:
		rows, err := parseXLSX(file)
		if err != nil {
			return nil, err
		}
		return importer.CandidatesFromRows(rows), nil
	default:
		return decodeJSONCandidates(file)
	}
}

// decodeJSONCandidates accepts either a bare array or {"products": [...]}
func decodeJSONCandidates(file io.Reader) ([]models.CandidateProduct, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '[' {
		var list []models.CandidateProduct
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return list, nil
	}
	var req importRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return req.Products, nil
}

func validationResponse(results []models.ValidationResult) ValidationResponse {
	resp := ValidationResponse{Success: true, Total: len(results), Results: results}
	for _, r := range results {
		if r.Valid {
			resp.Valid++
		} else {
			resp.Invalid++
		}
	}
	resp.Success = resp.Invalid == 0
	return resp
}
