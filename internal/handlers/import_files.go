package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"catalog-import-service/internal/importer"
	"catalog-import-service/internal/models"
)

// importFormat picks the parser from the uploaded file name
func importFormat(filename string) (models.ImportFormat, bool) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return models.ImportFormatCSV, true
	case strings.HasSuffix(lower, ".xlsx"):
		return models.ImportFormatXLSX, true
	case strings.HasSuffix(lower, ".json"):
		return models.ImportFormatJSON, true
	}
	return "", false
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.TrimSpace(strings.ToLower(h))
	// XLSX templates mark required columns with " *"
	return strings.TrimSuffix(h, " *")
}

// parseCSV reads a header row and returns one map per data row keyed by the
// lowercased header, skipping blank lines
func parseCSV(file io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range headers {
		headers[i] = normalizeHeader(headers[i])
	}

	var rows []map[string]string
	lineNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", lineNum, err)
		}
		if blankRecord(record) {
			continue
		}
		rows = append(rows, toRow(headers, record, lineNum))
	}
	return rows, nil
}

// parseXLSX reads the "Products" sheet, or the first sheet when absent
func parseXLSX(file io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}
	sheetName := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, "Products") {
			sheetName = name
			break
		}
	}

	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(excelRows) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row", sheetName)
	}

	headers := excelRows[0]
	for i := range headers {
		headers[i] = normalizeHeader(headers[i])
	}

	var rows []map[string]string
	for idx, excelRow := range excelRows[1:] {
		if blankRecord(excelRow) {
			continue
		}
		rows = append(rows, toRow(headers, excelRow, idx+2))
	}
	return rows, nil
}

func toRow(headers, record []string, line int) map[string]string {
	row := make(map[string]string, len(headers)+1)
	for i, value := range record {
		if i < len(headers) && headers[i] != "" {
			row[headers[i]] = strings.TrimSpace(value)
		}
	}
	row[importer.RowNumberKey] = strconv.Itoa(line)
	return row
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
