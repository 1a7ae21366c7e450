package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"stock-reconciliation-service/internal/middleware"
	"stock-reconciliation-service/internal/models"
	"stock-reconciliation-service/internal/services"
)

// ExportFormat represents the file format for export and import
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXLSX ExportFormat = "xlsx"

	// exportBatchLimit caps one export download
	exportBatchLimit = 10000
)

// ImportRowError represents an error for a specific row
type ImportRowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ImportResult represents the result of a count sheet import
type ImportResult struct {
	Success      bool             `json:"success"`
	TotalRows    int              `json:"totalRows"`
	SuccessCount int              `json:"successCount"`
	FailedCount  int              `json:"failedCount"`
	Errors       []ImportRowError `json:"errors,omitempty"`
}

type ExportHandler struct {
	coordinator *services.Coordinator
}

func NewExportHandler(coordinator *services.Coordinator) *ExportHandler {
	return &ExportHandler{coordinator: coordinator}
}

var movementExportColumns = []string{
	"recordedAt", "productId", "location", "delta", "resultingOnHand",
	"sourceType", "sourceId", "operationId", "lineNo", "recordedBy",
}

// ExportMovements downloads the audit trail as CSV or Excel
// GET /api/v1/movements/export
func (h *ExportHandler) ExportMovements(c *gin.Context) {
	filter := movementFilterFromQuery(c)

	movements, _, err := h.coordinator.ListMovements(c.Request.Context(), filter, 1, exportBatchLimit)
	if err != nil {
		respondError(c, err)
		return
	}

	rows := make([][]string, 0, len(movements))
	for _, m := range movements {
		rows = append(rows, []string{
			m.RecordedAt.Format(time.RFC3339),
			m.ProductID,
			m.Location,
			strconv.Itoa(m.Delta),
			strconv.Itoa(m.ResultingOnHand),
			string(m.SourceType),
			m.SourceID.String(),
			m.OperationID.String(),
			strconv.Itoa(m.LineNo),
			m.RecordedBy,
		})
	}

	switch ExportFormat(c.DefaultQuery("format", "csv")) {
	case ExportFormatXLSX:
		h.writeXLSX(c, "Movements", "movements", movementExportColumns, rows)
	default:
		h.writeCSV(c, "movements", movementExportColumns, rows)
	}
}

// ExportCountSheet downloads a blind count sheet for an OPEN session.
// The sheet carries no system quantities; counters fill countedQuantity
// in the aisle and upload the file back.
// GET /api/v1/cycle-counts/:id/sheet
func (h *ExportHandler) ExportCountSheet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalidID(c, "session")
		return
	}

	view, err := h.coordinator.GetCycleCountForCounter(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	columns := []string{"lineNo", "productId", "countedQuantity"}
	rows := make([][]string, 0, len(view.Lines))
	for _, line := range view.Lines {
		counted := ""
		if line.CountedQuantity != nil {
			counted = strconv.Itoa(*line.CountedQuantity)
		}
		rows = append(rows, []string{
			strconv.Itoa(line.LineNo),
			line.ProductID,
			counted,
		})
	}

	name := strings.ToLower(view.Number)
	switch ExportFormat(c.DefaultQuery("format", "xlsx")) {
	case ExportFormatCSV:
		h.writeCSV(c, name, columns, rows)
	default:
		h.writeXLSX(c, "Count Sheet", name, columns, rows)
	}
}

// ImportCounts uploads a filled count sheet and records each row against
// the session. Rows are applied one at a time; a bad row is reported and
// skipped, it does not abort the rest.
// POST /api/v1/cycle-counts/:id/import
func (h *ExportHandler) ImportCounts(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalidID(c, "session")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "FILE_REQUIRED", Message: "Please upload a CSV or Excel file"},
		})
		return
	}
	defer file.Close()

	var rows []map[string]string
	if strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
		rows, err = parseXLSX(file)
	} else {
		rows, err = parseCSV(file)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "PARSE_FAILED", Message: err.Error()},
		})
		return
	}

	actor := middleware.GetActorID(c)
	result := &ImportResult{
		TotalRows: len(rows),
		Errors:    make([]ImportRowError, 0),
	}

	for _, row := range rows {
		rowNum, _ := strconv.Atoi(row["_row"])

		productID := row["productid"]
		if productID == "" {
			result.Errors = append(result.Errors, ImportRowError{
				Row: rowNum, Column: "productId", Code: "REQUIRED_FIELD",
				Message: "Required field 'productId' is empty",
			})
			continue
		}
		if row["countedquantity"] == "" {
			// Blank count means the counter skipped the row
			continue
		}
		counted, convErr := strconv.Atoi(row["countedquantity"])
		if convErr != nil || counted < 0 {
			result.Errors = append(result.Errors, ImportRowError{
				Row: rowNum, Column: "countedQuantity", Code: "INVALID_VALUE",
				Message: fmt.Sprintf("'%s' is not a valid quantity", row["countedquantity"]),
			})
			continue
		}

		_, recordErr := h.coordinator.RecordCount(c.Request.Context(), id, &models.RecordCountRequest{
			ProductID:       productID,
			CountedQuantity: &counted,
		}, actor)
		if recordErr != nil {
			result.Errors = append(result.Errors, ImportRowError{
				Row: rowNum, Column: "productId", Code: "RECORD_FAILED",
				Message: recordErr.Error(),
			})
			continue
		}
		result.SuccessCount++
	}

	result.FailedCount = len(result.Errors)
	result.Success = result.FailedCount == 0

	status := http.StatusOK
	if result.SuccessCount == 0 && result.FailedCount > 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, result)
}

func (h *ExportHandler) writeCSV(c *gin.Context, filename string, columns []string, rows [][]string) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(columns)
	for _, row := range rows {
		writer.Write(row)
	}
}

func (h *ExportHandler) writeXLSX(c *gin.Context, sheetName, filename string, columns []string, rows [][]string) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})

	for i, column := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, column)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 18)
	}

	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", filename))

	f.Write(c.Writer)
}

func parseCSV(file io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(file)

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.ToLower(headers[i]))
		headers[i] = strings.TrimSuffix(headers[i], " *")
	}

	var rows []map[string]string
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", lineNum+1, err)
		}

		row := make(map[string]string)
		for i, value := range record {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		row["_row"] = strconv.Itoa(lineNum + 1)
		rows = append(rows, row)
		lineNum++
	}

	return rows, nil
}

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

	excelRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	if len(excelRows) < 2 {
		return nil, fmt.Errorf("file must have a header row and at least one data row")
	}

	headers := excelRows[0]
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.ToLower(headers[i]))
		headers[i] = strings.TrimSuffix(headers[i], " *")
	}

	var rows []map[string]string
	for rowIdx, excelRow := range excelRows[1:] {
		row := make(map[string]string)
		for i, value := range excelRow {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		row["_row"] = strconv.Itoa(rowIdx + 2)
		rows = append(rows, row)
	}

	return rows, nil
}
