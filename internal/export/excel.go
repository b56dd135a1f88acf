package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fairway/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

type bookingSource interface {
	GetDailyBookings(ctx context.Context, start, end time.Time) (map[string][]*models.Booking, error)
}

type baySource interface {
	GetBays(ctx context.Context) ([]*models.Bay, error)
}

type auditSource interface {
	ListEntries(ctx context.Context, objectType string, objectID int64, limit int) ([]*models.AuditEntry, error)
}

// ExcelExporter renders the booking schedule and the audit trail as xlsx
// workbooks under the configured export directory.
type ExcelExporter struct {
	bookings bookingSource
	bays     baySource
	audit    auditSource
	path     string
	logger   *zerolog.Logger
}

func NewExcelExporter(bookings bookingSource, bays baySource, audit auditSource, path string, logger *zerolog.Logger) *ExcelExporter {
	return &ExcelExporter{
		bookings: bookings,
		bays:     bays,
		audit:    audit,
		path:     path,
		logger:   logger,
	}
}

// ExportSchedule writes a bay-by-day occupancy grid for [startDate, endDate]
// and returns the file path.
func (e *ExcelExporter) ExportSchedule(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	dailyBookings, err := e.bookings.GetDailyBookings(ctx, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %v", err)
	}

	bays, err := e.bays.GetBays(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting bays: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Schedule"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s",
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02")))

	dateHeaders := e.writeDateHeaders(f, sheetName, startDate, endDate)
	e.writeBayHeaders(f, sheetName, bays)
	e.writeBookingData(f, sheetName, dailyBookings, bays, dateHeaders)

	_ = f.SetColWidth(sheetName, "A", "A", 25)
	for i := 'B'; i <= 'Z'; i++ {
		_ = f.SetColWidth(sheetName, string(i), string(i), 24)
	}

	lastCol := lastColumn(len(dateHeaders) + 1)
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", style)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("schedule_%s_to_%s.xlsx",
		startDate.Format("2006-01-02"),
		endDate.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("schedule export created")
	return filePath, nil
}

func (e *ExcelExporter) writeDateHeaders(f *excelize.File, sheetName string, startDate, endDate time.Time) map[string]int {
	col := 2
	currentDate := startDate
	dateHeaders := make(map[string]int)

	for !currentDate.After(endDate) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, currentDate.Format("Mon 02.01"))
		dateHeaders[currentDate.Format("2006-01-02")] = col

		style, _ := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		_ = f.SetCellStyle(sheetName, cell, cell, style)

		col++
		currentDate = currentDate.AddDate(0, 0, 1)
	}
	return dateHeaders
}

func (e *ExcelExporter) writeBayHeaders(f *excelize.File, sheetName string, bays []*models.Bay) {
	row := 3
	for _, bay := range bays {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		label := bay.Name
		if bay.Status == models.BayStatusMaintenance {
			label += " (maintenance)"
		}
		_ = f.SetCellValue(sheetName, cell, label)

		style, _ := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
			Font: &excelize.Font{Bold: true},
		})
		_ = f.SetCellStyle(sheetName, cell, cell, style)

		row++
	}
}

func (e *ExcelExporter) writeBookingData(
	f *excelize.File, sheetName string,
	dailyBookings map[string][]*models.Booking,
	bays []*models.Bay,
	dateHeaders map[string]int,
) {
	for dateKey, bookings := range dailyBookings {
		col, exists := dateHeaders[dateKey]
		if !exists {
			continue
		}

		bookingsByBay := make(map[int64][]*models.Booking)
		for _, booking := range bookings {
			bookingsByBay[booking.BayID] = append(bookingsByBay[booking.BayID], booking)
		}

		row := 3
		for _, bay := range bays {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			bayBookings := bookingsByBay[bay.ID]

			_ = f.SetCellValue(sheetName, cell, scheduleCellValue(bayBookings))

			styleID, err := e.cellStyle(f, bayBookings)
			if err == nil {
				_ = f.SetCellStyle(sheetName, cell, cell, styleID)
			}
			row++
		}
	}
}

func scheduleCellValue(bookings []*models.Booking) string {
	if len(bookings) == 0 {
		return "Free"
	}
	var cellValue string
	for _, booking := range bookings {
		cellValue += fmt.Sprintf("%s-%s %s [%s]\n",
			booking.StartTime.Format("15:04"),
			booking.EndTime.Format("15:04"),
			booking.MemberName,
			booking.Status)
	}
	return cellValue
}

// cellStyle colors a day cell: blocking bookings yellow, only settled ones
// green, empty days white.
func (e *ExcelExporter) cellStyle(f *excelize.File, bayBookings []*models.Booking) (int, error) {
	fillColor := "#FFFFFF"
	if len(bayBookings) > 0 {
		fillColor = "#C6EFCE"
		for _, booking := range bayBookings {
			if booking.Blocking() {
				fillColor = "#FFEB9C"
				break
			}
		}
	}

	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{fillColor}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	})
}

// ExportAuditLog writes the most recent audit entries as a flat sheet.
func (e *ExcelExporter) ExportAuditLog(ctx context.Context, objectType string, objectID int64, limit int) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	entries, err := e.audit.ListEntries(ctx, objectType, objectID, limit)
	if err != nil {
		return "", fmt.Errorf("error getting audit entries: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Audit"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"Entry ID", "Timestamp", "Action", "Actor ID", "Actor",
		"Object Type", "Object ID", "Object", "Previous", "New",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
	}

	for i, entry := range entries {
		row := i + 2
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), entry.EntryID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), entry.Timestamp.UTC().Format("2006-01-02 15:04:05"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), entry.Action)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), entry.ActorID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), entry.ActorName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), entry.ObjectType)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), entry.ObjectID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), entry.ObjectName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), entry.PreviousValue)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), entry.NewValue)
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "B", "B", 20)
	_ = f.SetColWidth(sheetName, "C", "H", 14)
	_ = f.SetColWidth(sheetName, "I", "J", 40)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("audit_export_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("audit export created")
	return filePath, nil
}

// lastColumn returns the column letter for a 1-based column count.
func lastColumn(colCount int) string {
	if colCount <= 26 {
		return string(rune('A' + colCount - 1))
	}

	firstChar := string(rune('A' + (colCount-1)/26 - 1))
	secondChar := string(rune('A' + (colCount-1)%26))
	return firstChar + secondChar
}
