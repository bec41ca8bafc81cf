// Package export renders results documents as XLSX workbooks.
package export

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/innergy/blueprint-detection/constants"
	"github.com/innergy/blueprint-detection/internal/entity"
)

const (
	detectionsSheet = "Detections"
	summarySheet    = "Summary"
)

// Service produces XLSX bytes for results exports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// Workbook renders a results document as a two-sheet workbook: one row per
// detection, plus a summary of the run's aggregates and element counts.
func (s *Service) Workbook(results *entity.Results) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	// Rename the default sheet rather than leaving it empty in the workbook.
	if err := f.SetSheetName(f.GetSheetName(0), detectionsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}

	write := func(sheet string, col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	headers := []string{"Class", "Confidence", "X", "Y", "Width", "Height", "Area"}
	for i, h := range headers {
		write(detectionsSheet, i+1, 1, h)
	}
	row := 2
	for _, d := range results.Detections {
		class := d.Class
		if class == "" {
			class = constants.UnknownElement
		}
		write(detectionsSheet, 1, row, class)
		write(detectionsSheet, 2, row, d.Confidence)
		write(detectionsSheet, 3, row, d.BoundingBox.X)
		write(detectionsSheet, 4, row, d.BoundingBox.Y)
		write(detectionsSheet, 5, row, d.BoundingBox.Width)
		write(detectionsSheet, 6, row, d.BoundingBox.Height)
		write(detectionsSheet, 7, row, d.Area)
		row++
	}
	_ = f.SetColWidth(detectionsSheet, "A", "A", 14)
	_ = f.SetColWidth(detectionsSheet, "B", "G", 12)

	summary := []struct {
		label string
		value any
	}{
		{"Blueprint ID", results.BlueprintID},
		{"Model Version", results.ModelVersion},
		{"Detected At", formatDetectedAt(results.DetectedAt)},
		{"Processing Time (s)", results.ProcessingTime},
		{"Total Detections", results.Statistics.TotalDetections},
		{"Total Rooms", results.Statistics.TotalRooms},
		{"Average Confidence", results.Statistics.AvgConfidence},
	}
	for i, kv := range summary {
		write(summarySheet, 1, i+1, kv.label)
		write(summarySheet, 2, i+1, kv.value)
	}
	row = len(summary) + 2
	write(summarySheet, 1, row, "Element")
	write(summarySheet, 2, row, "Count")
	row++
	for _, class := range sortedClasses(results.Statistics.ElementCounts) {
		write(summarySheet, 1, row, class)
		write(summarySheet, 2, row, results.Statistics.ElementCounts[class])
		row++
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 22)
	_ = f.SetColWidth(summarySheet, "B", "B", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"blueprint_id", results.BlueprintID,
		"rows", len(results.Detections),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// Filename returns the attachment name for a job's export.
func Filename(blueprintID string) string {
	return blueprintID + ".xlsx"
}

// sortedClasses orders element classes for display: known classes in
// canonical order, then everything else alphabetically.
func sortedClasses(counts map[string]int) []string {
	classes := make([]string, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool {
		ri, rj := constants.ElementRank(classes[i]), constants.ElementRank(classes[j])
		if ri != rj {
			return ri < rj
		}
		return classes[i] < classes[j]
	})
	return classes
}

func formatDetectedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
