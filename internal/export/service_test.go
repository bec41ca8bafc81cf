package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/innergy/blueprint-detection/internal/entity"
)

func TestWorkbookLayout(t *testing.T) {
	results := &entity.Results{
		BlueprintID:    "blueprint-0a1b2c3d4e5f",
		ModelVersion:   "1.0.0",
		ProcessingTime: 1.23,
		DetectedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Detections: []entity.Detection{
			{Class: "wall", Confidence: 0.9, BoundingBox: entity.BoundingBox{X: 1, Y: 2, Width: 3, Height: 4}, Area: 12},
			{Class: "door", Confidence: 0.8, BoundingBox: entity.BoundingBox{X: 5, Y: 6, Width: 7, Height: 8}},
			{Class: "", Confidence: 0.5},
		},
		Statistics: entity.Statistics{
			TotalDetections: 3,
			TotalRooms:      2,
			AvgConfidence:   0.73,
			ElementCounts:   map[string]int{"zone": 1, "door": 1, "wall": 1},
			ProcessingSteps: []string{"upload", "inference", "postprocess"},
		},
		Dimensions: entity.Dimensions{Width: 800, Height: 600},
	}

	b, err := NewService(nil).Workbook(results)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	assert.ElementsMatch(t, []string{"Detections", "Summary"}, f.GetSheetList())

	rows, err := f.GetRows(detectionsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Class", "Confidence", "X", "Y", "Width", "Height", "Area"}, rows[0])
	assert.Equal(t, "wall", rows[1][0])
	assert.Equal(t, "0.9", rows[1][1])
	assert.Equal(t, "door", rows[2][0])
	// Unlabelled detections export under the unknown bucket.
	assert.Equal(t, "unknown", rows[3][0])

	sum, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, sum, 12)
	assert.Equal(t, []string{"Blueprint ID", "blueprint-0a1b2c3d4e5f"}, sum[0])
	assert.Equal(t, []string{"Model Version", "1.0.0"}, sum[1])
	assert.Equal(t, []string{"Detected At", "2026-03-01T10:00:00Z"}, sum[2])
	assert.Equal(t, []string{"Processing Time (s)", "1.23"}, sum[3])
	assert.Equal(t, []string{"Total Detections", "3"}, sum[4])
	assert.Equal(t, []string{"Total Rooms", "2"}, sum[5])
	assert.Equal(t, []string{"Average Confidence", "0.73"}, sum[6])
	assert.Empty(t, sum[7])
	assert.Equal(t, []string{"Element", "Count"}, sum[8])

	// Known classes in canonical order, then the rest alphabetically.
	assert.Equal(t, []string{"wall", "1"}, sum[9])
	assert.Equal(t, []string{"door", "1"}, sum[10])
	assert.Equal(t, []string{"zone", "1"}, sum[11])
}

func TestWorkbookNoDetections(t *testing.T) {
	results := &entity.Results{
		BlueprintID:  "blueprint-ffffffffffff",
		ModelVersion: "1.0.0",
		Detections:   []entity.Detection{},
		Statistics:   entity.Statistics{ElementCounts: map[string]int{}},
	}

	b, err := NewService(nil).Workbook(results)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	rows, err := f.GetRows(detectionsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "blueprint-0a1b2c3d4e5f.xlsx", Filename("blueprint-0a1b2c3d4e5f"))
}
