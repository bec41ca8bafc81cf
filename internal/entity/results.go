package entity

import "time"

// BoundingBox locates a detection in source-image pixel coordinates.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is one element found by the inference service. Detections carry
// no identity; order of appearance is not meaningful.
type Detection struct {
	Class       string      `json:"class"`
	Confidence  float64     `json:"confidence"`
	BoundingBox BoundingBox `json:"boundingBox"`
	Area        float64     `json:"area,omitempty"`
}

// Dimensions holds the source-image size reported by the inference service.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Statistics aggregates a results document's detections.
type Statistics struct {
	TotalDetections int            `json:"totalDetections"`
	TotalRooms      int            `json:"totalRooms"`
	AvgConfidence   float64        `json:"avgConfidence"`
	ElementCounts   map[string]int `json:"elementCounts"`
	ProcessingSteps []string       `json:"processingSteps"`
}

// Results is the terminal document for a successful run, created at most
// once and immutable after that.
type Results struct {
	BlueprintID    string      `json:"blueprintId"`
	ModelVersion   string      `json:"modelVersion"`
	ProcessingTime float64     `json:"processingTime"`
	DetectedAt     time.Time   `json:"detectedAt"`
	Detections     []Detection `json:"detections"`
	Statistics     Statistics  `json:"statistics"`
	Dimensions     Dimensions  `json:"dimensions"`
}
