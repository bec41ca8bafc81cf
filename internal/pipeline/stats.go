package pipeline

import (
	"math"
	"time"

	"github.com/innergy/blueprint-detection/constants"
	"github.com/innergy/blueprint-detection/internal/detector"
	"github.com/innergy/blueprint-detection/internal/entity"
)

// processingSteps is the fixed provenance trail recorded in every results
// document.
var processingSteps = []string{"upload", "inference", "postprocess"}

// BuildResults formats a validated inference response into the results
// document. Detections with an empty class label are counted under the
// unknown bucket; the service-reported aggregates default to zero when
// absent from the response.
func BuildResults(blueprintID, modelVersion string, resp *detector.Response, elapsed time.Duration) *entity.Results {
	detections := resp.Detections
	if detections == nil {
		detections = []entity.Detection{}
	}

	counts := make(map[string]int, len(detections))
	for _, d := range detections {
		class := d.Class
		if class == "" {
			class = constants.UnknownElement
		}
		counts[class]++
	}

	return &entity.Results{
		BlueprintID:    blueprintID,
		ModelVersion:   modelVersion,
		ProcessingTime: round2(elapsed.Seconds()),
		DetectedAt:     time.Now().UTC(),
		Detections:     detections,
		Statistics: entity.Statistics{
			TotalDetections: len(detections),
			TotalRooms:      resp.TotalRooms,
			AvgConfidence:   round2(resp.AvgConfidence),
			ElementCounts:   counts,
			ProcessingSteps: processingSteps,
		},
		Dimensions: resp.Dimensions,
	}
}

// round2 rounds to the two decimal places stored for elapsed seconds and
// confidence aggregates.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
