package constants

// Stage is a point in the detection job lifecycle.
type Stage string

// Stable values (stored verbatim in status documents).
const (
	StageUpload        Stage = "upload"        // source artifact registered
	StagePreprocessing Stage = "preprocessing" // building the inference request
	StageInference     Stage = "inference"     // external model call in flight
	StagePostprocess   Stage = "postprocess"   // aggregating detections
	StageComplete      Stage = "complete"      // terminal success
	StageFailed        Stage = "failed"        // terminal failure
)

// JobState is the coarse status derived from a stage.
type JobState string

const (
	StateProcessing JobState = "processing"
	StateCompleted  JobState = "completed"
	StateFailed     JobState = "failed"
)

// successOrder is the only legal stage sequence for a run that completes.
var successOrder = []Stage{
	StageUpload,
	StagePreprocessing,
	StageInference,
	StagePostprocess,
	StageComplete,
}

// Progress returns the fixed completion percentage for a stage.
// Failed resets to 0 as a deliberate abnormal-termination signal.
func (s Stage) Progress() int {
	switch s {
	case StageUpload:
		return 10
	case StagePreprocessing:
		return 25
	case StageInference:
		return 50
	case StagePostprocess:
		return 75
	case StageComplete:
		return 100
	default:
		return 0
	}
}

// ETA returns the advisory estimated seconds remaining at a stage.
func (s Stage) ETA() int {
	switch s {
	case StageUpload:
		return 20
	case StagePreprocessing:
		return 15
	case StageInference:
		return 10
	case StagePostprocess:
		return 5
	default:
		return 0
	}
}

// Message returns the default client-facing message for a stage. Failed
// stages carry a diagnostic message instead.
func (s Stage) Message() string {
	switch s {
	case StageUpload:
		return "Blueprint uploaded, preparing for processing..."
	case StagePreprocessing:
		return "Preparing image for inference..."
	case StageInference:
		return "Running AI model inference..."
	case StagePostprocess:
		return "Finalizing detection results..."
	case StageComplete:
		return "Processing completed successfully"
	default:
		return ""
	}
}

// State maps a stage onto the coarse processing/completed/failed status.
func (s Stage) State() JobState {
	switch s {
	case StageComplete:
		return StateCompleted
	case StageFailed:
		return StateFailed
	default:
		return StateProcessing
	}
}

// Terminal reports whether a job at this stage has finished, for better or worse.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageFailed
}

func (s Stage) Valid() bool {
	switch s {
	case StageUpload, StagePreprocessing, StageInference, StagePostprocess, StageComplete, StageFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving between two stages is legal: one step
// forward along the success order, or any non-terminal stage to failed.
func CanTransition(from, to Stage) bool {
	if from.Terminal() {
		return false
	}
	if to == StageFailed {
		return true
	}
	for i := 0; i < len(successOrder)-1; i++ {
		if successOrder[i] == from && successOrder[i+1] == to {
			return true
		}
	}
	return false
}
