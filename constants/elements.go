package constants

// UnknownElement is the statistics bucket for detections with no class label.
const UnknownElement = "unknown"

// DefaultConfidence is the detection threshold applied when a caller does
// not supply one. Caller-supplied values are forwarded to the model as
// given, without clamping.
const DefaultConfidence = 0.5

// KnownElements lists the element classes the detection model is trained on,
// in display order for summaries and exports. Detections may carry labels
// outside this set; those sort after the known ones.
var KnownElements = []string{"wall", "door", "window", "room"}

// ElementRank returns the display rank of an element class: known classes in
// canonical order first, everything else after.
func ElementRank(class string) int {
	for i, e := range KnownElements {
		if e == class {
			return i
		}
	}
	return len(KnownElements)
}
