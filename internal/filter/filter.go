// Package filter applies confidence and label acceptance rules to raw
// inference output.
package filter

import (
	"strings"

	"wingwatch/internal/models"
)

// Accept returns the detections that pass the confidence threshold (boundary
// inclusive) and, when allowedLabels is non-empty, carry an allowed label.
// Same-label duplicates within one call are kept as independent detections.
// The input slice is never mutated.
func Accept(detections []models.Detection, confidenceThreshold float64, allowedLabels []string) []models.Detection {
	accepted := make([]models.Detection, 0, len(detections))
	for _, det := range detections {
		if det.Confidence < confidenceThreshold {
			continue
		}
		if len(allowedLabels) > 0 && !labelAllowed(det.Label, allowedLabels) {
			continue
		}
		accepted = append(accepted, det)
	}
	return accepted
}

func labelAllowed(label string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(label, a) {
			return true
		}
	}
	return false
}
