package pose

// Detected is one sample from the pose detector.
type Detected struct {
	Joints     Joints  `json:"joints"`
	Confidence float64 `json:"confidence"`
	BodyCount  int     `json:"body_count"`
}

// HasBody reports whether the sample carries a usable body at or above the
// confidence floor.
func (d Detected) HasBody(minConfidence float64) bool {
	return d.BodyCount > 0 && len(d.Joints) > 0 && d.Confidence >= minConfidence
}
