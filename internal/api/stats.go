package api

import (
	"math"

	"github.com/dustin/go-humanize"
)

// Stats is the usage summary returned by the stats endpoint
type Stats struct {
	Summary     StatsSummary     `json:"summary"`
	Percentages StatsPercentages `json:"percentages"`

	// DaysBack is the window that was requested, not part of the response
	DaysBack int `json:"-"`
}

// StatsSummary counters accept both 12 and 12.0 from the backend
type StatsSummary struct {
	TotalImagesAnalyzed  float64 `json:"total_images_analyzed"`
	ImagesWithFaces      float64 `json:"images_with_faces"`
	TotalObjectsDetected float64 `json:"total_objects_detected"`
	ImagesWithText       float64 `json:"images_with_text"`
	AverageConfidence    float64 `json:"average_confidence"`
	TotalFacesDetected   float64 `json:"total_faces_detected"`
}

type StatsPercentages struct {
	Faces   float64 `json:"faces"`
	Objects float64 `json:"objects"`
	Text    float64 `json:"text"`
}

// FormatCount renders a counter with thousands separators
func FormatCount(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}
