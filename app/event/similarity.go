package event

import (
	"log/slog"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// SimilarityConfig carries the empirically tuned duplicate-detection
// thresholds. The defaults match the values the production trust tables were
// calibrated against; treat them as starting points, not optima.
type SimilarityConfig struct {
	// EditDistanceRatio flags two titles as duplicates when their edit
	// distance is at most this fraction of their average length.
	EditDistanceRatio float64
	// ImageMismatchThreshold flags two images as duplicates when their
	// perceptual mismatch percentage is strictly below it.
	ImageMismatchThreshold float64
}

func DefaultSimilarityConfig() SimilarityConfig {
	return SimilarityConfig{
		EditDistanceRatio:      0.2,
		ImageMismatchThreshold: 75.0,
	}
}

// Similarity decides whether two records describe the same real-world event.
type Similarity struct {
	cfg SimilarityConfig
}

func NewSimilarity(cfg SimilarityConfig) *Similarity {
	return &Similarity{cfg: cfg}
}

// AreDuplicates runs the ordered duplicate checks; the first match wins.
// Title checks apply regardless of source. The perceptual image check is
// skipped for records from the same source: coincidental visual similarity
// within one source produces too many false positives.
func (s *Similarity) AreDuplicates(a, b *Record) (bool, DuplicateReason) {
	if a.Title == b.Title {
		return true, DuplicateSameTitle
	}

	lenA := utf8.RuneCountInString(a.Title)
	lenB := utf8.RuneCountInString(b.Title)
	averageLength := float64(lenA+lenB) / 2
	distance := levenshtein.ComputeDistance(a.Title, b.Title)
	if float64(distance) <= averageLength*s.cfg.EditDistanceRatio {
		return true, DuplicateEditDistance
	}

	if a.Source == b.Source {
		return false, DuplicateNone
	}
	if a.LocalImagePath == "" || b.LocalImagePath == "" {
		return false, DuplicateNone
	}

	mismatch, err := CompareImages(a.LocalImagePath, b.LocalImagePath)
	if err != nil {
		// A record with a broken image is never merged on visual evidence.
		slog.Debug("Image comparison failed, treating as not duplicate",
			"left", a.LocalImagePath, "right", b.LocalImagePath, "error", err)
		return false, DuplicateNone
	}
	if mismatch < s.cfg.ImageMismatchThreshold {
		return true, DuplicateImageSimilarity
	}

	return false, DuplicateNone
}
