// Package zones classifies alignment ratings into ordinal competency zones
// and picks the growth edge and strength of a breakdown.
package zones

import (
	"math"

	"github.com/okian/fires/internal/domain/model"
)

// Rating bounds.
const (
	minRating = 1
	maxRating = 4
)

var zoneByRating = [maxRating + 1]model.Zone{
	1: model.Exploring,
	2: model.Discovering,
	3: model.Performing,
	4: model.Owning,
}

// ClampRating pins r to [1,4]. NaN is treated as the lowest rating.
func ClampRating(r float64) float64 {
	if math.IsNaN(r) {
		return minRating
	}
	return math.Max(minRating, math.Min(maxRating, r))
}

// ClassifyZone maps a raw rating to its zone. Out-of-range input is clamped,
// never rejected.
func ClassifyZone(r float64) model.Zone {
	return zoneByRating[int(math.Round(ClampRating(r)))]
}

// ClassifyBreakdown classifies every dimension in canonical order.
func ClassifyBreakdown(r model.Ratings) model.ZoneBreakdown {
	var b model.ZoneBreakdown
	for i := range model.Dimensions {
		b[i] = ClassifyZone(r[i])
	}
	return b
}
