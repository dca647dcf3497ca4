package zones

import "github.com/okian/fires/internal/domain/model"

// Lowest returns the weakest dimension (the growth edge). Ties go to the
// dimension that comes first in canonical order.
func Lowest(b model.ZoneBreakdown) (model.Dimension, model.Zone) {
	best := 0
	for i := 1; i < len(model.Dimensions); i++ {
		if b[i] < b[best] {
			best = i
		}
	}
	return model.Dimensions[best], b[best]
}

// Highest returns the strongest dimension. Ties go to the dimension that
// comes first in canonical order.
func Highest(b model.ZoneBreakdown) (model.Dimension, model.Zone) {
	best := 0
	for i := 1; i < len(model.Dimensions); i++ {
		if b[i] > b[best] {
			best = i
		}
	}
	return model.Dimensions[best], b[best]
}

// GrowthEdge is Lowest packaged as a pair.
func GrowthEdge(b model.ZoneBreakdown) model.DimensionZone {
	d, z := Lowest(b)
	return model.DimensionZone{Dimension: d, Zone: z}
}

// Strength is Highest packaged as a pair.
func Strength(b model.ZoneBreakdown) model.DimensionZone {
	d, z := Highest(b)
	return model.DimensionZone{Dimension: d, Zone: z}
}
