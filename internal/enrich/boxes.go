package enrich

import "math"

// BoxType is one packing-box size in the catalog. The divisor converts
// item volume into box count: quantity = ceil(itemQty * volume / divisor),
// floored at 1.
type BoxType struct {
	Name       string
	Dimensions string
	divisor    float64
}

// Standard moving-box catalog with nominal dimensions.
var (
	BoxBook       = BoxType{Name: "Book Box", Dimensions: `12" x 12" x 12"`, divisor: 1}
	BoxSmall      = BoxType{Name: "Small Box", Dimensions: `16 3/8" x 12 5/8" x 12 5/8"`, divisor: 1.5}
	BoxDishPack   = BoxType{Name: "Dish Pack", Dimensions: `18" x 18" x 28"`, divisor: 5}
	BoxMedium     = BoxType{Name: "Medium Box", Dimensions: `18 1/8" x 18" x 16"`, divisor: 3}
	BoxMirror     = BoxType{Name: "Mirror/Picture Box", Dimensions: `37" x 4" x 27"`}
	BoxWardrobe   = BoxType{Name: "Wardrobe Box", Dimensions: `24" x 21" x 46"`, divisor: 10}
	BoxLarge      = BoxType{Name: "Large Box", Dimensions: `18" x 18" x 24"`, divisor: 4.5}
	BoxExtraLarge = BoxType{Name: "Extra-Large Box", Dimensions: `24" x 18" x 24"`, divisor: 6}
)

// BoxRecommendation is the packing assignment for one non-furniture
// inventory item.
type BoxRecommendation struct {
	BoxType    string `json:"box_type"`
	Quantity   int    `json:"quantity"`
	Dimensions string `json:"dimensions"`
}

// recommend builds a recommendation for the given box type, scaling
// quantity by volume unless the box is counted one per item (mirror
// cartons).
func (b BoxType) recommend(itemQuantity int, volume float64) *BoxRecommendation {
	quantity := 1
	switch {
	case b.divisor == 0:
		// One carton per unit, not volume-scaled.
		quantity = itemQuantity
	default:
		quantity = int(math.Ceil(float64(itemQuantity) * volume / b.divisor))
	}
	if quantity < 1 {
		quantity = 1
	}
	return &BoxRecommendation{
		BoxType:    b.Name,
		Quantity:   quantity,
		Dimensions: b.Dimensions,
	}
}
