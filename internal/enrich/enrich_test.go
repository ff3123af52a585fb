package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxlens/boxlens-go/internal/vision"
)

func TestEnrichFurnitureSofa(t *testing.T) {
	t.Parallel()

	item := Enrich(vision.DetectedItem{Category: "furniture", Name: "Sofa", Quantity: 1})

	assert.InDelta(t, 15.0, item.Volume, 0.001)
	assert.InDelta(t, 120.0, item.Weight, 0.001)
	assert.Equal(t, "Living Room", item.Location)
	assert.Nil(t, item.Box, "furniture never receives a box recommendation")
}

func TestEnrichKitchenwarePlateSet(t *testing.T) {
	t.Parallel()

	item := Enrich(vision.DetectedItem{Category: "kitchenware", Name: "Plate Set", Quantity: 1})

	assert.InDelta(t, 2.0, item.Volume, 0.001)
	assert.InDelta(t, 18.0, item.Weight, 0.001)
	assert.Equal(t, "Kitchen", item.Location)
	require.NotNil(t, item.Box)
	assert.Equal(t, "Dish Pack", item.Box.BoxType)
	assert.Equal(t, `18" x 18" x 28"`, item.Box.Dimensions)
	assert.Equal(t, 1, item.Box.Quantity) // ceil(1*2/5) = 1
}

func TestFurnitureClassification(t *testing.T) {
	t.Parallel()

	furniture := []string{
		"furniture", "Sofa", "sectional couch", "dining table", "office chair",
		"bed frame", "mattress", "dresser", "filing cabinet", "standing desk",
		"wardrobe", "bookcase", "shelving unit", "ottoman", "recliner",
		"bench", "armchair",
	}
	for _, category := range furniture {
		assert.True(t, IsFurniture(category), "category %q should be furniture-class", category)
	}

	notFurniture := []string{"electronics", "kitchenware", "decor", "books/media", "toys", ""}
	for _, category := range notFurniture {
		assert.False(t, IsFurniture(category), "category %q should not be furniture-class", category)
	}
}

func TestNoFurnitureItemHasBox(t *testing.T) {
	t.Parallel()

	categories := []string{"furniture", "couch", "dining table", "bed", "bookcase"}
	for _, category := range categories {
		item := Enrich(vision.DetectedItem{Category: category, Name: "Something", Quantity: 2})
		assert.Nil(t, item.Box, "category %q", category)
	}
}

func TestWeightDerivedFromEnrichedVolume(t *testing.T) {
	t.Parallel()

	cases := []struct {
		category   string
		wantVolume float64
		wantWeight float64
	}{
		{"furniture", 15, 120},
		{"electronics", 3, 30},
		{"kitchenware", 2, 18},
		{"books/media", 3, 60},
		{"clothing", 3, 12},
		{"appliances", 3, 36},
		{"decor", 1, 7},
		{"toys", 3, 21},
	}

	for _, tc := range cases {
		t.Run(tc.category, func(t *testing.T) {
			t.Parallel()

			item := Enrich(vision.DetectedItem{Category: tc.category, Name: "Item"})
			assert.InDelta(t, tc.wantVolume, item.Volume, 0.001)
			assert.InDelta(t, tc.wantWeight, item.Weight, 0.001)
		})
	}
}

func TestProvidedVolumeAndWeightAreKept(t *testing.T) {
	t.Parallel()

	item := Enrich(vision.DetectedItem{
		Category: "decor", Name: "Vase", Volume: 0.5, Weight: 3,
	})
	assert.InDelta(t, 0.5, item.Volume, 0.001)
	assert.InDelta(t, 3.0, item.Weight, 0.001)
}

func TestVolumeBandBoundaries(t *testing.T) {
	t.Parallel()

	// "toys" matches no keyword rule, so the volume band decides.
	boxAt := func(volume float64) string {
		item := Enrich(vision.DetectedItem{Category: "toys", Name: "Blocks", Quantity: 1, Volume: volume, Weight: 5})
		require.NotNil(t, item.Box)
		return item.Box.BoxType
	}

	assert.Equal(t, "Small Box", boxAt(1.5))
	assert.Equal(t, "Medium Box", boxAt(1.5000001))
	assert.Equal(t, "Medium Box", boxAt(3))
	assert.Equal(t, "Large Box", boxAt(4.5))
	assert.Equal(t, "Extra-Large Box", boxAt(4.6))
}

func TestBoxDecisionKeywordRules(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		item     vision.DetectedItem
		wantType string
	}{
		{"book category small", vision.DetectedItem{Category: "books/media", Name: "Novels", Volume: 0.8, Weight: 16}, "Book Box"},
		{"book category large", vision.DetectedItem{Category: "books/media", Name: "Encyclopedias", Volume: 2, Weight: 40}, "Small Box"},
		{"heavy item goes to book rule", vision.DetectedItem{Category: "toys", Name: "Dumbbells", Volume: 0.5, Weight: 80}, "Book Box"},
		{"dish keyword", vision.DetectedItem{Category: "other", Name: "Glass Set", Volume: 1, Weight: 9}, "Dish Pack"},
		{"electronics category", vision.DetectedItem{Category: "electronics", Name: "Stereo", Volume: 2, Weight: 20}, "Medium Box"},
		{"tv name", vision.DetectedItem{Category: "other", Name: "TV stand remote", Volume: 1, Weight: 4}, "Medium Box"},
		{"mirror", vision.DetectedItem{Category: "decor", Name: "Wall Mirror", Volume: 2, Weight: 15}, "Mirror/Picture Box"},
		{"artwork", vision.DetectedItem{Category: "decor", Name: "Framed Art", Volume: 1, Weight: 5}, "Mirror/Picture Box"},
		{"clothing category", vision.DetectedItem{Category: "clothing", Name: "Jackets", Volume: 4, Weight: 16}, "Wardrobe Box"},
		{"coat name", vision.DetectedItem{Category: "other", Name: "Winter Coats", Volume: 4, Weight: 12}, "Wardrobe Box"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			item := Enrich(tc.item)
			require.NotNil(t, item.Box)
			assert.Equal(t, tc.wantType, item.Box.BoxType)
		})
	}
}

func TestMirrorBoxCountsPerUnit(t *testing.T) {
	t.Parallel()

	item := Enrich(vision.DetectedItem{Category: "decor", Name: "Pictures", Quantity: 4, Volume: 0.2, Weight: 2})
	require.NotNil(t, item.Box)
	assert.Equal(t, "Mirror/Picture Box", item.Box.BoxType)
	assert.Equal(t, 4, item.Box.Quantity)
}

func TestBoxQuantityScalesWithVolumeAndQuantity(t *testing.T) {
	t.Parallel()

	// ceil(3 * 2 / 5) = 2 dish packs
	item := Enrich(vision.DetectedItem{Category: "kitchenware", Name: "Pots", Quantity: 3, Volume: 2, Weight: 20})
	require.NotNil(t, item.Box)
	assert.Equal(t, 2, item.Box.Quantity)
}

func TestBoxQuantityAtLeastOne(t *testing.T) {
	t.Parallel()

	categories := []string{"electronics", "kitchenware", "decor", "clothing", "toys", "books/media", "other"}
	volumes := []float64{0.001, 0.5, 1, 2, 5, 40}

	for _, category := range categories {
		for _, volume := range volumes {
			item := Enrich(vision.DetectedItem{Category: category, Name: "Item", Quantity: 1, Volume: volume, Weight: 1})
			require.NotNil(t, item.Box, "category %q volume %v", category, volume)
			assert.GreaterOrEqual(t, item.Box.Quantity, 1)
		}
	}
}

func TestFragilityAndHandlingDefaults(t *testing.T) {
	t.Parallel()

	item := Enrich(vision.DetectedItem{Category: "decor", Name: "Vase"})
	assert.False(t, item.Fragile)
	assert.Empty(t, item.HandlingNote)

	item = Enrich(vision.DetectedItem{Category: "decor", Name: "Vase", Fragile: true, HandlingNote: "wrap twice"})
	assert.True(t, item.Fragile)
	assert.Equal(t, "wrap twice", item.HandlingNote)
}

func TestLocationDefaults(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"furniture":   "Living Room",
		"kitchenware": "Kitchen",
		"electronics": "Living Room",
		"bedding":     "Bedroom",
		"toys":        "Other",
	}
	for category, want := range cases {
		item := Enrich(vision.DetectedItem{Category: category, Name: "Item"})
		assert.Equal(t, want, item.Location, "category %q", category)
	}

	item := Enrich(vision.DetectedItem{Category: "toys", Name: "Blocks", Location: "Garage"})
	assert.Equal(t, "Garage", item.Location, "provided location is kept")
}

func TestTotalBoxes(t *testing.T) {
	t.Parallel()

	items := []Item{
		{Box: &BoxRecommendation{Quantity: 2}},
		{Box: nil},
		{Box: &BoxRecommendation{Quantity: 3}},
	}
	assert.Equal(t, 5, TotalBoxes(items))
	assert.Zero(t, TotalBoxes(nil))
}
