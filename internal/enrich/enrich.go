// Package enrich fills the gaps the vision service leaves in a
// detected item: default location, volume and weight by category, and
// a packing-box recommendation for anything a crew would box rather
// than carry. Everything here is deterministic and free of I/O.
package enrich

import (
	"strings"

	"github.com/boxlens/boxlens-go/internal/vision"
)

// Item is a detected item after enrichment, ready for persistence.
type Item struct {
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	Category     string             `json:"category"`
	Quantity     int                `json:"quantity"`
	Location     string             `json:"location"`
	Volume       float64            `json:"volume_cuft"`
	Weight       float64            `json:"weight_lbs"`
	Fragile      bool               `json:"fragile"`
	HandlingNote string             `json:"handling_note,omitempty"`
	Box          *BoxRecommendation `json:"box_recommendation,omitempty"`
}

// furnitureKeywords classifies an item as furniture when its category
// contains any of them. Furniture is carried or padded, never boxed.
var furnitureKeywords = []string{
	"sofa", "couch", "table", "chair", "bed", "mattress", "dresser",
	"cabinet", "desk", "wardrobe", "bookcase", "shelf", "shelving",
	"ottoman", "recliner", "bench", "armchair", "furniture",
}

// IsFurniture reports whether the category describes furniture-class
// items.
func IsFurniture(category string) bool {
	c := strings.ToLower(category)
	for _, kw := range furnitureKeywords {
		if strings.Contains(c, kw) {
			return true
		}
	}
	return false
}

// defaultLocation maps a category to the room it most likely belongs
// to when the vision service did not name one.
func defaultLocation(category string) string {
	c := strings.ToLower(category)
	switch {
	// "bedding" contains the furniture keyword "bed"; its own row wins.
	case strings.Contains(c, "bedding"):
		return "Bedroom"
	case IsFurniture(c):
		return "Living Room"
	case strings.Contains(c, "kitchen"):
		return "Kitchen"
	case strings.Contains(c, "electronic"):
		return "Living Room"
	default:
		return "Other"
	}
}

// defaultVolume returns the category's fallback volume in cubic feet.
func defaultVolume(category string) float64 {
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "bedding"):
		return 3
	case IsFurniture(c):
		return 15
	case strings.Contains(c, "electronic"):
		return 3
	case strings.Contains(c, "kitchen"):
		return 2
	case strings.Contains(c, "decor"):
		return 1
	default:
		return 3
	}
}

// weightFactor returns the pounds-per-cubic-foot factor for deriving a
// missing weight from volume.
func weightFactor(category string) float64 {
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "cloth") || strings.Contains(c, "bedding"):
		return 4
	case IsFurniture(c):
		return 8
	case strings.Contains(c, "book") || strings.Contains(c, "media"):
		return 20
	case strings.Contains(c, "appliance"):
		return 12
	case strings.Contains(c, "electronic"):
		return 10
	case strings.Contains(c, "kitchen"):
		return 9
	default:
		return 7
	}
}

// Enrich converts one detected item into its persisted form. Missing
// location, volume and weight are defaulted by category; non-furniture
// items additionally receive a packing-box recommendation.
func Enrich(d vision.DetectedItem) Item {
	item := Item{
		Name:         strings.TrimSpace(d.Name),
		Description:  d.Description,
		Category:     d.Category,
		Quantity:     d.Quantity,
		Location:     d.Location,
		Volume:       d.Volume,
		Weight:       d.Weight,
		Fragile:      d.Fragile,
		HandlingNote: d.HandlingNote,
	}

	if item.Quantity < 1 {
		item.Quantity = 1
	}
	if item.Location == "" {
		item.Location = defaultLocation(item.Category)
	}
	if item.Volume <= 0 {
		item.Volume = defaultVolume(item.Category)
	}
	if item.Weight <= 0 {
		item.Weight = item.Volume * weightFactor(item.Category)
	}

	if !IsFurniture(item.Category) {
		item.Box = recommendBox(item.Category, item.Name, item.Quantity, item.Volume, item.Weight)
	}

	return item
}

// containsAny reports whether s contains any of the given substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// recommendBox evaluates the priority-ordered box decision table on
// category and name (case-insensitive substring match), falling back
// to a volume band.
func recommendBox(category, name string, quantity int, volume, weight float64) *BoxRecommendation {
	c := strings.ToLower(category)
	n := strings.ToLower(name)

	switch {
	case strings.Contains(c, "book") || strings.Contains(n, "book") || weight > 40:
		if volume <= 1 {
			return BoxBook.recommend(quantity, volume)
		}
		return BoxSmall.recommend(quantity, volume)

	case strings.Contains(c, "kitchenware") || containsAny(n, "dish", "glass", "cup", "plate"):
		return BoxDishPack.recommend(quantity, volume)

	case strings.Contains(c, "electronic") || containsAny(n, "tv", "television", "computer"):
		return BoxMedium.recommend(quantity, volume)

	case containsAny(n, "mirror", "picture", "painting", "art"):
		return BoxMirror.recommend(quantity, volume)

	case strings.Contains(c, "cloth") || containsAny(n, "dress", "coat", "suit"):
		return BoxWardrobe.recommend(quantity, volume)

	case volume <= 1.5:
		return BoxSmall.recommend(quantity, volume)
	case volume <= 3:
		return BoxMedium.recommend(quantity, volume)
	case volume <= 4.5:
		return BoxLarge.recommend(quantity, volume)
	default:
		return BoxExtraLarge.recommend(quantity, volume)
	}
}

// TotalBoxes sums box quantities across items that carry a
// recommendation.
func TotalBoxes(items []Item) int {
	total := 0
	for i := range items {
		if items[i].Box != nil {
			total += items[i].Box.Quantity
		}
	}
	return total
}
