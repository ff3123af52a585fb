// Package vision wraps the external image-understanding service behind
// a fixed structured-output contract. The service returns free-form
// text expected to contain one JSON object describing the detected
// household items; this package extracts, parses and normalizes it.
package vision

// DetectedItem is one item reported by the vision service. It is
// ephemeral: detected items are always passed through enrichment
// before persistence.
type DetectedItem struct {
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Category     string  `json:"category,omitempty"`
	Quantity     int     `json:"quantity,omitempty"`
	Location     string  `json:"location,omitempty"`
	Volume       float64 `json:"volume_cuft,omitempty"`
	Weight       float64 `json:"weight_lbs,omitempty"`
	Fragile      bool    `json:"fragile,omitempty"`
	HandlingNote string  `json:"handling_note,omitempty"`
}

// Analysis is the structured result of one vision call.
type Analysis struct {
	Summary string         `json:"summary"`
	Items   []DetectedItem `json:"items"`
}

// normalize applies the contract defaults to a parsed analysis: item
// quantities default to 1 and items without a name are dropped. The
// item list is capped at maxItems when maxItems > 0.
func (a *Analysis) normalize(maxItems int) {
	items := a.Items[:0]
	for i := range a.Items {
		item := a.Items[i]
		if item.Name == "" {
			continue
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		items = append(items, item)
		if maxItems > 0 && len(items) >= maxItems {
			break
		}
	}
	a.Items = items
}
