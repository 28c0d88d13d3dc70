package annotation

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/ironsheep/blueprint-mcp/internal/scale"
)

// Totals is the summary of a set of entities.
type Totals struct {
	Unit           scale.Unit     `json:"unit"`
	Linear         float64        `json:"totalLinear"`
	Area           float64        `json:"totalArea"`
	LinearLabel    string         `json:"totalLinearLabel"`
	AreaLabel      string         `json:"totalAreaLabel"`
	Counts         map[string]int `json:"countsByCategory"`
	Measurements   int            `json:"measurements"`
	Areas          int            `json:"areas"`
	Highlights     int            `json:"highlights"`
	Notes          int            `json:"notes"`
	Unscaled       int            `json:"unscaledExcluded,omitempty"`
	AssumedEntries int            `json:"assumedScaleEntries,omitempty"`
}

// Aggregator derives totals from a store on every query.
type Aggregator struct {
	store *Store
	unit  scale.Unit
}

// NewAggregator reports totals from store in unit.
func NewAggregator(store *Store, unit scale.Unit) *Aggregator {
	return &Aggregator{store: store, unit: unit}
}

// SetUnit changes the reporting unit.
func (a *Aggregator) SetUnit(u scale.Unit) {
	a.unit = u
}

// Unit returns the reporting unit.
func (a *Aggregator) Unit() scale.Unit {
	return a.unit
}

// TotalLinear sums all linear measurements.
func (a *Aggregator) TotalLinear() float64 {
	return TotalLinear(a.store.All(), a.unit)
}

// TotalArea sums all area selections and highlights.
func (a *Aggregator) TotalArea() float64 {
	return TotalArea(a.store.All(), a.unit)
}

// CountsByCategory groups count markers by category.
func (a *Aggregator) CountsByCategory() map[string]int {
	return CountsByCategory(a.store.All())
}

// Totals summarizes the whole store.
func (a *Aggregator) Totals() Totals {
	return Summarize(a.store.All(), a.unit)
}

// PageTotals summarizes a single page.
func (a *Aggregator) PageTotals(page int) Totals {
	return Summarize(a.store.ListByPage(page), a.unit)
}

// TotalLinear sums linear values converted to unit.
func TotalLinear(entities []Entity, unit scale.Unit) float64 {
	return floats.Sum(values(entities, unit, KindLinear))
}

// TotalArea sums area and highlight values converted to unit.
func TotalArea(entities []Entity, unit scale.Unit) float64 {
	return floats.Sum(values(entities, unit, KindArea, KindHighlight))
}

// CountsByCategory groups count markers by category.
func CountsByCategory(entities []Entity) map[string]int {
	counts := make(map[string]int)
	for _, e := range entities {
		if e.Kind == KindCount {
			counts[e.Category]++
		}
	}
	return counts
}

// Summarize builds Totals for entities.
func Summarize(entities []Entity, unit scale.Unit) Totals {
	t := Totals{
		Unit:   unit,
		Linear: TotalLinear(entities, unit),
		Area:   TotalArea(entities, unit),
		Counts: CountsByCategory(entities),
	}
	for _, e := range entities {
		switch e.Kind {
		case KindLinear:
			t.Measurements++
		case KindArea:
			t.Areas++
		case KindHighlight:
			t.Highlights++
		case KindNote:
			t.Notes++
		}
		if !e.Measured() {
			continue
		}
		if e.Unscaled || !e.Unit.IsLength() {
			t.Unscaled++
		} else if e.AssumedScale {
			t.AssumedEntries++
		}
	}
	t.LinearLabel = scale.Label(t.Linear, unit, 1)
	t.AreaLabel = scale.Label(t.Area, unit, 2)
	return t
}

// Categories returns the count categories in sorted order.
func (t Totals) Categories() []string {
	out := make([]string, 0, len(t.Counts))
	for c := range t.Counts {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func values(entities []Entity, unit scale.Unit, kinds ...Kind) []float64 {
	var vs []float64
	for _, e := range entities {
		if !matches(e.Kind, kinds) || e.Unscaled {
			continue
		}
		v, err := scale.Convert(e.Value, e.Unit, unit, e.Power())
		if err != nil {
			continue
		}
		vs = append(vs, v)
	}
	return vs
}

func matches(k Kind, kinds []Kind) bool {
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}
