package scale

// Fallback is the color returned for keys outside an Ordinal's domain.
const Fallback = "#999999"

// Palettes used by the slides.
var (
	Tableau     = []string{"#4e79a7", "#f28e2c", "#e15759", "#76b7b2", "#59a14f", "#edc949", "#af7aa1", "#ff9da7", "#9c755f", "#bab0ab"}
	Category10  = []string{"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd", "#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf"}
	Set1        = []string{"#e41a1c", "#377eb8", "#4daf4a", "#984ea3", "#ff7f00", "#ffff33", "#a65628", "#f781bf", "#999999"}
	PurpleGrays = []string{"#98abc5", "#8a89a6", "#7b6888", "#6b486b", "#a05d56", "#d0743c", "#ff8c00"}
)

// Ordinal assigns colors to a fixed set of keys. Keys beyond the palette length
// reuse the palette cyclically.
type Ordinal struct {
	colors   map[string]string
	fallback string
}

// NewOrdinal maps domain[i] to palette[i mod len(palette)].
func NewOrdinal(domain, palette []string) Ordinal {
	o := Ordinal{colors: make(map[string]string, len(domain)), fallback: Fallback}
	if len(palette) == 0 {
		return o
	}
	for i, k := range domain {
		if _, ok := o.colors[k]; !ok {
			o.colors[k] = palette[i%len(palette)]
		}
	}
	return o
}

// WithFallback returns a copy of o using color for unknown keys.
func (o Ordinal) WithFallback(color string) Ordinal {
	o.fallback = color
	return o
}

// Color returns the color of key.
func (o Ordinal) Color(key string) string {
	if c, ok := o.colors[key]; ok {
		return c
	}
	return o.fallback
}
