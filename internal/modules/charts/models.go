// Package charts builds the declarative reward-distribution figure served
// to the frontend, which renders it as-is.
package charts

// Figure is the full chart description: two scatter traces over a shared
// rank axis with two independent log-scaled value axes.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is a single scatter series.
type Trace struct {
	X         []float64 `json:"x"`
	Y         []float64 `json:"y"`
	Name      string    `json:"name"`
	Mode      string    `json:"mode"`
	YAxis     string    `json:"yaxis,omitempty"` // "y2" plots against the secondary axis
	Marker    Marker    `json:"marker"`
	HoverText []string  `json:"hovertext"`
	HoverInfo string    `json:"hoverinfo"`
}

// Marker holds per-point styling arrays. Color is either a []float64
// (continuous colormap keyed on the values) or a []string of literal
// colors, matching the plotly scatter marker contract.
type Marker struct {
	Color      interface{} `json:"color"`
	Colorscale string      `json:"colorscale,omitempty"`
	ShowScale  bool        `json:"showscale,omitempty"`
	ColorBar   *ColorBar   `json:"colorbar,omitempty"`
	Size       []float64   `json:"size"`
	Line       MarkerLine  `json:"line"`
}

// MarkerLine holds per-point border styling.
type MarkerLine struct {
	Width []float64 `json:"width"`
	Color []string  `json:"color"`
}

// ColorBar configures the colormap legend.
type ColorBar struct {
	Title string  `json:"title"`
	X     float64 `json:"x"`
}

// Layout is the figure-level configuration.
type Layout struct {
	Title        string `json:"title"`
	XAxisTitle   string `json:"xaxis_title"`
	YAxisTitle   string `json:"yaxis_title"`
	ShowLegend   bool   `json:"showlegend"`
	Height       int    `json:"height"`
	Margin       Margin `json:"margin"`
	PlotBGColor  string `json:"plot_bgcolor"`
	PaperBGColor string `json:"paper_bgcolor"`
	Font         Font   `json:"font"`
	XAxis        Axis   `json:"xaxis"`
	YAxis        Axis   `json:"yaxis"`
	YAxis2       Axis   `json:"yaxis2"`
	Legend       Legend `json:"legend"`
}

// Axis describes one chart axis. Log axes carry their range in log10 units.
type Axis struct {
	Title      string      `json:"title,omitempty"`
	Type       string      `json:"type,omitempty"` // "log" for the value axes
	Range      *[2]float64 `json:"range,omitempty"`
	TickFormat string      `json:"tickformat,omitempty"`
	Overlaying string      `json:"overlaying,omitempty"`
	Side       string      `json:"side,omitempty"`
	GridColor  string      `json:"gridcolor,omitempty"`
	Color      string      `json:"color,omitempty"`
}

// Margin is the plot margin in pixels.
type Margin struct {
	Left   int `json:"l"`
	Right  int `json:"r"`
	Top    int `json:"t"`
	Bottom int `json:"b"`
}

// Font is the figure-wide font configuration.
type Font struct {
	Color string `json:"color"`
}

// Legend positions the series legend above the plot.
type Legend struct {
	YAnchor     string  `json:"yanchor"`
	Y           float64 `json:"y"`
	XAnchor     string  `json:"xanchor"`
	X           float64 `json:"x"`
	BGColor     string  `json:"bgcolor"`
	BorderColor string  `json:"bordercolor"`
	Orientation string  `json:"orientation"`
}
