package charts

import (
	"fmt"
	"math"

	"github.com/aristath/odyssey/internal/modules/allocation"
	"github.com/rs/zerolog"
)

// Styling constants for the distribution figure. Sizes double and a green
// border appears on the highlighted point; the shard series additionally
// switches to a more opaque fill.
const (
	dropMarkerSize          = 6
	dropHighlightSize       = 12
	shardMarkerSize         = 4
	shardHighlightSize      = 8
	highlightBorderWidth    = 2
	highlightBorderColor    = "#00ff00"
	defaultBorderColor      = "white"
	shardFillColor          = "rgba(255, 0, 0, 0.5)"
	shardHighlightFillColor = "rgba(255, 0, 0, 0.8)"

	// The shard series is shifted right so the two series' x-ranges do not
	// overlay each other.
	shardSeriesOffset = 25

	darkBackground = "rgb(17, 17, 17)"
	gridColor      = "rgba(128, 128, 128, 0.2)"
)

// Builder produces reward-distribution figures. Build is a pure function of
// its inputs; the builder itself carries only a logger.
type Builder struct {
	log zerolog.Logger
}

// NewBuilder creates a new chart builder
func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{
		log: log.With().Str("service", "charts").Logger(),
	}
}

// Build constructs the dual-series distribution figure. highlight, when
// non-nil and within [0, len(records)), marks that position in both series;
// an out-of-range highlight is ignored so the chart still renders.
// Highlighting is purely presentational: values, axis ranges, and point
// counts are identical with or without it.
func (b *Builder) Build(records []allocation.AllocationRecord, highlight *int) Figure {
	n := len(records)

	matched := -1
	if highlight != nil {
		if *highlight >= 0 && *highlight < n {
			matched = *highlight
		} else {
			b.log.Debug().Int("position", *highlight).Int("records", n).
				Msg("Ignoring out-of-range highlight position")
		}
	}

	dropX := make([]float64, n)
	dropY := make([]float64, n)
	dropColors := make([]float64, n)
	dropHover := make([]string, n)
	shardX := make([]float64, n)
	shardY := make([]float64, n)
	shardHover := make([]string, n)

	var maxDrop, maxShards float64
	for i, rec := range records {
		dropX[i] = float64(i)
		dropY[i] = rec.DropAmount
		dropColors[i] = rec.DropAmount
		dropHover[i] = fmt.Sprintf("Rank: %d<br>Name: %s<br>Wallet: %s<br>$WILD Drop: %s<br>wShards: %s",
			i+1, rec.Name, rec.WalletAddress,
			allocation.FormatDrop(rec.DropAmount), allocation.FormatShards(rec.ShardCount))

		shardX[i] = float64(i + shardSeriesOffset)
		shardY[i] = rec.ShardCount
		shardHover[i] = fmt.Sprintf("Rank: %d<br>wShards: %s", i+1, allocation.FormatShards(rec.ShardCount))

		if rec.DropAmount > maxDrop {
			maxDrop = rec.DropAmount
		}
		if rec.ShardCount > maxShards {
			maxShards = rec.ShardCount
		}
	}

	dropTrace := Trace{
		X:    dropX,
		Y:    dropY,
		Name: "$WILD Drop",
		Mode: "markers",
		Marker: Marker{
			Color:      dropColors,
			Colorscale: "Viridis",
			ShowScale:  true,
			ColorBar:   &ColorBar{Title: "$WILD Drop", X: 1.2},
			Size:       styleValues(n, matched, dropMarkerSize, dropHighlightSize),
			Line: MarkerLine{
				Width: styleValues(n, matched, 0, highlightBorderWidth),
				Color: styleColors(n, matched, defaultBorderColor, highlightBorderColor),
			},
		},
		HoverText: dropHover,
		HoverInfo: "text",
	}

	shardTrace := Trace{
		X:     shardX,
		Y:     shardY,
		Name:  "wShards",
		Mode:  "markers",
		YAxis: "y2",
		Marker: Marker{
			Color: styleColors(n, matched, shardFillColor, shardHighlightFillColor),
			Size:  styleValues(n, matched, shardMarkerSize, shardHighlightSize),
			Line: MarkerLine{
				Width: styleValues(n, matched, 0, highlightBorderWidth),
				Color: styleColors(n, matched, defaultBorderColor, highlightBorderColor),
			},
		},
		HoverText: shardHover,
		HoverInfo: "text",
	}

	dropRange := logAxisRange(maxDrop)
	shardRange := logAxisRange(maxShards)

	return Figure{
		Data: []Trace{dropTrace, shardTrace},
		Layout: Layout{
			Title:        "Distribution of Rewards (Log Scale)",
			XAxisTitle:   "Rank",
			YAxisTitle:   "$WILD Drop",
			ShowLegend:   true,
			Height:       600,
			Margin:       Margin{Left: 50, Right: 200, Top: 100, Bottom: 50},
			PlotBGColor:  darkBackground,
			PaperBGColor: darkBackground,
			Font:         Font{Color: "white"},
			XAxis: Axis{
				GridColor: gridColor,
				Color:     "white",
			},
			YAxis: Axis{
				Type:       "log",
				Range:      &dropRange,
				TickFormat: ".0f",
				GridColor:  gridColor,
				Color:      "white",
			},
			YAxis2: Axis{
				Title:      "wShards",
				Type:       "log",
				Range:      &shardRange,
				TickFormat: ".0f",
				Overlaying: "y",
				Side:       "right",
				GridColor:  gridColor,
				Color:      "white",
			},
			Legend: Legend{
				YAnchor:     "bottom",
				Y:           1.02,
				XAnchor:     "center",
				X:           0.5,
				BGColor:     darkBackground,
				BorderColor: "white",
				Orientation: "h",
			},
		},
	}
}

// styleValues builds a per-point numeric style array: every point gets the
// default, the matched point (if any) gets the highlight value. The arrays
// are always built fresh so Build stays a pure function.
func styleValues(n, matched int, def, highlighted float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = def
	}
	if matched >= 0 {
		values[matched] = highlighted
	}
	return values
}

// styleColors is styleValues for color strings.
func styleColors(n, matched int, def, highlighted string) []string {
	colors := make([]string, n)
	for i := range colors {
		colors[i] = def
	}
	if matched >= 0 {
		colors[matched] = highlighted
	}
	return colors
}

// logAxisRange returns the [log10(1), log10(max)] range for a value axis.
// An empty series or one whose maximum is below 1 would put log10 at or
// past zero's asymptote, so the range collapses to [0, 0] (value range
// [1, 1]) instead of being left for the math to blow up downstream.
func logAxisRange(max float64) [2]float64 {
	if max < 1 {
		return [2]float64{0, 0}
	}
	return [2]float64{0, math.Log10(max)}
}
