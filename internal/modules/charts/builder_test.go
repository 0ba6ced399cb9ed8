package charts

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/odyssey/internal/modules/allocation"
)

func chartRecords() []allocation.AllocationRecord {
	data := []struct {
		name   string
		wallet string
		drop   float64
		shards float64
	}{
		{"alice", "0xABCDEF1234", 10000, 100},
		{"bob", "0x9988776655", 500, 20},
		{"carol", "0x1122334455", 12.5, 1},
	}

	records := make([]allocation.AllocationRecord, len(data))
	for i, d := range data {
		records[i] = allocation.AllocationRecord{
			Name:          d.name,
			WalletAddress: d.wallet,
			WalletKey:     allocation.NormalizeWallet(d.wallet),
			DropAmount:    d.drop,
			ShardCount:    d.shards,
		}
	}
	return records
}

func TestBuild_TwoSeriesWithFullPointCount(t *testing.T) {
	builder := NewBuilder(zerolog.Nop())
	records := chartRecords()

	fig := builder.Build(records, nil)

	require.Len(t, fig.Data, 2)
	drop, shards := fig.Data[0], fig.Data[1]

	assert.Equal(t, "$WILD Drop", drop.Name)
	assert.Equal(t, "wShards", shards.Name)
	assert.Equal(t, "y2", shards.YAxis)

	for _, trace := range fig.Data {
		assert.Len(t, trace.X, len(records))
		assert.Len(t, trace.Y, len(records))
		assert.Len(t, trace.HoverText, len(records))
		assert.Len(t, trace.Marker.Size, len(records))
	}

	assert.Equal(t, []float64{0, 1, 2}, drop.X)
	assert.Equal(t, []float64{10000, 500, 12.5}, drop.Y)
	assert.Equal(t, []float64{100, 20, 1}, shards.Y)
}

func TestBuild_ShardSeriesOffset(t *testing.T) {
	builder := NewBuilder(zerolog.Nop())

	fig := builder.Build(chartRecords(), nil)

	drop, shards := fig.Data[0], fig.Data[1]
	for i := range drop.X {
		assert.Equal(t, drop.X[i]+25, shards.X[i])
	}
}

func TestBuild_NoHighlightUsesBaseStyles(t *testing.T) {
	builder := NewBuilder(zerolog.Nop())

	fig := builder.Build(chartRecords(), nil)

	drop, shards := fig.Data[0], fig.Data[1]
	for i := range drop.Marker.Size {
		assert.Equal(t, 6.0, drop.Marker.Size[i])
		assert.Equal(t, 0.0, drop.Marker.Line.Width[i])
		assert.Equal(t, 4.0, shards.Marker.Size[i])
		assert.Equal(t, "rgba(255, 0, 0, 0.5)", shards.Marker.Color.([]string)[i])
	}
}

func TestBuild_HighlightMarksExactlyOnePoint(t *testing.T) {
	builder := NewBuilder(zerolog.Nop())
	highlight := 1

	fig := builder.Build(chartRecords(), &highlight)

	drop, shards := fig.Data[0], fig.Data[1]

	assert.Equal(t, []float64{6, 12, 6}, drop.Marker.Size)
	assert.Equal(t, []float64{0, 2, 0}, drop.Marker.Line.Width)
	assert.Equal(t, []string{"white", "#00ff00", "white"}, drop.Marker.Line.Color)

	assert.Equal(t, []float64{4, 8, 4}, shards.Marker.Size)
	assert.Equal(t, []string{
		"rgba(255, 0, 0, 0.5)",
		"rgba(255, 0, 0, 0.8)",
		"rgba(255, 0, 0, 0.5)",
	}, shards.Marker.Color)
}

func TestBuild_HighlightDoesNotChangeValues(t *testing.T) {
	builder := NewBuilder(zerolog.Nop())
	records := chartRecords()
	highlight := 0

	plain := builder.Build(records, nil)
	marked := builder.Build(records, &highlight)

	for i := range plain.Data {
		assert.Equal(t, plain.Data[i].X, marked.Data[i].X)
		assert.Equal(t, plain.Data[i].Y, marked.Data[i].Y)
		assert.Equal(t, plain.Data[i].HoverText, marked.Data[i].HoverText)
	}
	assert.Equal(t, plain.Layout, marked.Layout)
}

func TestBuild_OutOfRangeHighlightIgnored(t *testing.T) {
	builder := NewBuilder(zerolog.Nop())
	records := chartRecords()

	for _, position := range []int{-1, len(records), len(records) + 10} {
		highlight := position
		fig := builder.Build(records, &highlight)

		drop := fig.Data[0]
		for i := range drop.Marker.Size {
			assert.Equal(t, 6.0, drop.Marker.Size[i], "position %d", position)
		}
	}
}

func TestBuild_LogAxisRanges(t *testing.T) {
	builder := NewBuilder(zerolog.Nop())

	fig := builder.Build(chartRecords(), nil)

	require.NotNil(t, fig.Layout.YAxis.Range)
	assert.Equal(t, 0.0, fig.Layout.YAxis.Range[0])
	assert.InDelta(t, math.Log10(10000), fig.Layout.YAxis.Range[1], 1e-9)

	require.NotNil(t, fig.Layout.YAxis2.Range)
	assert.InDelta(t, math.Log10(100), fig.Layout.YAxis2.Range[1], 1e-9)
}

func TestBuild_SubUnitMaximumCollapsesRange(t *testing.T) {
	builder := NewBuilder(zerolog.Nop())
	records := []allocation.AllocationRecord{
		{Name: "dust", WalletAddress: "0x0000000001", DropAmount: 0.5, ShardCount: 0},
	}

	fig := builder.Build(records, nil)

	assert.Equal(t, [2]float64{0, 0}, *fig.Layout.YAxis.Range)
	assert.Equal(t, [2]float64{0, 0}, *fig.Layout.YAxis2.Range)
}

func TestBuild_EmptyTable(t *testing.T) {
	builder := NewBuilder(zerolog.Nop())

	fig := builder.Build(nil, nil)

	require.Len(t, fig.Data, 2)
	assert.Empty(t, fig.Data[0].X)
	assert.Empty(t, fig.Data[1].X)
	assert.Equal(t, [2]float64{0, 0}, *fig.Layout.YAxis.Range)
}

func TestBuild_HoverTextFormat(t *testing.T) {
	builder := NewBuilder(zerolog.Nop())

	fig := builder.Build(chartRecords(), nil)

	assert.Equal(t,
		"Rank: 1<br>Name: alice<br>Wallet: 0xABCDEF1234<br>$WILD Drop: 10,000.00<br>wShards: 100",
		fig.Data[0].HoverText[0])
	assert.Equal(t, "Rank: 1<br>wShards: 100", fig.Data[1].HoverText[0])
}
