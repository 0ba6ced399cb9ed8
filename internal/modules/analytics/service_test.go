package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/odyssey/internal/modules/allocation"
)

func recordsWithDrops(drops ...float64) []allocation.AllocationRecord {
	records := make([]allocation.AllocationRecord, len(drops))
	for i, d := range drops {
		records[i] = allocation.AllocationRecord{
			Name:       "participant",
			DropAmount: d,
			ShardCount: d / 10,
		}
	}
	return records
}

func TestSummarize_KnownDistribution(t *testing.T) {
	summary := Summarize(recordsWithDrops(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))

	assert.Equal(t, 10, summary.Participants)
	assert.Equal(t, 55.0, summary.TotalDrop)
	assert.Equal(t, 5.5, summary.TotalShards)
	assert.InDelta(t, 5.5, summary.MeanDrop, 1e-9)
	assert.InDelta(t, 5.0, summary.MedianDrop, 1e-9)
	assert.InDelta(t, 9.0, summary.P90Drop, 1e-9)
	assert.InDelta(t, 10.0, summary.P99Drop, 1e-9)
	assert.Equal(t, 10.0, summary.MaxDrop)
	assert.InDelta(t, 10.0/55.0, summary.TopDecileShare, 1e-9)
}

func TestSummarize_UnsortedInput(t *testing.T) {
	// Table order is rank order, not value order; statistics must not
	// depend on it.
	a := Summarize(recordsWithDrops(10, 1, 5, 3, 8, 2, 9, 4, 7, 6))
	b := Summarize(recordsWithDrops(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))

	assert.Equal(t, b, a)
}

func TestSummarize_SingleRecord(t *testing.T) {
	summary := Summarize(recordsWithDrops(100))

	assert.Equal(t, 1, summary.Participants)
	assert.Equal(t, 100.0, summary.TotalDrop)
	assert.InDelta(t, 100.0, summary.MedianDrop, 1e-9)
	assert.Equal(t, 100.0, summary.MaxDrop)
	assert.InDelta(t, 1.0, summary.TopDecileShare, 1e-9)
}

func TestSummarize_EmptyTable(t *testing.T) {
	summary := Summarize(nil)

	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.Participants)
	assert.Zero(t, summary.TotalDrop)
	assert.Zero(t, summary.MeanDrop)
	assert.Zero(t, summary.TopDecileShare)
}

func TestSummarize_AllZeroDrops(t *testing.T) {
	summary := Summarize(recordsWithDrops(0, 0, 0))

	assert.Equal(t, 3, summary.Participants)
	assert.Zero(t, summary.TotalDrop)
	assert.Zero(t, summary.MaxDrop)
	assert.Zero(t, summary.TopDecileShare)
}
