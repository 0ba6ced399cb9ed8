// Package analytics computes summary statistics over the reward
// distribution for the operator-facing summary endpoint.
package analytics

import (
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/odyssey/internal/modules/allocation"
)

// Summary describes the shape of the reward distribution.
type Summary struct {
	Participants   int     `json:"participants"`
	TotalDrop      float64 `json:"total_drop"`
	TotalShards    float64 `json:"total_shards"`
	MeanDrop       float64 `json:"mean_drop"`
	MedianDrop     float64 `json:"median_drop"`
	P90Drop        float64 `json:"p90_drop"`
	P99Drop        float64 `json:"p99_drop"`
	MaxDrop        float64 `json:"max_drop"`
	TopDecileShare float64 `json:"top_decile_share"` // fraction of the total drop held by the top 10% of wallets
}

// Service computes distribution summaries.
type Service struct {
	allocService *allocation.Service
	log          zerolog.Logger
}

// NewService creates a new analytics service
func NewService(allocService *allocation.Service, log zerolog.Logger) *Service {
	return &Service{
		allocService: allocService,
		log:          log.With().Str("service", "analytics").Logger(),
	}
}

// Summarize computes the distribution summary for the active table.
func (s *Service) Summarize() (*Summary, error) {
	ix, err := s.allocService.Index()
	if err != nil {
		return nil, err
	}

	return Summarize(ix.Records()), nil
}

// Summarize computes summary statistics for an ordered record sequence.
// An empty table yields a zero-valued summary.
func Summarize(records []allocation.AllocationRecord) *Summary {
	summary := &Summary{Participants: len(records)}
	if len(records) == 0 {
		return summary
	}

	drops := make([]float64, len(records))
	for i, rec := range records {
		drops[i] = rec.DropAmount
		summary.TotalDrop += rec.DropAmount
		summary.TotalShards += rec.ShardCount
	}

	// stat.Quantile requires ascending input.
	sorted := make([]float64, len(drops))
	copy(sorted, drops)
	sort.Float64s(sorted)

	summary.MeanDrop = stat.Mean(drops, nil)
	summary.MedianDrop = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	summary.P90Drop = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	summary.P99Drop = stat.Quantile(0.99, stat.Empirical, sorted, nil)
	summary.MaxDrop = sorted[len(sorted)-1]

	if summary.TotalDrop > 0 {
		topCount := len(sorted) / 10
		if topCount == 0 {
			topCount = 1
		}
		var topSum float64
		for _, v := range sorted[len(sorted)-topCount:] {
			topSum += v
		}
		summary.TopDecileShare = topSum / summary.TotalDrop
	}

	return summary
}
