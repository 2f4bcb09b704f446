package snapshots

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// Metrics summarizes the daily-return series of a snapshot range. Values are
// float64: this is descriptive analytics over stored valuations, not ledger
// arithmetic, and it never flows back into persisted state.
type Metrics struct {
	Days             int     `json:"days"`
	CumulativeReturn float64 `json:"cumulative_return"`
	MeanDailyReturn  float64 `json:"mean_daily_return"`
	Volatility       float64 `json:"volatility"`
	AnnualizedVol    float64 `json:"annualized_volatility"`
	BestDay          float64 `json:"best_day"`
	WorstDay         float64 `json:"worst_day"`
	MaxDrawdown      float64 `json:"max_drawdown"`
}

// ComputeMetrics loads the snapshot range and derives return statistics.
// Ranges with fewer than two snapshots yield a zero-valued result.
func (r *Reconstructor) ComputeMetrics(portfolioID uuid.UUID, start, end time.Time) (*Metrics, error) {
	snapshots, err := r.snapshots.GetRange(portfolioID, start, end)
	if err != nil {
		return nil, err
	}

	metrics := &Metrics{Days: len(snapshots)}
	if len(snapshots) < 2 {
		return metrics, nil
	}

	values := make([]float64, len(snapshots))
	for i, s := range snapshots {
		values[i], _ = s.TotalValue.Float64()
	}

	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, values[i]/values[i-1]-1)
	}

	metrics.MeanDailyReturn = stat.Mean(returns, nil)
	metrics.Volatility = math.Sqrt(stat.Variance(returns, nil))
	metrics.AnnualizedVol = metrics.Volatility * math.Sqrt(252)

	metrics.BestDay = returns[0]
	metrics.WorstDay = returns[0]
	for _, ret := range returns[1:] {
		metrics.BestDay = math.Max(metrics.BestDay, ret)
		metrics.WorstDay = math.Min(metrics.WorstDay, ret)
	}

	if values[0] != 0 {
		metrics.CumulativeReturn = values[len(values)-1]/values[0] - 1
	}

	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			drawdown := (peak - v) / peak
			metrics.MaxDrawdown = math.Max(metrics.MaxDrawdown, drawdown)
		}
	}

	return metrics, nil
}
