// Package leaderboard ranks coaches by balance, gain and season points.
package leaderboard

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Metric is a ranking criterion.
type Metric string

const (
	MetricBalance Metric = "balance"
	MetricGain    Metric = "gain"
	MetricPoints  Metric = "points"
)

// ParseMetric accepts the metric names used in the API, defaulting to balance.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "", MetricBalance:
		return MetricBalance, nil
	case MetricGain, MetricPoints:
		return Metric(s), nil
	}
	return "", fmt.Errorf("unknown leaderboard metric %q", s)
}

// Standing is the derived portfolio view of one user.
type Standing struct {
	UserID      uuid.UUID       `json:"user_id"`
	ExternalID  int64           `json:"external_id"`
	Name        string          `json:"name"`
	Balance     decimal.Decimal `json:"balance"`
	CurrentGain decimal.Decimal `json:"current_gain"`
	Points      int             `json:"points"`
	Shares      int             `json:"shares"`
	Rank        int             `json:"rank"`
}

func (s Standing) value(m Metric) decimal.Decimal {
	switch m {
	case MetricGain:
		return s.CurrentGain
	case MetricPoints:
		return decimal.NewFromInt(int64(s.Points))
	}
	return s.Balance
}

// Rank orders standings by metric, highest first, and assigns dense ranks:
// equal values share a rank and the next distinct value gets the previous
// rank plus one. n > 0 truncates the result.
func Rank(standings []Standing, m Metric, n int) []Standing {
	out := make([]Standing, len(standings))
	copy(out, standings)
	sort.SliceStable(out, func(i, j int) bool {
		vi, vj := out[i].value(m), out[j].value(m)
		if !vi.Equal(vj) {
			return vi.GreaterThan(vj)
		}
		return out[i].Name < out[j].Name
	})
	rank := 0
	for i := range out {
		if i == 0 || !out[i].value(m).Equal(out[i-1].value(m)) {
			rank++
		}
		out[i].Rank = rank
	}
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
