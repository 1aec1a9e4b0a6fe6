package leaderboard

import (
	"testing"

	"github.com/ttrnecka/rebbl-stock-market/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank_TiesShareRank(t *testing.T) {
	in := []Standing{
		{Name: "a", Balance: testutil.D("100")},
		{Name: "b", Balance: testutil.D("300")},
		{Name: "c", Balance: testutil.D("300")},
		{Name: "d", Balance: testutil.D("50")},
		{Name: "e", Balance: testutil.D("100.00")},
	}
	out := Rank(in, MetricBalance, 0)
	names := make([]string, 0, len(out))
	ranks := make([]int, 0, len(out))
	for _, s := range out {
		names = append(names, s.Name)
		ranks = append(ranks, s.Rank)
	}
	assert.Equal(t, []string{"b", "c", "a", "e", "d"}, names)
	assert.Equal(t, []int{1, 1, 2, 2, 3}, ranks)
	assert.Zero(t, in[0].Rank, "input is not modified")
}

func TestRank_Truncates(t *testing.T) {
	in := []Standing{{Name: "a", Points: 1}, {Name: "b", Points: 5}, {Name: "c", Points: 3}}
	out := Rank(in, MetricPoints, 2)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Name)
	assert.Equal(t, "c", out[1].Name)
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricBalance, m)
	m, err = ParseMetric("gain")
	require.NoError(t, err)
	assert.Equal(t, MetricGain, m)
	_, err = ParseMetric("karma")
	assert.Error(t, err)
}
