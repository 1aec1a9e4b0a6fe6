package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/ttrnecka/rebbl-stock-market/internal/application/ledger"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/market"
	"github.com/ttrnecka/rebbl-stock-market/internal/domain"
	"github.com/ttrnecka/rebbl-stock-market/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const season = "s1"

func newService(t *testing.T) (*Service, *ledger.Service) {
	t.Helper()
	db := testutil.DB(t)
	rdb, _ := testutil.Redis(t)
	s := &Service{
		DB:          db,
		RDB:         rdb,
		Gate:        &market.Gate{DB: db},
		Season:      season,
		Baseline:    testutil.D("1000"),
		PointsTable: []int{5, 3},
		TTL:         time.Minute,
	}
	return s, &ledger.Service{DB: db, Season: season}
}

func TestStandings(t *testing.T) {
	s, led := newService(t)
	ctx := context.Background()
	alice, _ := testutil.SeedUser(t, s.DB, 1, "alice", season, "1000")
	bob, bobAccount := testutil.SeedUser(t, s.DB, 2, "bob", season, "500")
	stock := testutil.SeedStock(t, s.DB, "FOO", "100")
	testutil.SeedShare(t, s.DB, bob, stock, 8)

	require.NoError(t, s.Gate.SetWeek(ctx, 1))
	_, err := led.Snapshot(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, s.DB.Model(bobAccount).Update("amount", testutil.D("700")).Error)

	standings, err := s.Standings(ctx)
	require.NoError(t, err)
	require.Len(t, standings, 2)

	byName := map[string]Standing{}
	for _, st := range standings {
		byName[st.Name] = st
	}
	assert.True(t, byName["alice"].Balance.Equal(testutil.D("1000")))
	assert.True(t, byName["alice"].CurrentGain.IsZero())
	assert.True(t, byName["bob"].Balance.Equal(testutil.D("1500")))
	assert.True(t, byName["bob"].CurrentGain.Equal(testutil.D("200")))
	assert.Equal(t, 8, byName["bob"].Shares)

	balance, err := s.Balance(ctx, bob.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(testutil.D("1500")))
	gain, err := s.CurrentGain(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, gain.IsZero())
}

func TestStandings_NoSnapshotUsesBaseline(t *testing.T) {
	s, _ := newService(t)
	testutil.SeedUser(t, s.DB, 1, "alice", season, "1250")

	standings, err := s.Standings(context.Background())
	require.NoError(t, err)
	require.Len(t, standings, 1)
	assert.True(t, standings[0].CurrentGain.Equal(testutil.D("250")))
}

func TestTop_CachesUntilInvalidated(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	_, account := testutil.SeedUser(t, s.DB, 1, "alice", season, "1000")
	testutil.SeedUser(t, s.DB, 2, "bob", season, "2000")

	top, err := s.Top(ctx, MetricBalance, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "bob", top[0].Name)

	require.NoError(t, s.DB.Model(account).Update("amount", testutil.D("5000")).Error)
	top, err = s.Top(ctx, MetricBalance, 1)
	require.NoError(t, err)
	assert.Equal(t, "bob", top[0].Name, "served from cache")

	require.NoError(t, s.Invalidate(ctx))
	top, err = s.Top(ctx, MetricBalance, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "alice", top[0].Name)
	assert.True(t, top[0].Balance.Equal(testutil.D("5000")))
}

func TestTop_WithoutRedis(t *testing.T) {
	s, _ := newService(t)
	s.RDB = nil
	testutil.SeedUser(t, s.DB, 1, "alice", season, "1000")

	top, err := s.Top(context.Background(), MetricPoints, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 1, top[0].Rank)
	assert.NoError(t, s.Invalidate(context.Background()))
}

func TestAwardWeek(t *testing.T) {
	s, led := newService(t)
	ctx := context.Background()
	alice, aliceAccount := testutil.SeedUser(t, s.DB, 1, "alice", season, "1000")
	bob, bobAccount := testutil.SeedUser(t, s.DB, 2, "bob", season, "1000")
	carol, carolAccount := testutil.SeedUser(t, s.DB, 3, "carol", season, "1000")
	dave, _ := testutil.SeedUser(t, s.DB, 4, "dave", season, "900")

	_, err := led.Snapshot(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, s.DB.Model(aliceAccount).Update("amount", testutil.D("1300")).Error)
	require.NoError(t, s.DB.Model(bobAccount).Update("amount", testutil.D("1300")).Error)
	require.NoError(t, s.DB.Model(carolAccount).Update("amount", testutil.D("1100")).Error)
	_, err = led.Snapshot(ctx, 2)
	require.NoError(t, err)

	gain, ok, err := s.WeekGain(ctx, alice.ID, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, gain.Equal(testutil.D("300")))
	_, ok, err = s.WeekGain(ctx, alice.ID, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.AwardWeek(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for user, want := range map[*domain.User]int{alice: 5, bob: 5, carol: 3, dave: 0} {
		got, err := s.Points(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got, user.Name)
	}

	n, err = s.AwardWeek(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, n)
	got, err := s.Points(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got)
}
