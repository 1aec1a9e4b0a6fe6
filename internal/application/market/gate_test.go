package market

import (
	"context"
	"testing"

	"github.com/ttrnecka/rebbl-stock-market/internal/domain"
	"github.com/ttrnecka/rebbl-stock-market/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_InitiallyOpen(t *testing.T) {
	g := &Gate{DB: testutil.DB(t)}
	open, err := g.IsOpen(context.Background())
	require.NoError(t, err)
	assert.True(t, open)
	assert.NoError(t, RequireOpen(g.DB))
}

func TestGate_TransitionsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	g := &Gate{DB: testutil.DB(t)}

	require.NoError(t, g.Close(ctx))
	require.NoError(t, g.Close(ctx))
	open, err := g.IsOpen(ctx)
	require.NoError(t, err)
	assert.False(t, open)
	assert.ErrorIs(t, RequireOpen(g.DB), domain.ErrMarketClosed)

	require.NoError(t, g.Open(ctx))
	require.NoError(t, g.Open(ctx))
	open, err = g.IsOpen(ctx)
	require.NoError(t, err)
	assert.True(t, open)

	var rows int64
	g.DB.Model(&domain.Setting{}).Count(&rows)
	assert.Equal(t, int64(1), rows)
}

func TestGate_StateIsDurableAcrossInstances(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	require.NoError(t, (&Gate{DB: db}).Close(ctx))

	other := &Gate{DB: db}
	open, err := other.IsOpen(ctx)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestGate_Week(t *testing.T) {
	ctx := context.Background()
	g := &Gate{DB: testutil.DB(t)}
	week, err := g.Week(ctx)
	require.NoError(t, err)
	assert.Zero(t, week)

	require.NoError(t, g.SetWeek(ctx, 4))
	require.NoError(t, g.SetWeek(ctx, 5))
	week, err = g.Week(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, week)
}
