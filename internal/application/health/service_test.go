package health

import (
	"context"
	"errors"
	"testing"

	"github.com/ttrnecka/rebbl-stock-market/internal/application/market"
	"github.com/ttrnecka/rebbl-stock-market/internal/middleware"
	"github.com/ttrnecka/rebbl-stock-market/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping() error { return p.err }

func TestCollectHealth_AllConnected(t *testing.T) {
	rdb, mr := testutil.Redis(t)
	db := testutil.DB(t)
	gate := &market.Gate{DB: db}
	ctx := context.Background()
	require.NoError(t, gate.SetWeek(ctx, 4))
	require.NoError(t, mr.Set(middleware.KeyReqTotal, "10"))
	require.NoError(t, mr.Set(middleware.KeyReqErrors, "1"))

	res := CollectHealth(ctx, rdb, pinger{}, gate)
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, "connected", res.Dependencies["database"].Status)
	assert.Equal(t, "connected", res.Dependencies["redis"].Status)
	assert.Equal(t, 9, res.Traffic.SuccessCount)
	assert.Equal(t, "90.0", res.Traffic.SuccessRate)
	require.NotNil(t, res.Market)
	assert.True(t, res.Market.Open)
	assert.Equal(t, 4, res.Market.Week)
	assert.True(t, mr.Exists(middleware.KeyStartTime))
}

func TestCollectHealth_NoRedisStillOK(t *testing.T) {
	res := CollectHealth(context.Background(), nil, pinger{}, nil)
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, "not configured", res.Dependencies["redis"].Status)
	assert.Nil(t, res.Market)
}

func TestCollectHealth_DatabaseDown(t *testing.T) {
	res := CollectHealth(context.Background(), nil, pinger{err: errors.New("down")}, nil)
	assert.Equal(t, "issue", res.Status)
	assert.Equal(t, "error", res.Dependencies["database"].Status)

	res = CollectHealth(context.Background(), nil, nil, nil)
	assert.Equal(t, "issue", res.Status)
	assert.Equal(t, "disconnected", res.Dependencies["database"].Status)
}
