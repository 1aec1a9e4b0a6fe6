package orders

import (
	"context"
	"testing"

	"github.com/ttrnecka/rebbl-stock-market/internal/application/market"
	"github.com/ttrnecka/rebbl-stock-market/internal/domain"
	"github.com/ttrnecka/rebbl-stock-market/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*Book, *gorm.DB, *domain.User, *domain.Stock) {
	t.Helper()
	db := testutil.DB(t)
	user, _ := testutil.SeedUser(t, db, 1, "alice", "s1", "30000")
	stock := testutil.SeedStock(t, db, "FOO", "500")
	return &Book{DB: db, MaxShareUnits: 10}, db, user, stock
}

func TestCreate_Descriptions(t *testing.T) {
	book, _, user, stock := setup(t)
	ctx := context.Background()

	cases := []struct {
		op   domain.Operation
		buy  domain.BuyBound
		sell domain.SellBound
		want string
	}{
		{domain.OperationBuy, domain.BuyFunds(testutil.D("1500")), domain.SellAll(), "Buy FOO (" + stock.Name + ") for up to 1500.00 credits or up to 10 owned shares limit"},
		{domain.OperationBuy, domain.BuyShares(3), domain.SellAll(), "Buy up to 3 shares of FOO (" + stock.Name + ") or up to 10 owned shares limit"},
		{domain.OperationBuy, domain.BuyUnbounded(), domain.SellAll(), "Buy FOO (" + stock.Name + ") for all available credits or up to 10 owned shares limit"},
		{domain.OperationSell, domain.BuyUnbounded(), domain.SellShares(4), "Sell up to 4 units of FOO (" + stock.Name + ")"},
		{domain.OperationSell, domain.BuyUnbounded(), domain.SellAll(), "Sell all units of FOO (" + stock.Name + ")"},
	}
	for _, tc := range cases {
		order, err := book.Create(ctx, user, stock, tc.op, tc.buy, tc.sell)
		require.NoError(t, err)
		assert.Equal(t, tc.want, order.Description)
		assert.False(t, order.Processed)
	}
}

func TestCreate_StoresOnlyMatchingBound(t *testing.T) {
	book, db, user, stock := setup(t)
	order, err := book.Create(context.Background(), user, stock, domain.OperationBuy, domain.BuyShares(2), domain.SellShares(5))
	require.NoError(t, err)

	stored := testutil.Reload[domain.Order](t, db, order.ID)
	require.NotNil(t, stored.BuyShares)
	assert.Equal(t, 2, *stored.BuyShares)
	assert.Nil(t, stored.BuyFunds)
	assert.Nil(t, stored.SellShares)
}

func TestCreate_MarketClosed(t *testing.T) {
	book, db, user, stock := setup(t)
	gate := &market.Gate{DB: db}
	require.NoError(t, gate.Close(context.Background()))

	_, err := book.Create(context.Background(), user, stock, domain.OperationSell, domain.BuyUnbounded(), domain.SellAll())
	assert.ErrorIs(t, err, domain.ErrMarketClosed)

	var n int64
	require.NoError(t, db.Model(&domain.Order{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreate_ShareCap(t *testing.T) {
	book, db, user, stock := setup(t)
	ctx := context.Background()

	testutil.SeedShare(t, db, user, stock, 9)
	_, err := book.Create(ctx, user, stock, domain.OperationBuy, domain.BuyUnbounded(), domain.SellAll())
	require.NoError(t, err, "approaching the cap is accepted")

	require.NoError(t, db.Model(&domain.Share{}).Where("user_id = ?", user.ID).Update("units", 10).Error)
	_, err = book.Create(ctx, user, stock, domain.OperationBuy, domain.BuyUnbounded(), domain.SellAll())
	require.Error(t, err)
	assert.True(t, domain.IsShareCapExceeded(err))
	assert.EqualError(t, err, "You already own 10 shares of FOO")

	_, err = book.Create(ctx, user, stock, domain.OperationSell, domain.BuyUnbounded(), domain.SellAll())
	assert.NoError(t, err, "selling is never capped")
}

func TestCreate_Invalid(t *testing.T) {
	book, db, user, stock := setup(t)
	ctx := context.Background()

	_, err := book.Create(ctx, user, stock, domain.Operation("hold"), domain.BuyUnbounded(), domain.SellAll())
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)

	_, err = book.Create(ctx, user, stock, domain.OperationBuy, domain.BuyShares(0), domain.SellAll())
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)

	_, err = book.Create(ctx, user, stock, domain.OperationSell, domain.BuyUnbounded(), domain.SellShares(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)

	require.NoError(t, db.Model(user).Update("deleted", true).Error)
	user = testutil.Reload[domain.User](t, db, user.ID)
	_, err = book.Create(ctx, user, stock, domain.OperationSell, domain.BuyUnbounded(), domain.SellAll())
	assert.ErrorIs(t, err, domain.ErrUserInactive)
}

func TestCancel(t *testing.T) {
	book, db, user, stock := setup(t)
	ctx := context.Background()
	other, _ := testutil.SeedUser(t, db, 2, "bob", "s1", "30000")

	order, err := book.Create(ctx, user, stock, domain.OperationBuy, domain.BuyUnbounded(), domain.SellAll())
	require.NoError(t, err)

	ok, err := book.Cancel(ctx, order.ID, other)
	require.NoError(t, err)
	assert.False(t, ok, "only the owner can cancel")

	ok, err = book.Cancel(ctx, order.ID, user)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = book.ByID(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	ok, err = book.Cancel(ctx, order.ID, user)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCancel_ProcessedOrderIsKept(t *testing.T) {
	book, db, user, stock := setup(t)
	ctx := context.Background()
	order, err := book.Create(ctx, user, stock, domain.OperationBuy, domain.BuyUnbounded(), domain.SellAll())
	require.NoError(t, err)
	require.NoError(t, db.Model(order).Update("processed", true).Error)

	ok, err := book.Cancel(ctx, order.ID, user)
	require.NoError(t, err)
	assert.False(t, ok)

	stored := testutil.Reload[domain.Order](t, db, order.ID)
	assert.True(t, stored.Processed)
}

func TestCancel_MarketClosed(t *testing.T) {
	book, db, user, stock := setup(t)
	ctx := context.Background()
	order, err := book.Create(ctx, user, stock, domain.OperationBuy, domain.BuyUnbounded(), domain.SellAll())
	require.NoError(t, err)
	require.NoError(t, (&market.Gate{DB: db}).Close(ctx))

	ok, err := book.Cancel(ctx, order.ID, user)
	assert.ErrorIs(t, err, domain.ErrMarketClosed)
	assert.False(t, ok)
}

func TestPending_ExcludesProcessedAndIsFIFO(t *testing.T) {
	book, db, user, stock := setup(t)
	ctx := context.Background()
	var ids []uint
	for i := 0; i < 3; i++ {
		o, err := book.Create(ctx, user, stock, domain.OperationBuy, domain.BuyUnbounded(), domain.SellAll())
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}
	_, err := book.Create(ctx, user, stock, domain.OperationSell, domain.BuyUnbounded(), domain.SellAll())
	require.NoError(t, err)
	require.NoError(t, db.Model(&domain.Order{}).Where("id = ?", ids[1]).Update("processed", true).Error)

	pending, err := book.Pending(ctx, domain.OperationBuy)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[0], pending[0].ID)
	assert.Equal(t, ids[2], pending[1].ID)

	mine, err := book.ForUser(ctx, user, false)
	require.NoError(t, err)
	assert.Len(t, mine, 3)
	all, err := book.ForUser(ctx, user, true)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
