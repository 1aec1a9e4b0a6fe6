package ledger

import (
	"context"
	"testing"

	"github.com/ttrnecka/rebbl-stock-market/internal/domain"
	"github.com/ttrnecka/rebbl-stock-market/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const season = "season-1"

func TestApply_DebitAndCredit(t *testing.T) {
	db := testutil.DB(t)
	_, account := testutil.SeedUser(t, db, 1, "coach#0001", season, "30000")

	tx, err := Apply(db, account, &domain.Transaction{Price: testutil.D("5000"), Description: "Bought 10 FOO share(s)"})
	require.NoError(t, err)
	assert.True(t, tx.Confirmed)
	assert.NotNil(t, tx.DateConfirmed)
	assert.True(t, account.Amount.Equal(testutil.D("25000")))

	_, err = Apply(db, account, &domain.Transaction{Price: testutil.D("-2400"), Description: "Sold 4 FOO share(s)"})
	require.NoError(t, err)

	stored := testutil.Reload[domain.Account](t, db, account.ID)
	assert.True(t, stored.Amount.Equal(testutil.D("27400")), stored.Amount.String())

	var txs []domain.Transaction
	require.NoError(t, db.Where("account_id = ?", account.ID).Find(&txs).Error)
	assert.Len(t, txs, 2)
}

func TestApply_InsufficientFunds(t *testing.T) {
	db := testutil.DB(t)
	_, account := testutil.SeedUser(t, db, 1, "coach#0001", season, "100")

	_, err := Apply(db, account, &domain.Transaction{Price: testutil.D("100.0000001"), Description: "too much"})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	stored := testutil.Reload[domain.Account](t, db, account.ID)
	assert.True(t, stored.Amount.Equal(testutil.D("100")))
	var count int64
	db.Model(&domain.Transaction{}).Count(&count)
	assert.Zero(t, count)
}

func TestApply_ExactBalanceAllowed(t *testing.T) {
	db := testutil.DB(t)
	_, account := testutil.SeedUser(t, db, 1, "coach#0001", season, "100")
	_, err := Apply(db, account, &domain.Transaction{Price: testutil.D("100"), Description: "all in"})
	require.NoError(t, err)
	assert.True(t, account.Amount.IsZero())
}

func TestApply_DoubleConfirmation(t *testing.T) {
	db := testutil.DB(t)
	_, account := testutil.SeedUser(t, db, 1, "coach#0001", season, "100")
	tx := &domain.Transaction{Price: testutil.D("10"), Description: "once"}
	_, err := Apply(db, account, tx)
	require.NoError(t, err)

	_, err = Apply(db, account, tx)
	assert.ErrorIs(t, err, domain.ErrDoubleConfirmation)
	assert.True(t, account.Amount.Equal(testutil.D("90")))
}

func TestAccountFor(t *testing.T) {
	db := testutil.DB(t)
	user, account := testutil.SeedUser(t, db, 1, "coach#0001", season, "100")

	got, err := AccountFor(db, user.ID, season)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	_, err = AccountFor(db, user.ID, "season-2")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestService_BalanceAndSnapshot(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	svc := &Service{DB: db, Season: season}

	alice, aliceAcc := testutil.SeedUser(t, db, 1, "alice#0001", season, "25000")
	bob, _ := testutil.SeedUser(t, db, 2, "bob#0002", season, "1000")
	foo := testutil.SeedStock(t, db, "FOO", "500")
	bar := testutil.SeedStock(t, db, "BAR", "12.5")
	testutil.SeedShare(t, db, alice, foo, 10)
	testutil.SeedShare(t, db, alice, bar, 2)

	balance, err := svc.Balance(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(testutil.D("30025")), balance.String())

	n, err := svc.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	amount, ok, err := svc.SnapshotAmount(ctx, alice.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, amount.Equal(testutil.D("30025")))

	// re-snapshotting the same week overwrites instead of failing the unique index
	require.NoError(t, db.Model(aliceAcc).Update("amount", testutil.D("26000")).Error)
	_, err = svc.Snapshot(ctx, 1)
	require.NoError(t, err)
	amount, _, err = svc.SnapshotAmount(ctx, alice.ID, 1)
	require.NoError(t, err)
	assert.True(t, amount.Equal(testutil.D("31025")), amount.String())

	var snaps int64
	db.Model(&domain.AccountSnapshot{}).Count(&snaps)
	assert.Equal(t, int64(2), snaps)

	_, ok, err = svc.SnapshotAmount(ctx, bob.ID, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	history, err := svc.History(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 12, history[1].Shares)
}

func TestService_SnapshotSkipsInactiveUsers(t *testing.T) {
	db := testutil.DB(t)
	svc := &Service{DB: db, Season: season}
	user, _ := testutil.SeedUser(t, db, 1, "gone#0001", season, "10")
	require.NoError(t, db.Model(user).Update("deleted", true).Error)

	n, err := svc.Snapshot(context.Background(), 3)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_BalanceUnknownUser(t *testing.T) {
	svc := &Service{DB: testutil.DB(t), Season: season}
	_, err := svc.Balance(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestProperty_AccountNeverNegative(t *testing.T) {
	db := testutil.DB(t)
	_, account := testutil.SeedUser(t, db, 1, "prop#0001", season, "1000")

	rapid.Check(t, func(rt *rapid.T) {
		cents := rapid.Int64Range(-50000, 150000).Draw(rt, "cents")
		price := decimal.New(cents, -2)
		before := account.Amount
		_, err := Apply(db, account, &domain.Transaction{Price: price, Description: "prop"})
		if err != nil {
			if !before.LessThan(price) {
				rt.Fatalf("rejected affordable transaction %s with %s: %v", price, before, err)
			}
			if !account.Amount.Equal(before) {
				rt.Fatalf("rejected transaction changed amount")
			}
		}
		if account.Amount.IsNegative() {
			rt.Fatalf("account went negative: %s", account.Amount)
		}
	})
}
