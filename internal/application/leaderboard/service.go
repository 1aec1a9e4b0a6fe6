package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ttrnecka/rebbl-stock-market/internal/application/ledger"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/market"
	"github.com/ttrnecka/rebbl-stock-market/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service computes standings from accounts, shares, snapshots and point
// records. Nothing it returns is stored. Ranked lists are cached in Redis
// when a client is configured.
type Service struct {
	DB     *gorm.DB
	RDB    *redis.Client
	Gate   *market.Gate
	Season string
	// Baseline is the balance assumed when no earlier snapshot exists.
	Baseline    decimal.Decimal
	PointsTable []int
	TTL         time.Duration
}

func (s *Service) cacheKey(m Metric) string {
	return fmt.Sprintf("leaderboard:%s:%s", s.Season, m)
}

// Standings returns the unranked standing of every active user.
func (s *Service) Standings(ctx context.Context) ([]Standing, error) {
	week, err := s.Gate.Week(ctx)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	var users []domain.User
	if err := db.Where("deleted = ?", false).Order("name").Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return []Standing{}, nil
	}
	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	var accounts []domain.Account
	if err := db.Where("user_id IN ? AND season = ?", ids, s.Season).Find(&accounts).Error; err != nil {
		return nil, err
	}
	accountByUser := make(map[uuid.UUID]domain.Account, len(accounts))
	accountIDs := make([]uuid.UUID, 0, len(accounts))
	for _, a := range accounts {
		accountByUser[a.UserID] = a
		accountIDs = append(accountIDs, a.ID)
	}

	holdings, err := ledger.HoldingsOf(db, ids)
	if err != nil {
		return nil, err
	}
	baselines, err := s.snapshots(db, accountIDs, week-1)
	if err != nil {
		return nil, err
	}
	points, err := s.points(db, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Standing, 0, len(users))
	for _, u := range users {
		account, ok := accountByUser[u.ID]
		if !ok {
			continue
		}
		h := holdings[u.ID]
		balance := account.Amount.Add(h.Value)
		baseline, ok := baselines[account.ID]
		if !ok {
			baseline = s.Baseline
		}
		out = append(out, Standing{
			UserID:      u.ID,
			ExternalID:  u.ExternalID,
			Name:        u.Name,
			Balance:     balance,
			CurrentGain: balance.Sub(baseline),
			Points:      points[u.ID],
			Shares:      h.Units,
		})
	}
	return out, nil
}

func (s *Service) snapshots(db *gorm.DB, accountIDs []uuid.UUID, week int) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal)
	if len(accountIDs) == 0 || week < 0 {
		return out, nil
	}
	var snaps []domain.AccountSnapshot
	if err := db.Where("account_id IN ? AND week = ?", accountIDs, week).Find(&snaps).Error; err != nil {
		return nil, err
	}
	for _, snap := range snaps {
		out[snap.AccountID] = snap.Amount
	}
	return out, nil
}

func (s *Service) points(db *gorm.DB, userIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	var cards []domain.PointCard
	if err := db.Where("user_id IN ? AND season = ?", userIDs, s.Season).Find(&cards).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int, len(cards))
	if len(cards) == 0 {
		return out, nil
	}
	cardIDs := make([]uuid.UUID, 0, len(cards))
	userByCard := make(map[uuid.UUID]uuid.UUID, len(cards))
	for _, c := range cards {
		cardIDs = append(cardIDs, c.ID)
		userByCard[c.ID] = c.UserID
	}
	var rows []struct {
		PointCardID uuid.UUID
		Total       int
	}
	err := db.Model(&domain.PointRecord{}).
		Select("point_card_id, SUM(amount) AS total").
		Where("point_card_id IN ?", cardIDs).
		Group("point_card_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[userByCard[r.PointCardID]] = r.Total
	}
	return out, nil
}

// Top returns the first n ranked standings by metric, served from the cache
// while it is fresh.
func (s *Service) Top(ctx context.Context, m Metric, n int) ([]Standing, error) {
	if s.RDB != nil {
		raw, err := s.RDB.Get(ctx, s.cacheKey(m)).Bytes()
		if err == nil {
			var ranked []Standing
			if jerr := json.Unmarshal(raw, &ranked); jerr == nil {
				return truncate(ranked, n), nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("Leaderboard cache read failed")
		}
	}

	standings, err := s.Standings(ctx)
	if err != nil {
		return nil, err
	}
	ranked := Rank(standings, m, 0)
	if s.RDB != nil {
		if body, err := json.Marshal(ranked); err == nil {
			if err := s.RDB.Set(ctx, s.cacheKey(m), body, s.ttl()).Err(); err != nil {
				log.Warn().Err(err).Msg("Leaderboard cache write failed")
			}
		}
	}
	return truncate(ranked, n), nil
}

func (s *Service) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return time.Minute
}

func truncate(ranked []Standing, n int) []Standing {
	if n > 0 && len(ranked) > n {
		return ranked[:n]
	}
	return ranked
}

// Invalidate drops every cached ranking of the season.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.RDB == nil {
		return nil
	}
	return s.RDB.Del(ctx, s.cacheKey(MetricBalance), s.cacheKey(MetricGain), s.cacheKey(MetricPoints)).Err()
}

// Of returns the standing of one user.
func (s *Service) Of(ctx context.Context, userID uuid.UUID) (*Standing, error) {
	standings, err := s.Standings(ctx)
	if err != nil {
		return nil, err
	}
	for i := range standings {
		if standings[i].UserID == userID {
			return &standings[i], nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// Balance is cash plus the current value of all shares.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	st, err := s.Of(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return st.Balance, nil
}

// CurrentGain is the balance minus the snapshot of the previous week.
func (s *Service) CurrentGain(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	st, err := s.Of(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return st.CurrentGain, nil
}

// Points sums the season point records of a user.
func (s *Service) Points(ctx context.Context, userID uuid.UUID) (int, error) {
	points, err := s.points(s.DB.WithContext(ctx), []uuid.UUID{userID})
	if err != nil {
		return 0, err
	}
	return points[userID], nil
}

// WeekGain is the snapshot of week minus the snapshot of the week before.
// The second result is false when week has no snapshot for the user.
func (s *Service) WeekGain(ctx context.Context, userID uuid.UUID, week int) (decimal.Decimal, bool, error) {
	gains, err := s.weekGains(s.DB.WithContext(ctx), week, []uuid.UUID{userID})
	if err != nil {
		return decimal.Zero, false, err
	}
	gain, ok := gains[userID]
	return gain, ok, nil
}

func (s *Service) weekGains(db *gorm.DB, week int, userIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	var accounts []domain.Account
	if err := db.Where("user_id IN ? AND season = ?", userIDs, s.Season).Find(&accounts).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	current, err := s.snapshots(db, ids, week)
	if err != nil {
		return nil, err
	}
	previous, err := s.snapshots(db, ids, week-1)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]decimal.Decimal, len(current))
	for _, a := range accounts {
		end, ok := current[a.ID]
		if !ok {
			continue
		}
		start, ok := previous[a.ID]
		if !ok {
			start = s.Baseline
		}
		out[a.UserID] = end.Sub(start)
	}
	return out, nil
}

// AwardWeek ranks active users by their gain in week and appends season
// points from the points table to every user on an awarded rank. Users
// already awarded for the week are skipped, so re-running is harmless.
// It returns the number of records written.
func (s *Service) AwardWeek(ctx context.Context, week int) (int, error) {
	written := 0
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users []domain.User
		if err := tx.Where("deleted = ?", false).Find(&users).Error; err != nil {
			return err
		}
		if len(users) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(users))
		names := make(map[uuid.UUID]string, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
			names[u.ID] = u.Name
		}
		gains, err := s.weekGains(tx, week, ids)
		if err != nil {
			return err
		}
		standings := make([]Standing, 0, len(gains))
		for userID, gain := range gains {
			standings = append(standings, Standing{UserID: userID, Name: names[userID], CurrentGain: gain})
		}

		for _, st := range Rank(standings, MetricGain, 0) {
			if st.Rank > len(s.PointsTable) {
				break
			}
			amount := s.PointsTable[st.Rank-1]
			if amount <= 0 {
				continue
			}
			var card domain.PointCard
			if err := tx.Where("user_id = ? AND season = ?", st.UserID, s.Season).First(&card).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return err
			}
			var existing int64
			if err := tx.Model(&domain.PointRecord{}).Where("point_card_id = ? AND week = ?", card.ID, week).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				continue
			}
			record := domain.PointRecord{
				PointCardID: card.ID,
				Week:        week,
				Amount:      amount,
				Reason:      fmt.Sprintf("Week %d gain rank %d", week, st.Rank),
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := s.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("Leaderboard cache invalidation failed")
	}
	log.Info().Int("week", week).Int("records", written).Msg("Weekly points awarded")
	return written, nil
}
