package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ttrnecka/rebbl-stock-market/internal/application/ledger"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/market"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/notifications"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/orders"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/stocks"
	"github.com/ttrnecka/rebbl-stock-market/internal/domain"
	"github.com/ttrnecka/rebbl-stock-market/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotifyChunkSize is how many order results go into one order channel message.
const NotifyChunkSize = 10

const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// CacheInvalidator drops derived views that settlement makes stale.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// RunOptions selects the optional steps of a batch.
type RunOptions struct {
	// FeedSource, when set, is imported before the market closes.
	FeedSource string
	// SkipSnapshot leaves balance snapshots to a separate run.
	SkipSnapshot bool
}

// PhaseReport counts the outcome of one operation's orders.
type PhaseReport struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Errors    int `json:"errors"`
}

// Report is stored as the JSON body of the SettlementRun row.
type Report struct {
	RunID     uuid.UUID            `json:"run_id"`
	Week      int                  `json:"week"`
	Stocks    *stocks.UpdateResult `json:"stocks,omitempty"`
	Sells     PhaseReport          `json:"sells"`
	Buys      PhaseReport          `json:"buys"`
	Snapshots int                  `json:"snapshots"`
	Error     string               `json:"error,omitempty"`
	Duration  string               `json:"duration"`
}

// Driver runs a whole settlement batch: close the market, settle every sell
// then every buy in FIFO order, snapshot balances and reopen.
type Driver struct {
	DB       *gorm.DB
	Engine   *Engine
	Book     *orders.Book
	Gate     *market.Gate
	Registry *stocks.Registry
	Ledger   *ledger.Service
	Lock     *Lock
	Cache    CacheInvalidator
	Admin    notifications.Notifier
	Orders   notifications.Notifier
}

// Run executes one batch. A failure after the market closed leaves it closed
// for an operator to inspect; the run row is marked failed either way.
func (d *Driver) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	release, err := d.Lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	week, err := d.Gate.Week(ctx)
	if err != nil {
		return nil, err
	}
	run := &domain.SettlementRun{Week: week, Status: RunRunning, StartedAt: start.UTC()}
	if err := d.DB.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	report := &Report{RunID: run.ID, Week: week}

	err = d.run(ctx, opts, report)
	report.Duration = time.Since(start).Round(time.Millisecond).String()
	metrics.SettlementDuration.Observe(time.Since(start).Seconds())

	status := RunCompleted
	if err != nil {
		status = RunFailed
		report.Error = err.Error()
		d.admin(ctx, fmt.Sprintf("Settlement failed: %v", err))
		log.Error().Err(err).Str("run_id", run.ID.String()).Msg("Settlement failed")
	}
	if ferr := d.finish(ctx, run, status, report); ferr != nil && err == nil {
		err = ferr
	}
	if err != nil {
		return report, err
	}

	if d.Cache != nil {
		if cerr := d.Cache.Invalidate(ctx); cerr != nil {
			log.Warn().Err(cerr).Msg("Leaderboard cache invalidation failed")
		}
	}
	log.Info().
		Str("run_id", run.ID.String()).
		Int("week", week).
		Int("sells", report.Sells.Processed).
		Int("buys", report.Buys.Processed).
		Str("duration", report.Duration).
		Msg("Settlement completed")
	return report, nil
}

func (d *Driver) run(ctx context.Context, opts RunOptions, report *Report) error {
	if opts.FeedSource != "" {
		d.admin(ctx, "Updating stocks ...")
		rows, err := stocks.LoadFeed(ctx, opts.FeedSource)
		if err != nil {
			return fmt.Errorf("load stock feed: %w", err)
		}
		res, err := d.Registry.Update(ctx, rows)
		if err != nil {
			return fmt.Errorf("update stocks: %w", err)
		}
		report.Stocks = &res
		d.admin(ctx, "Done")
	}

	d.admin(ctx, "Closing market ...")
	if err := d.Gate.Close(ctx); err != nil {
		return err
	}
	d.admin(ctx, "Done")

	d.admin(ctx, "Processing SELL orders...")
	sells, err := d.phase(ctx, domain.OperationSell)
	report.Sells = sells
	if err != nil {
		return err
	}
	d.admin(ctx, "Done")

	d.admin(ctx, "Processing BUY orders...")
	buys, err := d.phase(ctx, domain.OperationBuy)
	report.Buys = buys
	if err != nil {
		return err
	}
	d.admin(ctx, "Done")

	if !opts.SkipSnapshot {
		n, err := d.Ledger.Snapshot(ctx, report.Week)
		if err != nil {
			return fmt.Errorf("snapshot balances: %w", err)
		}
		report.Snapshots = n
	}

	d.admin(ctx, "Opening market...")
	if err := d.Gate.Open(ctx); err != nil {
		return err
	}
	d.admin(ctx, "Done")
	return nil
}

// phase settles all pending orders of op. Per-order errors are absorbed: the
// order is marked failed and the batch continues.
func (d *Driver) phase(ctx context.Context, op domain.Operation) (PhaseReport, error) {
	var rep PhaseReport
	pending, err := d.Book.Pending(ctx, op)
	if err != nil {
		return rep, fmt.Errorf("select %s orders: %w", op, err)
	}
	mentions, err := d.mentions(ctx, pending)
	if err != nil {
		return rep, err
	}

	for startIdx := 0; startIdx < len(pending); startIdx += NotifyChunkSize {
		end := startIdx + NotifyChunkSize
		if end > len(pending) {
			end = len(pending)
		}
		lines := make([]string, 0, end-startIdx)
		for i := startIdx; i < end; i++ {
			order := &pending[i]
			rep.Processed++
			settled, err := d.Engine.Process(ctx, order)
			if err != nil {
				rep.Errors++
				reason := fmt.Sprintf("Order could not be processed: %v", err)
				log.Error().Err(err).Uint("order_id", order.ID).Msg("Settlement of order failed")
				if merr := d.Engine.MarkFailed(ctx, order.ID, reason); merr != nil {
					log.Error().Err(merr).Uint("order_id", order.ID).Msg("Marking order failed")
				}
				lines = append(lines, fmt.Sprintf("%s: %s", mentions[order.UserID], reason))
				continue
			}
			if settled.Success {
				rep.Succeeded++
			} else {
				rep.Failed++
			}
			lines = append(lines, fmt.Sprintf("%s: %s", mentions[settled.UserID], settled.Result))
		}
		if d.Orders != nil {
			if err := d.Orders.Notify(ctx, strings.Join(lines, "\n")); err != nil {
				log.Warn().Err(err).Msg("Order notification failed")
			}
		}
	}
	return rep, nil
}

func (d *Driver) mentions(ctx context.Context, pending []domain.Order) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string)
	if len(pending) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, 0, len(pending))
	for _, o := range pending {
		ids = append(ids, o.UserID)
	}
	var users []domain.User
	if err := d.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u.Mention()
	}
	return out, nil
}

func (d *Driver) finish(ctx context.Context, run *domain.SettlementRun, status string, report *Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return d.DB.WithContext(ctx).Model(run).Updates(map[string]interface{}{
		"status":      status,
		"report":      datatypes.JSON(body),
		"finished_at": now,
	}).Error
}

func (d *Driver) admin(ctx context.Context, text string) {
	if d.Admin == nil {
		return
	}
	if err := d.Admin.Notify(ctx, text); err != nil {
		log.Warn().Err(err).Msg("Admin notification failed")
	}
}

// Runs lists recent settlement runs, newest first.
func (d *Driver) Runs(ctx context.Context, limit int) ([]domain.SettlementRun, error) {
	var out []domain.SettlementRun
	q := d.DB.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
