// Command market runs the scheduled market jobs: opening and closing the
// market, importing the stock feed, settling orders and awarding points.
//
//	market [flags] open|close|status|update|process|snapshot|award|week N
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ttrnecka/rebbl-stock-market/internal/app"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/settlement"
	"github.com/ttrnecka/rebbl-stock-market/internal/application/stocks"
	"github.com/ttrnecka/rebbl-stock-market/internal/config"
	"github.com/ttrnecka/rebbl-stock-market/internal/logging"

	"github.com/rs/zerolog/log"
)

var errUsage = errors.New("usage: market [-source feed] [-week n] [-skip-snapshot] open|close|status|update|process|snapshot|award|week N")

type options struct {
	source       string
	week         int
	skipSnapshot bool
}

func main() {
	var opts options
	flag.StringVar(&opts.source, "source", "", "stock feed path or URL (defaults to STOCK_FEED)")
	flag.IntVar(&opts.week, "week", -1, "week for snapshot and award (defaults to the current week)")
	flag.BoolVar(&opts.skipSnapshot, "skip-snapshot", false, "do not snapshot balances after processing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}
	logging.Setup(cfg.LogLevel, cfg.IsProduction())

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Startup failed")
	}
	defer a.Close()

	if err := run(context.Background(), a, opts, flag.Args(), os.Stdout); err != nil {
		log.Error().Err(err).Msg("Command failed")
		a.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, opts options, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	if opts.source == "" {
		opts.source = a.Config.StockFeed
	}

	switch args[0] {
	case "open":
		if err := a.Gate.Open(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Market opened")
	case "close":
		if err := a.Gate.Close(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Market closed")
	case "status":
		open, err := a.Gate.IsOpen(ctx)
		if err != nil {
			return err
		}
		week, err := a.Gate.Week(ctx)
		if err != nil {
			return err
		}
		state := "closed"
		if open {
			state = "open"
		}
		fmt.Fprintf(out, "Market is %s, week %d, season %s\n", state, week, a.Config.Season)
	case "update":
		rows, err := stocks.LoadFeed(ctx, opts.source)
		if err != nil {
			return err
		}
		res, err := a.Stocks.Update(ctx, rows)
		if err != nil {
			return err
		}
		if err := a.Leaderboard.Invalidate(ctx); err != nil {
			return err
		}
		fmt.Fprintf(out, "Stocks updated: %d created, %d changed, %d unchanged\n", res.Created, res.Changed, res.Unchanged)
	case "process":
		report, err := a.Driver.Run(ctx, settlement.RunOptions{FeedSource: opts.source, SkipSnapshot: opts.skipSnapshot})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Settled week %d: %d sells (%d ok), %d buys (%d ok), %d snapshots in %s\n",
			report.Week, report.Sells.Processed, report.Sells.Succeeded,
			report.Buys.Processed, report.Buys.Succeeded, report.Snapshots, report.Duration)
	case "snapshot":
		week, err := weekOf(ctx, a, opts)
		if err != nil {
			return err
		}
		n, err := a.Ledger.Snapshot(ctx, week)
		if err != nil {
			return err
		}
		if err := a.Leaderboard.Invalidate(ctx); err != nil {
			return err
		}
		fmt.Fprintf(out, "Snapshot of week %d: %d accounts\n", week, n)
	case "award":
		week, err := weekOf(ctx, a, opts)
		if err != nil {
			return err
		}
		n, err := a.Leaderboard.AwardWeek(ctx, week)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Week %d points awarded to %d coaches\n", week, n)
	case "week":
		if len(args) != 2 {
			return errUsage
		}
		week, err := strconv.Atoi(args[1])
		if err != nil || week < 0 {
			return errUsage
		}
		if err := a.Gate.SetWeek(ctx, week); err != nil {
			return err
		}
		fmt.Fprintf(out, "Week set to %d\n", week)
	default:
		return errUsage
	}
	return nil
}

func weekOf(ctx context.Context, a *app.App, opts options) (int, error) {
	if opts.week >= 0 {
		return opts.week, nil
	}
	return a.Gate.Week(ctx)
}
