package cmd

import (
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/brokersim/broker"
	"github.com/rustyeddy/brokersim/config"
	"github.com/rustyeddy/brokersim/internal/id"
	"github.com/rustyeddy/brokersim/journal"
	"github.com/rustyeddy/brokersim/market"
	"github.com/rustyeddy/brokersim/portfolio"
	"github.com/rustyeddy/brokersim/sim"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scripted execution demo from a config file",
	Long: `Submit a batch of demo orders through the simulated venue and print every
execution report as it arrives, followed by the resulting account summary.

Example:
  brokersim run -f examples/config.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON; defaults apply when omitted)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if runConfigPath != "" {
		var err error
		cfg, err = config.LoadFromFile(runConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	j, err := newJournal(cfg)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	prices := market.NewPriceStore()
	now := time.Now()
	for sym, px := range cfg.Prices {
		prices.Set(sym, px, now)
	}

	book := portfolio.NewBook(cfg.Account.Balance)

	var terminals atomic.Int64
	onExec := func(r broker.ExecReport) {
		slog.Info("exec",
			"order", r.OrderID, "symbol", r.Symbol, "status", r.Status,
			"fill_qty", r.FillQty, "cum_qty", r.CumQty, "avg_px", r.AvgPx)
		if err := j.RecordExec(r); err != nil {
			slog.Error("journal write failed", "err", err)
		}
		if err := book.ApplyExec(r); err != nil {
			slog.Error("book update failed", "err", err)
		}
		if r.Status.Terminal() {
			terminals.Add(1)
		}
	}

	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	engine := sim.NewEngine(opts, prices.PriceFn(), onExec)
	defer engine.Close()

	if cfg.Venue.MarketHours {
		cal, err := cfg.BuildCalendar()
		if err != nil {
			return err
		}
		engine.SetMarketClock(cal)
	}

	gw := broker.NewDedup(engine)

	symbols := prices.Symbols()
	sort.Strings(symbols)
	if len(symbols) == 0 {
		return fmt.Errorf("config has no prices to trade against")
	}

	submitted := 0
	submit := func(o broker.Order) {
		o.ID = id.New()
		o.SubmittedAt = time.Now()
		book.Track(o)
		if err := gw.Submit(o); err != nil {
			slog.Error("submit failed", "order", o.ID, "err", err)
			return
		}
		submitted++
	}

	// One buy per symbol, a partial exit on the first, and a submit that is
	// cancelled immediately so the cancel path shows up in the journal too.
	for _, sym := range symbols {
		submit(broker.Order{Symbol: sym, Side: broker.Buy, Qty: 100})
	}
	submit(broker.Order{Symbol: symbols[0], Side: broker.Sell, Qty: 40})

	victim := broker.Order{ID: id.New(), Symbol: symbols[0], Side: broker.Buy, Qty: 500, SubmittedAt: time.Now()}
	book.Track(victim)
	if err := gw.Submit(victim); err == nil {
		submitted++
		gw.Cancel(victim.ID)
	}

	deadline := time.Now().Add(10 * time.Second)
	for terminals.Load() < int64(submitted) {
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out with %d of %d orders unfinished",
				int64(submitted)-terminals.Load(), submitted)
		}
		time.Sleep(10 * time.Millisecond)
	}

	acct := book.Account()
	fmt.Println()
	fmt.Printf("Account %s\n", cfg.Account.ID)
	fmt.Printf("  Cash:     %s\n", acct.Cash.StringFixed(2))
	fmt.Printf("  Equity:   %s\n", acct.Equity.StringFixed(2))
	fmt.Printf("  Realized: %s\n", acct.Realized.StringFixed(2))
	for _, p := range book.Positions() {
		fmt.Printf("  %-6s qty=%s avg=%s\n", p.Symbol, p.Qty.String(), p.AvgPrice.StringFixed(4))
	}
	return nil
}

func newJournal(cfg *config.Config) (journal.Journal, error) {
	if cfg.Journal.Type == "sqlite" {
		return journal.NewSQLite(cfg.Journal.DBPath)
	}
	return journal.NewCSV(cfg.Journal.ExecFile)
}
