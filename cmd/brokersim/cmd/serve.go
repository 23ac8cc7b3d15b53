package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/brokersim/broker"
	"github.com/rustyeddy/brokersim/config"
	"github.com/rustyeddy/brokersim/internal/id"
	"github.com/rustyeddy/brokersim/journal"
	"github.com/rustyeddy/brokersim/market"
	"github.com/rustyeddy/brokersim/portfolio"
	"github.com/rustyeddy/brokersim/sim"
	"github.com/rustyeddy/brokersim/stream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the broker simulator as an HTTP service",
	Long: `Expose the simulated venue over HTTP.

Endpoints:
  POST   /orders          submit an order
  DELETE /orders/:id      request a cancel
  GET    /orders/:id      journaled reports for an order (sqlite journal only)
  GET    /account         paper account summary
  GET    /positions       open positions
  POST   /prices          update a symbol's last price
  GET    /ws              websocket execution stream
  GET    /healthz         liveness probe

Example:
  brokersim serve -f examples/config.yaml`,
	RunE: runServe,
}

var serveConfigPath string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "f", "", "path to config file (YAML or JSON; defaults apply when omitted)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if serveConfigPath != "" {
		var err error
		cfg, err = config.LoadFromFile(serveConfigPath)
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
	hub := stream.NewHub()
	defer hub.Close()

	onExec := func(r broker.ExecReport) {
		if err := j.RecordExec(r); err != nil {
			slog.Error("journal write failed", "err", err)
		}
		if err := book.ApplyExec(r); err != nil {
			slog.Warn("book update skipped", "order", r.OrderID, "err", err)
		}
		hub.Broadcast(r)
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

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(gw, book, prices, hub, j)

	srv := &http.Server{Addr: cfg.Stream.Addr, Handler: router}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.Stream.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type submitRequest struct {
	ID     string   `json:"id"`
	Symbol string   `json:"symbol" binding:"required"`
	Side   string   `json:"side" binding:"required"`
	Qty    float64  `json:"qty" binding:"required"`
	Limit  *float64 `json:"limit"`
}

type priceRequest struct {
	Symbol string  `json:"symbol" binding:"required"`
	Price  float64 `json:"price" binding:"required"`
}

func newRouter(gw broker.Gateway, book *portfolio.Book, prices *market.PriceStore, hub *stream.Hub, j journal.Journal) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/orders", func(c *gin.Context) {
		var req submitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var side broker.Side
		switch strings.ToUpper(req.Side) {
		case string(broker.Buy):
			side = broker.Buy
		case string(broker.Sell):
			side = broker.Sell
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("side must be BUY or SELL, got %q", req.Side)})
			return
		}

		o := broker.Order{
			ID:          req.ID,
			Symbol:      req.Symbol,
			Side:        side,
			Qty:         req.Qty,
			Limit:       req.Limit,
			SubmittedAt: time.Now(),
		}
		if o.ID == "" {
			o.ID = id.New()
		}

		// Track first so reports delivered before Submit returns still land.
		book.Track(o)
		if err := gw.Submit(o); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, o)
	})

	router.DELETE("/orders/:id", func(c *gin.Context) {
		gw.Cancel(c.Param("id"))
		c.JSON(http.StatusAccepted, gin.H{"order_id": c.Param("id"), "cancel": "requested"})
	})

	if lister, ok := j.(*journal.SQLite); ok {
		router.GET("/orders/:id", func(c *gin.Context) {
			reports, err := lister.ListByOrder(c.Param("id"))
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if len(reports) == 0 {
				c.JSON(http.StatusNotFound, gin.H{"error": "no reports for order"})
				return
			}
			c.JSON(http.StatusOK, reports)
		})
	}

	router.GET("/account", func(c *gin.Context) {
		c.JSON(http.StatusOK, book.Account())
	})

	router.GET("/positions", func(c *gin.Context) {
		c.JSON(http.StatusOK, book.Positions())
	})

	router.POST("/prices", func(c *gin.Context) {
		var req priceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Price <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price must be positive"})
			return
		}
		prices.Set(req.Symbol, req.Price, time.Now())
		book.MarkPrice(req.Symbol, req.Price)
		c.Status(http.StatusNoContent)
	})

	router.GET("/ws", gin.WrapH(hub))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "subscribers": hub.Count()})
	})

	return router
}
