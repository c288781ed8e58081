package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-dashboard/internal/config"
	"github.com/trogers1052/portfolio-dashboard/internal/database"
	"github.com/trogers1052/portfolio-dashboard/internal/logging"
	"github.com/trogers1052/portfolio-dashboard/internal/models"
	"github.com/trogers1052/portfolio-dashboard/internal/redis"
	"github.com/trogers1052/portfolio-dashboard/internal/render"
	"github.com/trogers1052/portfolio-dashboard/internal/trading"
)

// setup loads configuration and a console logger for one-shot commands
func setup() (*config.Config, io.Closer, error) {
	cfg := config.Load()
	cfg.Log.Pretty = true
	closer, err := logging.Init("portfolio-dashboard", cfg.Log)
	return cfg, closer, err
}

type priceCmd struct {
	cached bool
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "look up the current market price of a symbol" }
func (*priceCmd) Usage() string {
	return `dashboard price [-cached] <symbol>

  -cached answers from the Redis price cache when it holds the symbol.
`
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.cached, "cached", false, "Try the Redis price cache before the backend.")
}

func (c *priceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, closer, err := setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closer.Close()

	symbol := strings.Join(f.Args(), "")
	if c.cached && symbol != "" {
		if price, ok := cachedPrice(ctx, cfg, symbol); ok {
			fmt.Printf("%s %s (cached)\n", strings.ToUpper(symbol), render.CurrentPrice(price))
			return subcommands.ExitSuccess
		}
	}

	quote, err := newBackendClient(cfg, nil, nil).FetchCurrentPrice(ctx, symbol)
	if err != nil {
		fmt.Fprintln(os.Stderr, render.LookupFailure(strings.ToUpper(symbol), err))
		return subcommands.ExitFailure
	}
	fmt.Printf("%s %s\n", quote.Symbol, render.CurrentPrice(quote.CurrentPrice))
	return subcommands.ExitSuccess
}

func cachedPrice(ctx context.Context, cfg *config.Config, symbol string) (decimal.Decimal, bool) {
	rc, err := redis.New(cfg.Redis)
	if err != nil {
		log.Debug().Err(err).Msg("Price cache unavailable")
		return decimal.Zero, false
	}
	defer rc.Close()

	price, err := rc.GetStockPrice(ctx, symbol)
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read price cache")
		}
		return decimal.Zero, false
	}
	return price, true
}

type buyCmd struct {
	quantity string
	price    string
	market   bool
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "buy shares of a symbol" }
func (*buyCmd) Usage() string {
	return `dashboard buy -q <quantity> [-price <price> | -market] <symbol>

  Without -price the backend fills at its own market price. -market looks
  up the current price first and submits it as the purchase price.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.quantity, "q", "", "Number of shares to buy.")
	f.StringVar(&c.price, "price", "", "Purchase price per share.")
	f.BoolVar(&c.market, "market", false, "Use the looked-up current price as the purchase price.")
}

func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	qty, err := decimal.NewFromString(c.quantity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid quantity %q\n", c.quantity)
		return subcommands.ExitUsageError
	}

	cfg, closer, err := setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closer.Close()

	backend := newBackendClient(cfg, nil, nil)
	req := models.BuyRequest{Symbol: strings.ToUpper(strings.TrimSpace(f.Arg(0))), Quantity: qty}

	switch {
	case c.price != "":
		p, err := decimal.NewFromString(c.price)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid price %q\n", c.price)
			return subcommands.ExitUsageError
		}
		req.PurchasePrice = &p
	case c.market:
		quote, err := backend.FetchCurrentPrice(ctx, req.Symbol)
		if err != nil {
			fmt.Fprintln(os.Stderr, render.LookupFailure(req.Symbol, err))
			return subcommands.ExitFailure
		}
		fmt.Println(render.CurrentPrice(quote.CurrentPrice))
		p := quote.CurrentPrice
		req.PurchasePrice = &p
	}

	if err := backend.BuyStock(ctx, req); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Bought %s shares of %s\n", render.Shares(qty), req.Symbol)
	return subcommands.ExitSuccess
}

type sellCmd struct {
	quantity string
	all      bool
	delete   bool
	yes      bool
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "sell shares of an owned stock" }
func (*sellCmd) Usage() string {
	return `dashboard sell (-q <quantity> | -all | -delete [-y]) <owned-stock-id>

  -delete sells every share and removes the stock from the portfolio. It
  asks for confirmation unless -y is given.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.quantity, "q", "", "Number of shares to sell.")
	f.BoolVar(&c.all, "all", false, "Sell every owned share.")
	f.BoolVar(&c.delete, "delete", false, "Liquidate and remove the holding.")
	f.BoolVar(&c.yes, "y", false, "Do not ask for confirmation with -delete.")
}

func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 || (c.quantity == "" && !c.all && !c.delete) {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}

	cfg, closer, err := setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closer.Close()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	holding, err := db.GetHoldingByID(ctx, cfg.Dashboard.Username, f.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	draft, err := trading.DraftFor(*holding)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	backend := newBackendClient(cfg, nil, nil)

	if c.delete {
		var confirm trading.Confirmer = stdinConfirmer{in: os.Stdin, out: os.Stdout}
		if c.yes {
			confirm = trading.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
		}
		done, err := trading.ConfirmDelete(ctx, draft, confirm, backend)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		if !done {
			fmt.Println("Deletion cancelled")
			return subcommands.ExitSuccess
		}
		fmt.Printf("Sold all %s shares of %s\n", draft.MaxSharesDisplay, draft.Symbol)
		return subcommands.ExitSuccess
	}

	if c.all {
		err = draft.SellAll()
	} else {
		err = draft.SetQuantity(c.quantity)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := draft.Submit(ctx, backend); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Sold %s shares of %s\n", draft.Quantity.String(), draft.Symbol)
	return subcommands.ExitSuccess
}

// stdinConfirmer asks a yes/no question on the terminal
type stdinConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (s stdinConfirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	fmt.Fprintf(s.out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(s.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
