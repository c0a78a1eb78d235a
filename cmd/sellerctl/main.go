// Command sellerctl drives a transfer from the terminal: resolve a player,
// price the transfer, confirm and submit it. It can also print history.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/punchamoorthee/sellerdash/internal/config"
	"github.com/punchamoorthee/sellerdash/internal/domain"
	"github.com/punchamoorthee/sellerdash/internal/notify"
	"github.com/punchamoorthee/sellerdash/internal/profile"
	"github.com/punchamoorthee/sellerdash/internal/recipient"
	"github.com/punchamoorthee/sellerdash/internal/seller"
	"github.com/punchamoorthee/sellerdash/internal/transfer"
)

type options struct {
	baseURL string
	token   string
	name    string
	id      string
	pick    int
	product string
	amount  int64
	color   string
	yes     bool
	history string
	page    int
	verbose bool
}

func parseFlags(args []string, cfg *config.Config) (options, error) {
	var o options
	fs := flag.NewFlagSet("sellerctl", flag.ContinueOnError)
	fs.StringVar(&o.baseURL, "url", cfg.BaseURL, "Seller API base URL")
	fs.StringVar(&o.token, "token", os.Getenv("SELLER_TOKEN"), "Seller auth token")
	fs.StringVar(&o.name, "name", "", "Search the recipient by name")
	fs.StringVar(&o.id, "id", "", "Look the recipient up by public id")
	fs.IntVar(&o.pick, "pick", 1, "Which name search result to use (1-based)")
	fs.StringVar(&o.product, "product", "tokens", "Product: tokens | booster")
	fs.Int64Var(&o.amount, "amount", 0, "Tokens or boosters to send")
	fs.StringVar(&o.color, "color", "red", "Booster color: red | blue | black")
	fs.BoolVar(&o.yes, "yes", false, "Submit without asking")
	fs.StringVar(&o.history, "history", "", "Print history instead: tokens | boosters | balance | orders")
	fs.IntVar(&o.page, "page", 1, "History page")
	fs.BoolVar(&o.verbose, "v", false, "Log upstream calls")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.token == "" {
		return o, errors.New("a token is required (-token or SELLER_TOKEN)")
	}
	return o, nil
}

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatal(err)
	}
	opts, err := parseFlags(os.Args[1:], cfg)
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewNop()
	if opts.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			log.Fatalf("Failed to initialize zap logger: %v", err)
		}
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := seller.New(opts.baseURL, opts.token,
		seller.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}),
		seller.WithRetries(cfg.ReadRetries),
		seller.WithLogger(logger),
	)
	if err := run(ctx, client, opts, os.Stdin, os.Stdout, logger); err != nil {
		if errors.Is(err, seller.ErrSession) {
			log.Fatal("the token was rejected, sign in again to get a new one")
		}
		log.Fatal(seller.UserMessage(err))
	}
}

func run(ctx context.Context, client *seller.Client, o options, in io.Reader, out io.Writer, logger *zap.Logger) error {
	if o.history != "" {
		return printHistory(ctx, client, o, out)
	}

	resolver := recipient.New(client, logger)
	notes := notify.New(0, logger)
	deps := transfer.Deps{
		Recipients: resolver,
		Profile:    profile.New(client, logger),
		Notify:     notes,
		Logger:     logger,
	}

	if err := resolve(ctx, resolver, o, out); err != nil {
		return err
	}

	var (
		quote  *domain.ChargeQuote
		submit func() error
		err    error
	)
	switch o.product {
	case string(domain.ProductTokens):
		wf := transfer.NewTokens(client, client, deps)
		if err := wf.SetAmount(o.amount); err != nil {
			return err
		}
		quote, err = wf.Confirm(ctx)
		submit = func() error { _, err := wf.Submit(ctx); return err }
	case string(domain.ProductBooster):
		color, perr := domain.ParseBoosterColor(o.color)
		if perr != nil {
			return domain.Invalid("color", perr.Error())
		}
		wf := transfer.NewBoosters(client, client, deps)
		if err := wf.Update(transfer.SelectColor(color)); err != nil {
			return err
		}
		if err := wf.Update(transfer.SetCount(color, o.amount)); err != nil {
			return err
		}
		quote, err = wf.Confirm(ctx)
		submit = func() error { _, err := wf.Submit(ctx); return err }
	default:
		return domain.Invalid("product", "product must be tokens or booster")
	}
	if err != nil {
		return err
	}

	printQuote(out, resolver.Selected(), quote)
	if !quote.CanCharge {
		return transfer.ErrInsufficientBalance
	}
	if !o.yes && !ask(in, out, "Send this transfer? [y/N] ") {
		fmt.Fprintln(out, "cancelled")
		return nil
	}
	if err := submit(); err != nil {
		return err
	}
	for _, n := range notes.Drain() {
		fmt.Fprintf(out, "[%s] %s\n", n.Level, n.Message)
	}
	return nil
}

func resolve(ctx context.Context, r *recipient.Resolver, o options, out io.Writer) error {
	switch {
	case o.id != "":
		r.SetMode(recipient.ModeID)
		if err := r.EditID(ctx, o.id); err != nil {
			return err
		}
	case o.name != "":
		if err := r.EditName(ctx, o.name); err != nil {
			return err
		}
		s := r.Snapshot()
		for i, p := range s.Candidates {
			fmt.Fprintf(out, "%d) %s (id %s, level %d)\n", i+1, p.Username, p.ID, p.Level)
		}
		if s.Hidden > 0 {
			fmt.Fprintf(out, "... and %d more, refine the name\n", s.Hidden)
		}
		if o.pick < 1 || o.pick > len(s.Candidates) {
			if s.Message != "" {
				return domain.Invalid("recipient", s.Message)
			}
			return domain.Invalid("pick", fmt.Sprintf("pick must be between 1 and %d", len(s.Candidates)))
		}
		if err := r.Select(s.Candidates[o.pick-1].ID); err != nil {
			return err
		}
	default:
		return domain.Invalid("recipient", "pass -name or -id")
	}

	if r.Selected().Empty() {
		msg := r.Snapshot().Message
		if msg == "" {
			msg = "no player selected"
		}
		return domain.Invalid("recipient", msg)
	}
	return nil
}

func printQuote(out io.Writer, to domain.RecipientRef, q *domain.ChargeQuote) {
	fmt.Fprintf(out, "Recipient:     %s (id %s)\n", to.Name, to.ID)
	fmt.Fprintf(out, "Unit price:    %s %s\n", q.UnitPrice, q.Currency)
	fmt.Fprintf(out, "Total:         %s %s\n", q.Subtotal, q.Currency)
	fmt.Fprintf(out, "Wallet:        %s %s\n", q.Wallet.Balance, q.Currency)
	fmt.Fprintf(out, "Will deduct:   %s %s\n", q.WillDeduct, q.Currency)
	fmt.Fprintf(out, "After balance: %s %s\n", q.AfterBalance, q.Currency)
	if !q.CanCharge {
		fmt.Fprintf(out, "Insufficient balance, missing %s %s\n", q.Missing, q.Currency)
	}
}

func ask(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func printHistory(ctx context.Context, client *seller.Client, o options, out io.Writer) error {
	var (
		page any
		err  error
	)
	switch o.history {
	case "tokens":
		page, err = client.TokenTransfers(ctx, domain.TokenTransferFilter{Page: o.page})
	case "boosters":
		page, err = client.Boosters(ctx, domain.BoosterFilter{Page: o.page})
	case "balance":
		page, err = client.BalanceHistory(ctx, o.page)
	case "orders":
		page, err = client.Orders(ctx, domain.OrderFilter{Page: o.page})
	default:
		return domain.Invalid("history", "history must be tokens, boosters, balance or orders")
	}
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(page)
}
