package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/api/option"

	"caixa/internal/amqp"
	"caixa/internal/config"
	"caixa/internal/core"
	"caixa/internal/identity"
	"caixa/internal/notify"
	"caixa/internal/receipts"
	"caixa/internal/services"
	"caixa/internal/storage"
)

const usage = `caixa - ledger, DAS obligations, sales and due-date alerts

Usage:
  caixa add  -kind income|expense -date YYYY-MM-DD -amount N -desc TEXT [-category C] [-method M]
  caixa list
  caixa rm   -id N
  caixa summary [-period month|year]

  caixa tax list
  caixa tax add    -period YYYY-MM -amount N
  caixa tax ensure [-amount N]
  caixa tax pay    -id N [-date YYYY-MM-DD]
  caixa tax unpay  -id N
  caixa tax receipt -id N -file PATH

  caixa sale add  -date YYYY-MM-DD -amount N -desc TEXT [-method M]
  caixa sale list
  caixa sale rm   -id N

  caixa alerts [refresh|read -id ID|read-all]
`

type app struct {
	repo    *storage.SQLiteRepository
	events  *amqp.Client
	ledger  *services.LedgerService
	taxes   *services.ObligationService
	sales   *services.SaleService
	summary *services.SummaryService
	alerts  *notify.Generator
}

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()

	a, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer a.close()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// AMQP is optional; without a URL writes are purely local.
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("connect to broker: %w", err)
		}
	}

	var uploader receipts.Uploader
	if cfg.DriveFolderID != "" {
		var opts []option.ClientOption
		if cfg.DriveCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.DriveCredentialsFile))
		} else if cfg.DriveCredentialsJSON != "" {
			opts = append(opts, option.WithCredentialsJSON([]byte(cfg.DriveCredentialsJSON)))
		}
		store, err := receipts.NewDriveStore(ctx, cfg.DriveFolderID, opts...)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("init receipt storage: %w", err)
		}
		uploader = store
	}

	provider := identity.NewStatic(cfg.OwnerID)
	cache := notify.NewCache(cfg.NotifyCachePath)

	return &app{
		repo:    repo,
		events:  events,
		ledger:  services.NewLedgerService(repo, repo, repo, provider, events),
		taxes:   services.NewObligationService(repo, repo, uploader, provider, events),
		sales:   services.NewSaleService(repo, repo, uploader, provider, events),
		summary: services.NewSummaryService(repo, provider),
		alerts:  notify.NewGenerator(repo, cache, provider),
	}, nil
}

func (a *app) close() {
	if a.events != nil {
		a.events.Close()
	}
	a.repo.Close()
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "add":
		return a.addEntry(ctx, args)
	case "list":
		return a.listEntries(ctx)
	case "rm":
		return a.removeEntry(ctx, args)
	case "summary":
		return a.printSummary(ctx, args)
	case "tax":
		return a.runTax(ctx, args)
	case "sale":
		return a.runSale(ctx, args)
	case "alerts":
		return a.runAlerts(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

func (a *app) addEntry(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	kind := fs.String("kind", "", "income or expense")
	date := fs.String("date", "", "entry date (YYYY-MM-DD)")
	amount := fs.String("amount", "", "entry amount")
	desc := fs.String("desc", "", "description")
	category := fs.String("category", "", "category")
	method := fs.String("method", "", "payment method")
	fs.Parse(args)

	d, err := parseDate(*date)
	if err != nil {
		return err
	}
	m, err := core.MoneyFromString(*amount)
	if err != nil {
		return err
	}

	entry, err := a.ledger.Create(ctx, core.LedgerEntry{
		Kind:          core.EntryKind(*kind),
		Date:          d,
		Amount:        m,
		Description:   *desc,
		Category:      *category,
		PaymentMethod: *method,
	})
	if err != nil {
		return err
	}

	fmt.Printf("created entry %d: %s %s %s\n",
		entry.ID, entry.Kind, entry.Amount, entry.Description)
	return nil
}

func (a *app) listEntries(ctx context.Context) error {
	entries, err := a.ledger.List(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tKIND\tAMOUNT\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			e.ID, e.Date.Format(core.DisplayFormat), e.Kind, e.Amount, e.Description)
	}
	return w.Flush()
}

func (a *app) removeEntry(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	id := fs.Int64("id", 0, "entry id")
	fs.Parse(args)

	if err := a.ledger.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("deleted entry %d\n", *id)
	return nil
}

func (a *app) printSummary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	period := fs.String("period", "month", "month or year")
	fs.Parse(args)

	s := a.summary.Summarize(ctx, services.SummaryPeriod(*period))
	fmt.Printf("entries: %d\nincome:  R$ %s\nexpense: R$ %s\nbalance: R$ %s\n",
		len(s.Entries), s.Income, s.Expense, s.Balance)
	return nil
}

func (a *app) runTax(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "list":
		obligations, err := a.taxes.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPERIOD\tDUE\tAMOUNT\tSTATUS\tPAID ON")
		for _, o := range obligations {
			paidOn := "-"
			if !o.PaymentDate.IsEmpty() {
				paidOn = o.PaymentDate.Format(core.DisplayFormat)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				o.ID, o.Period, o.DueDate.Format(core.DisplayFormat), o.Amount, o.Status, paidOn)
		}
		return w.Flush()

	case "add":
		fs := flag.NewFlagSet("tax add", flag.ExitOnError)
		period := fs.String("period", "", "competence period (YYYY-MM)")
		amount := fs.String("amount", "", "obligation amount")
		fs.Parse(rest)

		m, err := core.MoneyFromString(*amount)
		if err != nil {
			return err
		}
		o, err := a.taxes.Create(ctx, *period, m)
		if err != nil {
			return err
		}
		fmt.Printf("created obligation %d for %s, due %s\n",
			o.ID, o.Period, o.DueDate.Format(core.DisplayFormat))
		return nil

	case "ensure":
		fs := flag.NewFlagSet("tax ensure", flag.ExitOnError)
		amount := fs.String("amount", "0", "default amount for a fresh ledger")
		fs.Parse(rest)

		m, err := core.MoneyFromString(*amount)
		if err != nil {
			return err
		}
		created, o, err := a.taxes.EnsureCurrentPeriod(ctx, m)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("created obligation %d for %s, due %s\n",
				o.ID, o.Period, o.DueDate.Format(core.DisplayFormat))
		} else {
			fmt.Printf("obligation for %s already exists (id %d)\n", o.Period, o.ID)
		}
		return nil

	case "pay":
		fs := flag.NewFlagSet("tax pay", flag.ExitOnError)
		id := fs.Int64("id", 0, "obligation id")
		date := fs.String("date", "", "payment date (YYYY-MM-DD), defaults to today")
		fs.Parse(rest)

		paymentDate := core.DateOf(time.Now())
		if *date != "" {
			d, err := parseDate(*date)
			if err != nil {
				return err
			}
			paymentDate = d
		}
		o, err := a.taxes.MarkPaid(ctx, *id, paymentDate)
		if err != nil {
			return err
		}
		fmt.Printf("obligation %d (%s) marked paid, entry %d\n", o.ID, o.Period, o.EntryID)
		return nil

	case "unpay":
		fs := flag.NewFlagSet("tax unpay", flag.ExitOnError)
		id := fs.Int64("id", 0, "obligation id")
		fs.Parse(rest)

		o, err := a.taxes.MarkPending(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Printf("obligation %d (%s) reverted to pending\n", o.ID, o.Period)
		return nil

	case "receipt":
		fs := flag.NewFlagSet("tax receipt", flag.ExitOnError)
		id := fs.Int64("id", 0, "obligation id")
		file := fs.String("file", "", "receipt file to upload")
		fs.Parse(rest)

		f, err := os.Open(*file)
		if err != nil {
			return fmt.Errorf("open receipt: %w", err)
		}
		defer f.Close()

		o, err := a.taxes.AttachReceipt(ctx, *id, f.Name(), f)
		if err != nil {
			return err
		}
		fmt.Printf("receipt stored: %s\n", o.ReceiptURL)
		return nil

	default:
		return fmt.Errorf("unknown tax command %q", sub)
	}
}

func (a *app) runSale(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "list":
		sales, err := a.sales.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDATE\tAMOUNT\tDESCRIPTION\tENTRY")
		for _, s := range sales {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n",
				s.ID, s.Date.Format(core.DisplayFormat), s.Amount, s.Description, s.EntryID)
		}
		return w.Flush()

	case "add":
		fs := flag.NewFlagSet("sale add", flag.ExitOnError)
		date := fs.String("date", "", "sale date (YYYY-MM-DD)")
		amount := fs.String("amount", "", "sale amount")
		desc := fs.String("desc", "", "description")
		method := fs.String("method", "", "payment method")
		fs.Parse(rest)

		d, err := parseDate(*date)
		if err != nil {
			return err
		}
		m, err := core.MoneyFromString(*amount)
		if err != nil {
			return err
		}
		sale, err := a.sales.Create(ctx, core.SaleRecord{
			Date:          d,
			Amount:        m,
			Description:   *desc,
			PaymentMethod: *method,
		})
		if err != nil {
			return err
		}
		fmt.Printf("created sale %d, entry %d\n", sale.ID, sale.EntryID)
		return nil

	case "rm":
		fs := flag.NewFlagSet("sale rm", flag.ExitOnError)
		id := fs.Int64("id", 0, "sale id")
		fs.Parse(rest)

		if err := a.sales.Delete(ctx, *id); err != nil {
			return err
		}
		fmt.Printf("deleted sale %d\n", *id)
		return nil

	default:
		return fmt.Errorf("unknown sale command %q", sub)
	}
}

func (a *app) runAlerts(ctx context.Context, args []string) error {
	sub := "show"
	var rest []string
	if len(args) > 0 {
		sub, rest = args[0], args[1:]
	}

	switch sub {
	case "show":
		if _, err := a.alerts.Refresh(ctx); err != nil {
			return err
		}
		feed, err := a.alerts.Feed(ctx)
		if err != nil {
			return err
		}
		for _, n := range feed {
			marker := " "
			if !n.Read {
				marker = "*"
			}
			fmt.Printf("%s [%s] %s\n    %s, id %s\n", marker, n.Priority, n.Message,
				n.CreatedAt.Format("02/01/2006 15:04"), n.ID)
		}
		unread, err := a.alerts.UnreadCount(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("\n%d unread\n", unread)
		return nil

	case "refresh":
		added, err := a.alerts.Refresh(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d new notification(s)\n", added)
		return nil

	case "read":
		fs := flag.NewFlagSet("alerts read", flag.ExitOnError)
		id := fs.String("id", "", "notification id")
		fs.Parse(rest)

		if err := a.alerts.MarkRead(ctx, *id); err != nil {
			return err
		}
		fmt.Println("marked read")
		return nil

	case "read-all":
		if err := a.alerts.MarkAllRead(ctx); err != nil {
			return err
		}
		fmt.Println("all notifications marked read")
		return nil

	default:
		return fmt.Errorf("unknown alerts command %q", sub)
	}
}

func parseDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, fmt.Errorf("date is required (YYYY-MM-DD)")
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return core.DateOf(t), nil
}
