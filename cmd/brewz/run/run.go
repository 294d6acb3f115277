package runcmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"brewz"
	"brewz/cmd/brewz/ui"
	"brewz/config"
	"brewz/internal/clock"
	"brewz/internal/journal"
	"brewz/internal/telemetry"
	"brewz/machine"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const stopWord = "stop"

var errStopRequested = errors.New("stop requested")

type options struct {
	inputPath        string
	instructionDelay time.Duration
	drainTimeout     time.Duration
	journalPath      string
	trace            bool

	lowStock      int
	checkInterval time.Duration
	prepTime      time.Duration
	poll          time.Duration
}

// Cmd returns the "brewz run" command.
func Cmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "run --input-json FILE",
		Short: "Run a machine from an instruction file",
		Long: `Run a machine from an instruction file.

Instructions are applied in file order, one every --instruction-delay. The
machine keeps running until "stop" is entered on stdin or the process is
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := config.Load(opts.inputPath)
			if err != nil {
				return err
			}
			overrideSettings(cmd, &opts, f)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts, f, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.inputPath, "input-json", "", "Instruction file (JSON or YAML)")
	cmd.Flags().DurationVar(&opts.instructionDelay, "instruction-delay", time.Second, "Pause before each instruction")
	cmd.Flags().DurationVar(&opts.drainTimeout, "drain-timeout", 5*time.Second, "How long to wait for in-flight brews after stop (0 to skip)")
	cmd.Flags().StringVar(&opts.journalPath, "journal", journal.Memory, "SQLite brew journal path")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Log a span for every brew step")
	cmd.Flags().IntVar(&opts.lowStock, "low-stock", 0, "Report ingredients below this quantity (overrides settings.ingredient_limit)")
	cmd.Flags().DurationVar(&opts.checkInterval, "check-interval", 0, "Pause between stock checks (overrides settings.low_quantity_check_interval)")
	cmd.Flags().DurationVar(&opts.prepTime, "prep-time", 0, "Prep time of every beverage (overrides settings.prep_time)")
	cmd.Flags().DurationVar(&opts.poll, "poll", 0, "How often brews and stock checks look for a stop (overrides settings.poll_interval)")
	_ = cmd.MarkFlagRequired("input-json")

	return cmd
}

// overrideSettings lets explicit flags win over the file's settings block.
func overrideSettings(cmd *cobra.Command, opts *options, f *config.File) {
	s := &f.Settings
	if cmd.Flags().Changed("low-stock") {
		s.IngredientLimit = &opts.lowStock
	}
	if cmd.Flags().Changed("check-interval") {
		s.LowQuantityCheckInterval = config.Duration(opts.checkInterval)
	}
	if cmd.Flags().Changed("prep-time") {
		s.PrepTime = config.Duration(opts.prepTime)
	}
	if cmd.Flags().Changed("poll") {
		s.PollInterval = config.Duration(opts.poll)
	}
}

func machineOptions(s config.Settings) []machine.Option {
	var opts []machine.Option
	if s.IngredientLimit != nil {
		opts = append(opts, machine.WithLowStockThreshold(*s.IngredientLimit))
	}
	if d := s.LowQuantityCheckInterval.Std(); d > 0 {
		opts = append(opts, machine.WithCheckInterval(d))
	}
	if d := s.PrepTime.Std(); d > 0 {
		opts = append(opts, machine.WithPrepTime(d))
	}
	if d := s.PollInterval.Std(); d > 0 {
		opts = append(opts, machine.WithBrewPoll(d), machine.WithCheckPoll(d))
	}
	return opts
}

func run(ctx context.Context, opts options, f *config.File, stdin io.Reader, stdout io.Writer) error {
	store, err := journal.Open(opts.journalPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var tracer trace.Tracer
	if opts.trace {
		tp := telemetry.NewLogProvider(slog.Default())
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				slog.Warn("Failed to flush traces.", "err", err)
			}
		}()
		tracer = telemetry.Tracer(tp)
	}

	out := &printer{w: stdout}
	mopts := append(machineOptions(f.Settings),
		machine.WithJournal(store),
		machine.WithTracer(tracer),
		machine.WithResultHook(out.result),
	)
	m, err := machine.New(f.Outlets, mopts...)
	if err != nil {
		return err
	}

	m.Start(ctx)
	out.println(ui.InfoMsg("Machine is %s with %d outlets.", m.Phase(), f.Outlets))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return feed(gctx, opts.instructionDelay, f, m, out)
	})
	g.Go(func() error {
		if err := waitForStop(gctx, stdin); err != nil {
			return err
		}
		return errStopRequested
	})
	if err := g.Wait(); err != nil && !errors.Is(err, errStopRequested) && !errors.Is(err, context.Canceled) {
		m.Stop()
		return err
	}

	m.Stop()
	out.println(ui.InfoMsg("Machine is %s.", m.Phase()))
	if opts.drainTimeout > 0 {
		drainCtx, cancel := context.WithTimeout(context.Background(), opts.drainTimeout)
		defer cancel()
		if err := m.Wait(drainCtx); err != nil {
			slog.Warn("Brews still running after stop.", "err", err, "in_flight", m.Status().InFlight)
		}
	}

	return printSummary(context.Background(), out, store, m)
}

// feed applies the instructions in file order, pausing before each.
func feed(ctx context.Context, delay time.Duration, f *config.File, m *machine.Machine, out *printer) error {
	for _, ins := range f.Instructions {
		if !(clock.Real{}).Sleep(ctx, delay) {
			return nil
		}
		out.println(ui.Banner(ins.Key))
		out.println(ui.Muted("Parsed instruction: " + ins.Kind.String()))
		f.ApplyInstruction(m, ins)
	}
	slog.Debug("All instructions applied.", "count", len(f.Instructions))
	return nil
}

// waitForStop returns nil once a line reading "stop" arrives on r, and the
// context error if ctx ends first. End of input leaves the machine running
// until ctx ends.
func waitForStop(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	go func() {
		// Detached: a blocked read on stdin cannot be interrupted.
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			slog.Warn("Failed to read stdin.", "err", err)
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if strings.TrimSpace(line) == stopWord {
				return nil
			}
		}
	}
}

// printer serialises output from brew goroutines.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printer) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.w, s)
}

func (p *printer) result(r brewz.BrewResult) {
	switch r.Outcome {
	case brewz.OutcomeBrewed:
		p.println(ui.SubBanner(fmt.Sprintf("[%s] brewed successfully", r.Beverage), ui.SuccessStyle))
	case brewz.OutcomeSkipped:
		p.println(ui.SubBanner(fmt.Sprintf("Skipping brewing [%s]", r.Beverage), ui.WarnStyle))
		if r.Shortage != nil {
			p.println(ui.WarnMsg("Insufficient ingredient: %s", r.Shortage))
		}
	default:
		p.println(ui.SubBanner(fmt.Sprintf("ERROR: Brewing [%s] failed", r.Beverage), ui.ErrorStyle))
		if r.Err != nil {
			p.println(ui.ErrorMsg("%v", r.Err))
		}
	}
}

func printSummary(ctx context.Context, out *printer, store *journal.Store, m *machine.Machine) error {
	results, err := store.List(ctx)
	if err != nil {
		return err
	}
	counts, err := store.Summary(ctx)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		detail := ""
		switch {
		case r.Shortage != nil:
			detail = r.Shortage.String()
		case r.Err != nil:
			detail = r.Err.Error()
		}
		rows = append(rows, []string{r.Beverage, r.Outcome.String(), r.Duration().Round(time.Millisecond).String(), detail})
	}
	if len(rows) > 0 {
		out.println(ui.Table([]string{"Beverage", "Outcome", "Took", "Detail"}, rows))
	}
	out.println(ui.KeyValues("  ",
		ui.KV("Brewed", strconv.Itoa(counts[brewz.OutcomeBrewed])),
		ui.KV("Skipped", strconv.Itoa(counts[brewz.OutcomeSkipped])),
		ui.KV("Aborted", strconv.Itoa(counts[brewz.OutcomeAborted])),
		ui.KV("Pending", strconv.Itoa(len(m.Status().Pending))),
		ui.KV("Peak outlets", strconv.Itoa(m.PeakOutlets())),
	))

	stock := m.Inventory()
	stockRows := make([][]string, 0, len(stock))
	for _, s := range stock {
		stockRows = append(stockRows, []string{s.Name, strconv.Itoa(s.Quantity)})
	}
	if len(stockRows) > 0 {
		out.println(ui.Table([]string{"Ingredient", "Quantity"}, stockRows))
	}
	return nil
}
