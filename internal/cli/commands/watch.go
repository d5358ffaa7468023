package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chronicler/internal/store"
	"chronicler/pkg/chronometer"
	"chronicler/pkg/config"
	"chronicler/pkg/extract"
	"chronicler/pkg/output"
	"chronicler/pkg/plants"
	"chronicler/pkg/session"
)

// WatchOptions holds command-line options for the watch command.
type WatchOptions struct {
	Config    string
	Avatar    string
	Rules     string
	Interval  time.Duration
	Summary   string
	FromStart bool
	Reminders bool
	Verbose   bool
	Quiet     bool
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live chat log and print events",
		Long: `Follow the avatar's newest chat log, printing stat events as the
game writes them. The log is polled on an interval, woken early by
file system notifications, and follows the game's rollover to the
next daily file at midnight.

A scheduler prints a one-line combat summary periodically and
announces lunar rift openings and plant watering times. Stop with
Ctrl-C; the full summary is printed on exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "Config file (default $XDG_CONFIG_HOME/chronicler/config.yaml)")
	cmd.Flags().StringVarP(&opts.Avatar, "avatar", "a", "", "Avatar name (default from config or store)")
	cmd.Flags().StringVar(&opts.Rules, "rules", "", "Extraction rules file (default from config)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "Poll interval (default from config)")
	cmd.Flags().StringVar(&opts.Summary, "summary-every", "@every 5m", "Cron schedule for the periodic summary")
	cmd.Flags().BoolVar(&opts.FromStart, "from-start", false, "Ingest the whole log before following")
	cmd.Flags().BoolVar(&opts.Reminders, "reminders", true, "Announce rift openings and plant timers")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Debug logging")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summaries and reminders only, no per-event lines")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg.LogLevel, opts.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	avatar, err := resolveAvatar(ctx, opts.Avatar, cfg)
	if err != nil {
		return err
	}
	rules, err := config.LoadRules(rulesPath(opts.Rules, cfg))
	if err != nil {
		return err
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = cfg.PollInterval
	}

	sessOpts := []session.Option{
		session.WithLogger(logger.Named("session")),
		session.WithRules(rules),
	}
	if opts.FromStart {
		sessOpts = append(sessOpts, session.WithFromStart())
	}
	sess, err := session.Open(cfg.LogDir, avatar, sessOpts...)
	if err != nil {
		return err
	}
	defer sess.Close()

	w := &watcher{
		sess:   sess,
		out:    cmd.OutOrStdout(),
		logger: logger.Named("watch"),
		avatar: avatar,
		quiet:  opts.Quiet,
	}

	if opts.Reminders {
		if st, err := store.Open(cfg.StorePath, logger.Named("store")); err == nil {
			w.plants, err = st.Plants(ctx)
			if err != nil {
				logger.Warn("loading plant timers", zap.Error(err))
			}
			st.Close()
		} else {
			logger.Warn("opening store, plant reminders disabled", zap.Error(err))
		}
		w.prime(time.Now())
	}

	sched := cron.New()
	if _, err := sched.AddFunc(opts.Summary, w.printPeriodicSummary); err != nil {
		return fmt.Errorf("invalid --summary-every schedule %q: %w", opts.Summary, err)
	}
	if opts.Reminders {
		if _, err := sched.AddFunc("@every 1m", w.remind); err != nil {
			return err
		}
	}
	sched.Start()
	defer sched.Stop()

	fmt.Fprintf(w.out, "Watching %s (Ctrl-C to stop)\n", sess.Source().Path)

	for {
		if _, err := sess.Poll(ctx); err != nil {
			var ingest *session.IngestionError
			switch {
			case errors.As(err, &ingest):
				logger.Warn("poll failed, retrying", zap.Error(err))
			case ctx.Err() != nil || errors.Is(err, session.ErrClosed):
			default:
				return err
			}
		}
		w.printNewEvents()
		if err := sess.Wait(ctx, interval); err != nil {
			break
		}
	}

	fmt.Fprintln(w.out)
	w.printFinalSummary()
	return nil
}

// watcher is the live-follow state shared between the poll loop and
// the scheduler goroutine.
type watcher struct {
	sess   *session.Log
	out    io.Writer
	logger *zap.Logger
	avatar string
	quiet  bool

	mu       sync.Mutex
	seen     int
	plants   []plants.Plant
	riftOpen map[string]bool
	valeOpen bool
}

// prime records the current rift and vale state so only transitions
// get announced.
func (w *watcher) prime(now time.Time) {
	w.riftOpen = make(map[string]bool)
	for _, r := range chronometer.Rifts(now) {
		w.riftOpen[r.Name] = r.Open
	}
	w.valeOpen = chronometer.LostVale(now).Open
}

// printNewEvents prints the events added to the tally since the last
// call.
func (w *watcher) printNewEvents() {
	events := w.sess.Tally().Events()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seen > len(events) {
		w.seen = 0
	}
	if !w.quiet {
		for _, ev := range events[w.seen:] {
			fmt.Fprintln(w.out, formatEvent(ev))
		}
	}
	w.seen = len(events)
}

func (w *watcher) printPeriodicSummary() {
	summary := w.sess.Tally().Summary()
	if summary.Events == 0 {
		return
	}
	report := output.NewSummaryReport(summary, reportMeta(w.avatar, w.sess.Source().Path))
	formatter := output.NewTextFormatter(output.FormatOptions{Quiet: true})

	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "-- %s  ", time.Now().Format("15:04:05"))
	if err := formatter.Format(context.Background(), report, w.out); err != nil {
		w.logger.Warn("printing summary", zap.Error(err))
	}
}

func (w *watcher) printFinalSummary() {
	summary := w.sess.Tally().Summary()
	report := output.NewSummaryReport(summary, reportMeta(w.avatar, w.sess.Source().Path))
	formatter := output.NewTextFormatter(output.FormatOptions{})

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := formatter.Format(context.Background(), report, w.out); err != nil {
		w.logger.Warn("printing summary", zap.Error(err))
	}
}

// remind announces rift and vale openings and due plant stages. Runs
// on the scheduler goroutine.
func (w *watcher) remind() {
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, r := range chronometer.Rifts(now) {
		if r.Open && !w.riftOpen[r.Name] {
			fmt.Fprintf(w.out, "** Lunar rift at %s is open, closes in %s\n",
				r.Name, chronometer.FormatCountdown(r.Remaining))
		}
		w.riftOpen[r.Name] = r.Open
	}

	if vale := chronometer.LostVale(now); vale.Open != w.valeOpen {
		if vale.Open {
			fmt.Fprintf(w.out, "** The Lost Vale is open, closes in %s\n",
				chronometer.FormatCountdown(vale.Remaining))
		}
		w.valeOpen = vale.Open
	}

	for i := range w.plants {
		p := &w.plants[i]
		stage, ok := p.Check(now)
		if !ok {
			continue
		}
		if stage == plants.Harvest {
			fmt.Fprintf(w.out, "** Plant %d (%s) is ready to harvest\n", p.ID, p.Description)
		} else {
			fmt.Fprintf(w.out, "** Plant %d (%s) needs water\n", p.ID, p.Description)
		}
	}
}

// formatEvent renders one stat event as a live line.
func formatEvent(ev extract.Event) string {
	ts := "--:--:--"
	if ev.Timestamp != nil {
		ts = ev.Timestamp.Format("15:04:05")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %-13s", ts, ev.Kind)
	switch ev.Kind {
	case extract.KindDamageDealt:
		fmt.Fprintf(&b, " %g to %s", ev.Amount, ev.Target)
	case extract.KindDamageTaken:
		fmt.Fprintf(&b, " %g from %s", ev.Amount, ev.Actor)
	case extract.KindResistCheck:
		fmt.Fprintf(&b, " %g%%", ev.Amount)
	case extract.KindDeath:
	default:
		fmt.Fprintf(&b, " %g", ev.Amount)
	}
	if ev.Element != "" {
		fmt.Fprintf(&b, " (%s)", ev.Element)
	}
	return b.String()
}
