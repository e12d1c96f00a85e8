package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/username/custody-schedule/internal/api"
	"github.com/username/custody-schedule/internal/custody"
	"github.com/username/custody-schedule/internal/daemon"
	"github.com/username/custody-schedule/pkg/dateutil"
)

const dateTimeLayout = "Mon 2006-01-02 15:04"

// rangeFlags are the --from/--to flags shared by several commands
type rangeFlags struct {
	from string
	to   string
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "Range start (YYYY-MM-DD or RFC 3339), default start of this month")
	cmd.Flags().StringVar(&f.to, "to", "", "Range end, exclusive (default from + horizon)")
}

func (f *rangeFlags) resolve(a *app) (custody.Range, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return custody.Range{}, err
	}

	rng := a.planner.Horizon(time.Now())
	if f.from != "" {
		from, err := dateutil.ParseDate(f.from, loc)
		if err != nil {
			return custody.Range{}, fmt.Errorf("invalid --from: %w", err)
		}
		rng = custody.Range{Start: from, End: from.AddDate(0, a.cfg.Schedule.GetHorizonMonths(), 0)}
	}
	if f.to != "" {
		to, err := dateutil.ParseDate(f.to, loc)
		if err != nil {
			return custody.Range{}, fmt.Errorf("invalid --to: %w", err)
		}
		rng.End = to
	}
	return rng, rng.Validate()
}

func computeCmd() *cobra.Command {
	var rf rangeFlags
	var guardian string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Print the custody windows of a range",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initializeApp()
			if err != nil {
				return err
			}
			rng, err := rf.resolve(a)
			if err != nil {
				return err
			}

			plan, err := a.planner.Plan(cmd.Context(), rng.Start, rng.End)
			if err != nil {
				return err
			}

			windows := plan.Windows
			if guardian != "" {
				windows = custody.ForGuardian(windows, custody.GuardianID(guardian))
			}

			if asJSON {
				plan.Windows = windows
				return writeJSON(cmd.OutOrStdout(), plan)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "📅 %s .. %s (%d windows, %d holidays, %d vacation periods)\n\n",
				rng.Start.Format("2006-01-02"), rng.End.Format("2006-01-02"),
				len(windows), len(plan.Holidays), len(plan.Vacations))

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FROM\tTO\tDAYS\tGUARDIAN\tRULE")
			for _, w := range windows {
				fmt.Fprintf(tw, "%s\t%s\t%.1f\t%s\t%s\n",
					w.Start.Format(dateTimeLayout),
					w.End.Format(dateTimeLayout),
					w.Duration().Hours()/24,
					a.cfg.GuardianName(w.Guardian),
					w.Rule)
			}
			return tw.Flush()
		},
	}

	rf.register(cmd)
	cmd.Flags().StringVarP(&guardian, "guardian", "g", "", "Only show this guardian's windows")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	return cmd
}

func currentCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "current",
		Short: "Show who has custody now and the next handover",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initializeApp()
			if err != nil {
				return err
			}
			loc, err := a.cfg.Location()
			if err != nil {
				return err
			}

			instant := time.Now().In(loc)
			if at != "" {
				if instant, err = dateutil.ParseDate(at, loc); err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			w, ok, err := a.planner.Current(cmd.Context(), instant)
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintf(out, "👤 %s has custody until %s (%s)\n",
					a.cfg.GuardianName(w.Guardian), w.End.Format(dateTimeLayout), w.Rule)
			} else {
				fmt.Fprintln(out, "No custody window at this time")
			}

			next, ok, err := a.planner.Next(cmd.Context(), instant)
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintf(out, "🔁 Next handover: %s to %s\n",
					next.Start.Format(dateTimeLayout), a.cfg.GuardianName(next.Guardian))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Instant to look up (default now)")

	return cmd
}

func reportCmd() *cobra.Command {
	var rf rangeFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show how time is shared over a range and per vacation",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initializeApp()
			if err != nil {
				return err
			}
			rng, err := rf.resolve(a)
			if err != nil {
				return err
			}

			report, err := a.planner.Report(cmd.Context(), rng.Start, rng.End)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "📊 %s .. %s (%s days)\n",
				rng.Start.Format("2006-01-02"), rng.End.Format("2006-01-02"),
				report.Allocation.Total.StringFixed(1))
			fmt.Fprintln(out, "═══════════════════════════════════════════════════════")
			printAllocation(out, a, report.Allocation)

			for _, v := range report.Vacations {
				fmt.Fprintf(out, "\n🏖  %s %d (%s .. %s)\n", v.Period.Name, v.Period.Year,
					v.Period.Start.Format("2006-01-02"), v.Period.End.Format("2006-01-02"))
				printAllocation(out, a, v.Allocation)
			}
			return nil
		},
	}

	rf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	return cmd
}

func printAllocation(out io.Writer, a *app, alloc custody.Allocation) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, s := range alloc.Shares {
		fmt.Fprintf(tw, "  %s\t%s days\t%s%%\n",
			a.cfg.GuardianName(s.Guardian), s.Days.StringFixed(1), s.Percent.StringFixed(1))
	}
	tw.Flush()
}

func exportCmd() *cobra.Command {
	var rf rangeFlags
	var guardian string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the custody windows as an iCalendar feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initializeApp()
			if err != nil {
				return err
			}
			rng, err := rf.resolve(a)
			if err != nil {
				return err
			}

			plan, err := a.planner.Plan(cmd.Context(), rng.Start, rng.End)
			if err != nil {
				return err
			}

			g := custody.GuardianID(guardian)
			if output == "" || output == "-" {
				return a.exporter.Encode(cmd.OutOrStdout(), plan.Windows, g)
			}
			if err := a.exporter.WriteFile(output, plan.Windows, g); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✅ Wrote %d windows to %s\n", len(plan.Windows), output)
			return nil
		},
	}

	rf.register(cmd)
	cmd.Flags().StringVarP(&guardian, "guardian", "g", "", "Only export this guardian's windows")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file (- for stdout)")

	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and refresh the feed on schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initializeApp()
			if err != nil {
				return err
			}
			loc, err := a.cfg.Location()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Server.GetAddr()
			}

			d, err := daemon.NewDaemon(a.planner, a.exporter, a.metrics,
				a.cfg.Daemon.GetRefresh(), a.cfg.Daemon.ICSOutput, loc, logger)
			if err != nil {
				return err
			}

			h := api.NewHandler(a.planner, a.exporter, a.cfg.GuardianName, loc, logger).
				WithStatus(d.GetStatus)
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.NewRouter(h, a.cfg.Server.AllowedOrigins, a.registry),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				logger.Info("HTTP server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP server failed", zap.Error(err))
					d.Stop()
				}
			}()

			// Blocks until SIGINT/SIGTERM or Stop
			if err := d.Start(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default server.addr or :8080)")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

