package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cryptodash/internal/api"
	"cryptodash/internal/config"
	"cryptodash/internal/poll"
	"cryptodash/internal/session"
	"cryptodash/internal/ui"
	"cryptodash/internal/util"
	"cryptodash/internal/view"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cryptodash", "config.yaml")
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "cryptodash",
		Short:         "Terminal client for the crypto price & prediction platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "config file path")

	root.AddCommand(newLoginCmd(&configPath))
	root.AddCommand(newRegisterCmd(&configPath))
	root.AddCommand(newLogoutCmd(&configPath))
	root.AddCommand(newWhoamiCmd(&configPath))
	root.AddCommand(newPriceCmd(&configPath))
	root.AddCommand(newForecastCmd(&configPath))
	root.AddCommand(newSymbolsCmd(&configPath))
	root.AddCommand(newDashboardCmd(&configPath))
	root.AddCommand(newWatchCmd(&configPath))
	return root
}

// app bundles the bootstrapped pieces every command needs. The session
// store is initialized before any command logic runs.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	client  *api.Client
	creds   *session.CredentialStore
	session *session.Store
}

func loadApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := util.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	client := api.NewClient(cfg.Server.BaseURL, cfg.Server.Timeout)

	creds, err := session.OpenCredentialStore(cfg.CredentialDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	store := session.NewStore(client, creds, logger)
	if err := store.Initialize(); err != nil {
		logger.Warn("restoring session", "error", err)
	}

	return &app{cfg: cfg, log: logger, client: client, creds: creds, session: store}, nil
}

func (a *app) close() {
	if err := a.creds.Close(); err != nil {
		a.log.Warn("closing credential store", "error", err)
	}
}

func newLoginCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Authenticate and persist the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			fmt.Fprint(cmd.OutOrStdout(), "Password: ")
			reader := bufio.NewReader(cmd.InOrStdin())
			password, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}
			password = strings.TrimRight(password, "\r\n")

			if err := a.session.Login(cmd.Context(), args[0], password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", args[0])
			return nil
		},
	}
}

func newRegisterCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "register <username> <email>",
		Short: "Create a new account (does not log in)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			fmt.Fprint(cmd.OutOrStdout(), "Password: ")
			reader := bufio.NewReader(cmd.InOrStdin())
			password, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}
			password = strings.TrimRight(password, "\r\n")

			msg, err := a.session.Register(cmd.Context(), args[0], args[1], password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func newLogoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			a.session.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			s := a.session.Snapshot()
			if !s.Authenticated {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", s.User.Username)
			return nil
		},
	}
}

func newPriceCmd(configPath *string) *cobra.Command {
	var (
		history  int
		from, to string
	)

	cmd := &cobra.Command{
		Use:   "price <symbol>",
		Short: "Print the latest price for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			symbol := strings.ToUpper(args[0])

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			if from != "" || to != "" {
				start, end, err := parseRange(from, to)
				if err != nil {
					return err
				}
				points, err := a.client.PriceHistory(ctx, symbol, start, end)
				if err != nil {
					return fmt.Errorf("fetching %s history: %w", symbol, err)
				}
				for _, p := range points {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %.2f\n", p.Timestamp.Format(time.RFC3339), p.Price)
				}
				return nil
			}

			err = util.Retry(ctx, 3, time.Second, func() error {
				p, err := a.client.LatestPrice(ctx, symbol)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %.2f  (%+.2f%% 24h)  at %s\n",
					p.Symbol, p.Price, p.PriceChangePercent24h, p.Timestamp.Format(time.RFC3339))
				return nil
			})
			if err != nil {
				return fmt.Errorf("fetching %s: %w", symbol, err)
			}

			if history > 0 {
				points, err := a.client.RecentPrices(ctx, symbol, history)
				if err != nil {
					return fmt.Errorf("fetching %s history: %w", symbol, err)
				}
				for _, p := range points {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %.2f\n", p.Timestamp.Format(time.RFC3339), p.Price)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&history, "history", 0, "also print the N most recent observations")
	cmd.Flags().StringVar(&from, "from", "", "print history starting at this RFC3339 time instead of the latest price")
	cmd.Flags().StringVar(&to, "to", "", "end of the history range (RFC3339, default now)")
	return cmd
}

// parseRange turns the --from/--to flags into a concrete interval. An empty
// --to means now.
func parseRange(from, to string) (time.Time, time.Time, error) {
	if from == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("--from is required with --to")
	}
	start, err := time.Parse(time.RFC3339, from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing --from: %w", err)
	}
	end := time.Now()
	if to != "" {
		if end, err = time.Parse(time.RFC3339, to); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing --to: %w", err)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to is before --from")
	}
	return start, end, nil
}

func newForecastCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "forecast <symbol>",
		Short: "Print the most recent prediction for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			symbol := strings.ToUpper(args[0])
			p, err := a.client.LatestPrediction(cmd.Context(), symbol)
			if err != nil {
				var apiErr *api.APIError
				if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
					fmt.Fprintf(cmd.OutOrStdout(), "No prediction available for %s\n", symbol)
					return nil
				}
				return fmt.Errorf("fetching %s forecast: %w", symbol, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s  %.2f ± %.2f  for %s", p.Symbol,
				p.PredictedPrice, p.ConfidenceInterval, p.TargetDate.Format("2006-01-02"))
			if p.Model != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  (%s)", p.Model)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}

func newSymbolsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "symbols",
		Short: "List symbols tracked by the platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			symbols, err := a.client.Symbols(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range symbols {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

// buildViews wires the scheduler and both view models for the TUI commands.
func (a *app) buildViews() (*view.DashboardModel, *view.DetailModel) {
	sched := poll.NewScheduler(poll.SystemClock{}, a.log)
	dash := view.NewDashboardModel(a.client, sched, a.cfg.Symbols, a.cfg.Poll.DashboardInterval, a.log)
	detail := view.NewDetailModel(a.client, sched, a.cfg.Poll.DetailInterval,
		a.cfg.Poll.HistoryLimit, a.cfg.Chart.Window, a.log)
	return dash, detail
}

func newDashboardCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive dashboard",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			dash, detail := a.buildViews()
			return ui.Run(ui.NewApp(a.session, dash, detail, a.cfg.Symbols))
		},
	}
}

func newWatchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <symbol>",
		Short: "Open the detail view for one symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			dash, detail := a.buildViews()
			symbol := strings.ToUpper(args[0])
			return ui.Run(ui.NewDetailApp(a.session, dash, detail, a.cfg.Symbols, symbol))
		},
	}
}
