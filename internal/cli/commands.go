package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dyike/finreact/config"
	"github.com/dyike/finreact/internal/display"
	"github.com/dyike/finreact/internal/digest"
	"github.com/dyike/finreact/internal/graph"
	"github.com/dyike/finreact/internal/logger"
	"github.com/dyike/finreact/internal/service"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "dev"

// state shared by every command once PersistentPreRunE has run
type cliState struct {
	cfg *config.Config
	log *logger.Logger
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	st := &cliState{}

	rootCmd := &cobra.Command{
		Use:   "finreact",
		Short: "finreact - LLM financial assistant with tools and daily digests",
		Long: `finreact answers questions about stocks with a tool-calling language model:
daily prices, balance sheets, income statements, web news, favorites with
price alerts and query history. A scheduled digest emails your favorites
every weekday.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if verbose, _ := cmd.Flags().GetBool("debug"); verbose {
				cfg.App.LogLevel = "debug"
			}
			if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			st.cfg = cfg
			st.log = logger.Get()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, st, "")
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(newChatCmd(st))
	rootCmd.AddCommand(newAskCmd(st))
	rootCmd.AddCommand(newDigestCmd(st))
	rootCmd.AddCommand(newDBCmd(st))
	rootCmd.AddCommand(newFavoritesCmd(st))
	rootCmd.AddCommand(newHistoryCmd(st))
	rootCmd.AddCommand(newConfigCmd(st))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newChatCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			return runChat(cmd, st, email)
		},
	}
	cmd.Flags().String("email", "", "Sign in with this email instead of prompting")
	return cmd
}

func runChat(cmd *cobra.Command, st *cliState, email string) error {
	if err := st.cfg.Validate(); err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	rt, err := newRuntime(st.cfg, st.log)
	if err != nil {
		return err
	}
	defer rt.Close()

	printer := display.New(cmd.OutOrStdout())
	notifier := graph.NewLoggerCallback(nil)
	notifier.OnToolStart = printer.ToolCall
	runner, err := rt.newRunner(ctx, notifier)
	if err != nil {
		return err
	}
	return NewInteractiveSession(runner, rt.store, printer).Start(ctx, email)
}

func newAskCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [QUESTION]",
		Short: "Ask a single question and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			if err := st.cfg.Validate(); err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			rt, err := newRuntime(st.cfg, st.log)
			if err != nil {
				return err
			}
			defer rt.Close()

			user, err := service.SignIn(ctx, rt.store, email)
			if err != nil {
				return err
			}
			runner, err := rt.newRunner(ctx)
			if err != nil {
				return err
			}
			out, err := runner.Run(ctx, args[0], *user)
			if err != nil {
				return err
			}
			display.New(cmd.OutOrStdout()).Answer(out.Answer, out.ToolsUsed, out.Elapsed)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Email of the user asking")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newDigestCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Send the daily favorites digest",
		Long: `Send the daily digest now, or with --schedule keep running and send it on
the cron schedule stored in the digest settings file. The schedule is
reloaded whenever that file changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			schedule, _ := cmd.Flags().GetBool("schedule")
			if err := st.cfg.ValidateMail(); err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			rt, err := newRuntime(st.cfg, st.log)
			if err != nil {
				return err
			}
			defer rt.Close()

			manager, err := rt.newSettingsManager()
			if err != nil {
				return err
			}
			job := rt.newDigestJob(manager)

			if !schedule {
				report, err := job.Run(ctx)
				if err != nil {
					return err
				}
				display.New(cmd.OutOrStdout()).DigestReport(report)
				return nil
			}

			serveMetrics(ctx, st.cfg.App.MetricsAddr, st.log)
			st.log.Infow("digest scheduler starting", "settings", manager.Path())
			return digest.NewScheduler(job, manager, st.log).Start(ctx)
		},
	}
	cmd.Flags().Bool("schedule", false, "Keep running and send on the configured cron schedule")
	cmd.AddCommand(newDigestSettingsCmd(st))
	return cmd
}

func newDigestSettingsCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show the digest schedule settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			initial := config.DefaultDigestSettings(st.cfg.Digest)
			manager, err := config.NewManager(
				config.WithSettingsPath(st.cfg.Digest.SettingsPath),
				config.WithInitialSettings(&initial),
			)
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), manager.Path(), manager.Get())
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set [JSON]",
		Short: `Replace the digest settings, e.g. '{"enabled":true,"cron":"0 18 * * 1-5","timezone":"America/New_York","news_lines":5}'`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initial := config.DefaultDigestSettings(st.cfg.Digest)
			manager, err := config.NewManager(
				config.WithSettingsPath(st.cfg.Digest.SettingsPath),
				config.WithInitialSettings(&initial),
			)
			if err != nil {
				return err
			}
			if err := manager.UpdateFromJSON(args[0]); err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), manager.Path(), manager.Get())
			return nil
		},
	})
	return cmd
}

func printSettings(w io.Writer, path string, s config.DigestSettings) {
	fmt.Fprintf(w, "Settings file:  %s\n", path)
	fmt.Fprintf(w, "Enabled:        %t\n", s.Enabled)
	fmt.Fprintf(w, "Cron:           %s\n", s.Cron)
	fmt.Fprintf(w, "Timezone:       %s\n", s.Timezone)
	fmt.Fprintf(w, "News lines:     %d\n", s.NewsLines)
}

func newDBCmd(st *cliState) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management",
	}
	dbCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(st.cfg, st.log)
			if err != nil {
				return err
			}
			defer rt.Close()
			display.New(cmd.OutOrStdout()).Success("database ready at " + st.cfg.Storage.DBPath)
			return nil
		},
	})
	return dbCmd
}

func newFavoritesCmd(st *cliState) *cobra.Command {
	favCmd := &cobra.Command{
		Use:   "favorites",
		Short: "Favorite stocks",
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's favorite stocks",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			rt, err := newRuntime(st.cfg, st.log)
			if err != nil {
				return err
			}
			defer rt.Close()

			favs, err := service.GetFavorites(cmd.Context(), rt.store, email)
			if err != nil {
				return err
			}
			display.New(cmd.OutOrStdout()).Favorites(favs)
			return nil
		},
	}
	listCmd.Flags().String("email", "", "User email")
	_ = listCmd.MarkFlagRequired("email")
	favCmd.AddCommand(listCmd)
	return favCmd
}

func newHistoryCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show a user's recent questions and answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			limit, _ := cmd.Flags().GetInt("limit")
			rt, err := newRuntime(st.cfg, st.log)
			if err != nil {
				return err
			}
			defer rt.Close()

			entries, err := service.GetHistory(cmd.Context(), rt.store, email, limit)
			if err != nil {
				return err
			}
			display.New(cmd.OutOrStdout()).History(entries)
			return nil
		},
	}
	cmd.Flags().String("email", "", "User email")
	cmd.Flags().Int("limit", 10, "Number of entries")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// skip config loading
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "finreact %s\n", Version)
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(st *cliState) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cmd.OutOrStdout(), st.cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cmd.OutOrStdout(), st.cfg)
		},
	})

	return configCmd
}

func configured(v string) string {
	if v != "" {
		return "✅ Configured"
	}
	return "❌ Not configured"
}

// showConfig displays the current configuration
func showConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "📋 Current finreact Configuration:")
	fmt.Fprintln(w, "═══════════════════════════════════════")
	fmt.Fprintf(w, "Environment:          %s\n", cfg.App.Env)
	fmt.Fprintf(w, "Log Level:            %s\n", cfg.App.LogLevel)
	fmt.Fprintf(w, "Data Directory:       %s\n", cfg.App.DataDir)
	fmt.Fprintf(w, "Database:             %s\n", cfg.Storage.DBPath)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "LLM Provider:         %s\n", cfg.LLM.Provider)
	fmt.Fprintf(w, "Model:                %s\n", cfg.LLM.Model)
	fmt.Fprintf(w, "Max Turns:            %d\n", cfg.LLM.MaxTurns)
	fmt.Fprintf(w, "Session Timeout:      %s\n", cfg.LLM.SessionTimeout)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Search Provider:      %s\n", cfg.Search.Provider)
	fmt.Fprintf(w, "Yahoo Fallback:       %t\n", cfg.Market.YahooFallback)
	fmt.Fprintf(w, "Alpha Vantage RPM:    %d\n", cfg.Market.RequestsPerMinute)
	fmt.Fprintf(w, "Digest Cron:          %s (%s)\n", cfg.Digest.Cron, cfg.Digest.Timezone)
	fmt.Fprintf(w, "Eino Debug:           %t\n", cfg.Debug.EinoDebugEnabled)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🔌 API Configuration:")
	fmt.Fprintln(w, "─────────────────────")
	fmt.Fprintf(w, "OpenAI API:           %s\n", configured(cfg.LLM.OpenAIAPIKey))
	fmt.Fprintf(w, "DeepSeek API:         %s\n", configured(cfg.LLM.DeepSeekAPIKey))
	fmt.Fprintf(w, "Alpha Vantage API:    %s\n", configured(cfg.Market.AlphaVantageAPIKey))
	fmt.Fprintf(w, "SerpAPI:              %s\n", configured(cfg.Search.SerpAPIKey))
	fmt.Fprintf(w, "SMTP Credentials:     %s\n", configured(cfg.SMTP.Password))
}

// validateConfig validates the configuration
func validateConfig(w io.Writer, cfg *config.Config) error {
	fmt.Fprintln(w, "🔍 Validating finreact Configuration...")

	fmt.Fprint(w, "🔑 Chat session... ")
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(w, "❌")
		return err
	}
	fmt.Fprintln(w, "✅")

	fmt.Fprint(w, "✉️  Mail... ")
	if err := cfg.ValidateMail(); err != nil {
		fmt.Fprintln(w, "⚠️")
		fmt.Fprintf(w, "  ⚠️  %v\n", err)
	} else {
		fmt.Fprintln(w, "✅")
	}

	fmt.Fprint(w, "⏰ Digest schedule... ")
	if err := config.DefaultDigestSettings(cfg.Digest).Validate(); err != nil {
		fmt.Fprintln(w, "❌")
		return err
	}
	fmt.Fprintln(w, "✅")
	return nil
}
