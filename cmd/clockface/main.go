package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/clockface/internal/profile"
	"github.com/hrygo/clockface/plugin/ai/aitime"
	"github.com/hrygo/clockface/plugin/clock"
	"github.com/hrygo/clockface/server"
)

var version = "0.1.0"

var (
	rootCmd = &cobra.Command{
		Use:   "clockface",
		Short: "An analog clock that shows real time or a time you describe in plain words.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the clock HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	resolveCmd = &cobra.Command{
		Use:   "resolve <phrase...>",
		Short: "Resolve a time phrase and print the clock it produces",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			resolver, err := aitime.NewResolverFromProfile(p)
			if err != nil {
				return err
			}
			out, err := aitime.NewRequester(resolver, p.ResolverTimeout).Resolve(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if !out.Found {
				fmt.Fprintf(cmd.OutOrStdout(), "no time found in %q\n", out.Phrase)
				return nil
			}
			printAngles(cmd, out.Time)
			return nil
		},
	}

	anglesCmd = &cobra.Command{
		Use:   "angles <HH:MM[:SS]>",
		Short: "Print the hand angles for a time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tv, err := clock.ParseTimeValue(args[0])
			if err != nil {
				return err
			}
			printAngles(cmd, tv)
			return nil
		},
	}
)

func init() {
	viper.SetDefault("mode", "demo")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8081)
	viper.SetDefault("style", clock.StyleSwiss)

	rootCmd.PersistentFlags().String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("style", clock.StyleSwiss, `clock style, "swiss" or "dark"`)
	rootCmd.PersistentFlags().Bool("frozen", false, "start in manual mode at 10:10:30")
	rootCmd.PersistentFlags().String("timezone", "", "IANA timezone the real-time clock follows (default: host zone)")
	rootCmd.PersistentFlags().String("resolver", "", `time resolver provider: "openai", "deepseek", "ollama" or "rule"`)

	for _, name := range []string{"mode", "addr", "port", "style", "frozen", "timezone", "resolver"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("clockface")
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd, resolveCmd, anglesCmd)
}

// loadProfile layers flags over CLOCKFACE_* environment variables over defaults.
func loadProfile() (*profile.Profile, error) {
	p := profile.Default()
	p.Version = version
	p.FromEnv()

	p.Mode = viper.GetString("mode")
	p.Addr = viper.GetString("addr")
	p.Port = viper.GetInt("port")
	p.Style = viper.GetString("style")
	if viper.IsSet("frozen") {
		p.StartFrozen = viper.GetBool("frozen")
	}
	if tz := viper.GetString("timezone"); tz != "" {
		p.Timezone = tz
	}
	if provider := viper.GetString("resolver"); provider != "" {
		p.ResolverProvider = provider
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	setupLogger(p)
	return p, nil
}

func setupLogger(p *profile.Profile) {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func serve(ctx context.Context) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	s, err := server.NewServer(p)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		s.Shutdown(context.WithoutCancel(gctx))
		return nil
	})
	return g.Wait()
}

func printAngles(cmd *cobra.Command, tv clock.TimeValue) {
	a := clock.HandAngles(tv)
	fmt.Fprintf(cmd.OutOrStdout(), "%s  hour=%.1f° minute=%.1f° second=%.1f°\n", tv, a.Hour, a.Minute, a.Second)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
