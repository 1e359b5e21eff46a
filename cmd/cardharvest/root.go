package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/cardharvest/internal/app/run"
	"github.com/John-Robertt/cardharvest/internal/config"
	"github.com/John-Robertt/cardharvest/internal/domain"
	"github.com/John-Robertt/cardharvest/internal/provider"
	"github.com/John-Robertt/cardharvest/internal/store"
	"github.com/John-Robertt/cardharvest/internal/upload"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

// env 是进程边界：测试里替换为临时目录与 buffer。
type env struct {
	cwd       string
	stdout    io.Writer
	stderr    io.Writer
	stdoutTTY bool
	stderrTTY bool
}

// usageError 标记参数错误（exit 2）。
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// exitError 携带已经处理过（已输出报告/日志）的退出码。
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

type globalFlags struct {
	config  string
	db      string
	driver  string
	proxy   string
	report  string
	dryRun  bool
	verbose bool
}

func execute(ctx context.Context, e env, args []string) int {
	root := newRootCmd(e)
	root.SetArgs(args)
	root.SetOut(e.stdout)
	root.SetErr(e.stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(e.stderr, "错误：%v\n", err)
	var ue usageError
	if errors.As(err, &ue) || strings.HasPrefix(err.Error(), "unknown command") {
		return exitUsage
	}
	return exitFail
}

func newRootCmd(e env) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "cardharvest",
		Short:         "Scrapes the One Piece card list and meta deck lists into a relational store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(e.stderr, g.verbose)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.config, "config", "", "config file (default ./"+config.FileName+", optional)")
	pf.StringVar(&g.db, "db", "", "database DSN (sqlite file path or postgres URL)")
	pf.StringVar(&g.driver, "driver", "", "database driver: sqlite|postgres")
	pf.StringVar(&g.proxy, "proxy", "", "HTTP proxy URL")
	pf.StringVar(&g.report, "report", "", "write the JSON run report to this file")
	pf.BoolVar(&g.dryRun, "dry-run", false, "scrape only; do not open or write the database")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })
	root.AddCommand(newCardsCmd(e, g), newDecksCmd(e, g), newMigrateCmd(e, g))
	return root
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError{err}
	}
	return nil
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func (g *globalFlags) cliArgs(cmd *cobra.Command) config.CLIArgs {
	f := cmd.Flags()
	return config.CLIArgs{
		ConfigPath: g.config,
		Driver:     g.driver, DriverSet: f.Changed("driver"),
		DSN: g.db, DSNSet: f.Changed("db"),
		ProxyURL: g.proxy, ProxySet: f.Changed("proxy"),
		Report: g.report, ReportSet: f.Changed("report"),
		DryRun: g.dryRun,
	}
}

func newCardsCmd(e env, g *globalFlags) *cobra.Command {
	var series []string
	cmd := &cobra.Command{
		Use:   "cards [--series stc,set,eb,prb,pc]",
		Short: "Scrape the official card list and upload new cards.",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := g.cliArgs(cmd)
			cli.Series, cli.SeriesSet = series, cmd.Flags().Changed("series")
			eff, err := loadConfig(e, cli, domain.KindCards)
			if err != nil {
				return err
			}

			f, err := run.NewFetcher(eff, provider.StatusEmpty)
			if err != nil {
				return err
			}
			var st upload.CardStore
			if !eff.DryRun {
				s, err := openStore(cmd.Context(), eff)
				if err != nil {
					return err
				}
				defer s.Close()
				st = s
			}

			rr := run.Cards(cmd.Context(), eff, f, st, progressObserver(e))
			return finishRun(e, eff, rr)
		},
	}
	cmd.Flags().StringSliceVar(&series, "series", nil, "series families to scrape (default all)")
	return cmd
}

func newDecksCmd(e env, g *globalFlags) *cobra.Command {
	var metas []string
	cmd := &cobra.Command{
		Use:   "decks [--meta OP01,OP05]",
		Short: "Scrape meta deck lists and upload them.",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := g.cliArgs(cmd)
			cli.MetaSets, cli.MetaSetsSet = metas, cmd.Flags().Changed("meta")
			eff, err := loadConfig(e, cli, domain.KindDecks)
			if err != nil {
				return err
			}

			f, err := run.NewFetcher(eff, provider.StatusError)
			if err != nil {
				return err
			}
			var st upload.DeckStore
			if !eff.DryRun {
				s, err := openStore(cmd.Context(), eff)
				if err != nil {
					return err
				}
				defer s.Close()
				st = s
			}

			rr := run.Decks(cmd.Context(), eff, f, st, nil, progressObserver(e))
			return finishRun(e, eff, rr)
		},
	}
	cmd.Flags().StringSliceVar(&metas, "meta", nil, "meta sets to scrape, e.g. OP01,OP05 (default all)")
	return cmd
}

func newMigrateCmd(e env, g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the cards/decks/deck_cards tables if they do not exist.",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := loadConfig(e, g.cliArgs(cmd), "migrate")
			if err != nil {
				return err
			}
			s, err := openStore(cmd.Context(), eff)
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := s.Stats(cmd.Context())
			if err != nil {
				return err
			}
			slog.Info("schema ready", "driver", s.Driver(), "cards", stats.Cards, "decks", stats.Decks, "deck_cards", stats.DeckCards)
			return nil
		},
	}
}

// loadConfig 把配置错误输出为报告并转换为 exit 1（与运行失败一致，便于脚本统一处理）。
func loadConfig(e env, cli config.CLIArgs, kind string) (config.EffectiveConfig, error) {
	eff, err := config.LoadEffective(e.cwd, cli)
	if err == nil {
		return eff, nil
	}
	if kind == "migrate" {
		return config.EffectiveConfig{}, err
	}
	emitReport(e, reportForConfigError(kind, cli.DryRun, err))
	return config.EffectiveConfig{}, exitError{code: exitFail}
}

// openStore 打开数据库并建表（幂等），所以 cards/decks 不要求先单独执行 migrate。
func openStore(ctx context.Context, eff config.EffectiveConfig) (*store.Store, error) {
	s, err := store.Open(ctx, eff.Driver, eff.DSN)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func progressObserver(e env) run.Observer {
	if !e.stderrTTY {
		return nil
	}
	return newProgressUI(e.stderr)
}

func finishRun(e env, eff config.EffectiveConfig, rr domain.RunReport) error {
	if eff.Report != "" {
		if err := writeReportFile(eff.Report, rr); err != nil {
			slog.Error("error writing report", "path", eff.Report, "err", err)
			emitReport(e, rr)
			return exitError{code: exitFail}
		}
	}
	emitReport(e, rr)
	if !rr.OK {
		return exitError{code: exitFail}
	}
	return nil
}
