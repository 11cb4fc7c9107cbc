// Package cli описывает команды punch-agent.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"punchAgent/internal/cli/commands"
	"punchAgent/internal/cli/ui"
	"punchAgent/internal/config"
	"punchAgent/internal/logger"
	"punchAgent/internal/punch"
	"punchAgent/internal/sanitizer"
	"punchAgent/internal/scheduler"
	"punchAgent/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runner нужен командам punch, check, serve и daemon.
type Runner interface {
	commands.Runner
	server.Puncher
}

type CLI struct {
	cfg       *config.Cfg
	log       *logger.Zap
	runner    Runner
	history   commands.History // nil без БД
	sanitizer *sanitizer.DataSanitizer
	out       io.Writer
	now       func() time.Time
}

// New собирает CLI. history может быть nil, тогда history и /api/runs недоступны.
func New(cfg *config.Cfg, log *logger.Zap, runner Runner, history commands.History, san *sanitizer.DataSanitizer) *CLI {
	if san == nil {
		san = sanitizer.New(cfg.Credentials.Username, cfg.Credentials.Password)
	}
	return &CLI{
		cfg:       cfg,
		log:       log,
		runner:    runner,
		history:   history,
		sanitizer: san,
		out:       os.Stdout,
		now:       time.Now,
	}
}

// Execute разбирает args и выполняет команду. Без подкоманды выполняется punch.
func (c *CLI) Execute(ctx context.Context, args []string) error {
	root := c.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (c *CLI) rootCmd() *cobra.Command {
	punchCmd := c.punchCmd()

	root := &cobra.Command{
		Use:           "punch-agent [in|out]",
		Short:         "Отметка прихода и ухода в ADP SecurTime с заданной геолокацией",
		Version:       ui.Version,
		Args:          punchCmd.Args,
		ValidArgs:     punchCmd.ValidArgs,
		RunE:          punchCmd.RunE,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.out)
	root.SetErr(c.out)

	root.AddCommand(punchCmd, c.checkCmd(), c.historyCmd(), c.serveCmd(), c.daemonCmd())
	return root
}

func (c *CLI) punchCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "punch [in|out]",
		Short:     "Выполнить отметку (по умолчанию действие выбирается по времени суток)",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"in", "out"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.RequireCredentials(); err != nil {
				return err
			}
			override := c.cfg.Punch.Override
			if len(args) == 1 {
				override = args[0]
			}
			action, explicit, err := punch.Resolve(override, c.now(), c.cfg.Punch.TZOffset, c.cfg.Punch.CutoffHour)
			if err != nil {
				return err
			}
			return c.punchHandler(cmd).Punch(cmd.Context(), action, explicit)
		},
	}
}

func (c *CLI) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Войти и показать состояние страницы, ничего не нажимая",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.RequireCredentials(); err != nil {
				return err
			}
			return c.punchHandler(cmd).Check(cmd.Context())
		},
	}
}

func (c *CLI) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Показать последние запуски или детали одного запуска",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h := commands.NewShowHandler(c.history, c.log.Logger, cmd.OutOrStdout())
			if len(args) == 1 {
				return h.Show(cmd.Context(), args[0])
			}
			if limit <= 0 {
				return fmt.Errorf("--limit должен быть положительным")
			}
			return h.List(cmd.Context(), limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "сколько запусков показать")
	return cmd
}

func (c *CLI) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.RequireCredentials(); err != nil {
				return err
			}
			ui.PrintBanner(cmd.OutOrStdout(), c.banner("serve", true, nil))
			return c.newServer().Run(cmd.Context())
		},
	}
}

func (c *CLI) daemonCmd() *cobra.Command {
	var withAPI bool
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Выполнять отметки по расписанию (SCHEDULE_IN / SCHEDULE_OUT, UTC)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.RequireCredentials(); err != nil {
				return err
			}
			sched, err := scheduler.New(c.cfg.Schedule, c.runner, c.sanitizer, c.log.Named("scheduler"))
			if err != nil {
				return err
			}

			var schedules []string
			next := sched.Next(c.now())
			for _, action := range []punch.Action{punch.In, punch.Out} {
				if at, ok := next[action]; ok {
					schedules = append(schedules, fmt.Sprintf("%s, ближайшая %s", action.Label(), at.Local().Format("2006-01-02 15:04")))
				}
			}
			ui.PrintBanner(cmd.OutOrStdout(), c.banner("daemon", withAPI, schedules))

			g, gctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return sched.Run(gctx) })
			if withAPI {
				g.Go(func() error { return c.newServer().Run(gctx) })
			}
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&withAPI, "api", true, "запустить HTTP API вместе с планировщиком")
	return cmd
}

func (c *CLI) punchHandler(cmd *cobra.Command) *commands.PunchHandler {
	return commands.NewPunchHandler(c.runner, c.sanitizer, c.log.Logger, cmd.OutOrStdout())
}

func (c *CLI) newServer() *server.Server {
	var history server.History
	if c.history != nil {
		history = c.history
	}
	return server.New(c.cfg, c.log.Named("http"), c.runner, history, c.sanitizer)
}

func (c *CLI) banner(mode string, withAPI bool, schedules []string) ui.Banner {
	b := ui.Banner{
		Mode:      mode,
		Driver:    c.cfg.Browser.Driver,
		Latitude:  c.cfg.Session.Latitude,
		Longitude: c.cfg.Session.Longitude,
		Schedules: schedules,
	}
	if withAPI {
		b.Addr = c.cfg.Server.Host + ":" + c.cfg.Server.Port
	}
	c.log.Info("Режим запуска", zap.String("mode", mode), zap.String("driver", b.Driver))
	return b
}
