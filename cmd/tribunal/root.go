package main

import (
	"fmt"

	"github.com/run-bigpig/tribunal/internal/agent"
	"github.com/run-bigpig/tribunal/internal/config"
	"github.com/run-bigpig/tribunal/internal/logger"

	"github.com/spf13/cobra"
)

var log = logger.New("CLI")

// app 命令共享的运行环境
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	roster *agent.Roster
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "tribunal",
		Short: "Watch multi-agent debate sessions from the terminal",
		Long: `tribunal connects to a multi-agent debate service, follows the live
event stream for one or more subjects, prints the round-by-round transcript
and the final verdict, and saves a plain-text export when a session ends.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $TRIBUNAL_HOME/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	root.AddCommand(newWatchCmd(a), newReplayCmd(a), newExportsCmd(a))
	return root
}

// init 加载配置、日志级别和名单
func (a *app) init(cmd *cobra.Command) error {
	logger.SetOutput(cmd.ErrOrStderr())

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := cfg.Logging.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	logger.SetGlobalLevel(logger.ParseLevel(level))

	roster, err := agent.LoadRoster(cfg.Roster.File)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}

	a.cfg = cfg
	a.roster = roster
	log.Debug("config loaded: endpoint=%s roster=%d participants", cfg.Endpoint.BaseURL, roster.Len())
	return nil
}
