package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/run-bigpig/tribunal/internal/archive"
	"github.com/run-bigpig/tribunal/internal/meeting"
	"github.com/run-bigpig/tribunal/internal/pkg/paths"
	"github.com/run-bigpig/tribunal/internal/transport"

	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <subject>...",
		Short: "Follow live debate sessions for one or more subjects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := transport.NewWebSocketDialer(a.cfg.Endpoint.BaseURL)
			d.HandshakeTimeout = a.cfg.Endpoint.HandshakeTimeout()
			d.QueueSize = a.cfg.Endpoint.QueueSize
			return a.run(cmd.Context(), cmd.OutOrStdout(), d, args, a.cfg.Session.Watchdog())
		},
	}
}

func newReplayCmd(a *app) *cobra.Command {
	var (
		dir      string
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "replay <subject>...",
		Short: "Replay recorded sessions from JSON-lines files",
		Long: `replay feeds <dir>/<subject>.jsonl through the same session engine as
watch, one frame per line, and saves an export once the recording ends.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := transport.NewReplayDialer(dir)
			d.Interval = interval
			d.QueueSize = a.cfg.Endpoint.QueueSize
			return a.run(cmd.Context(), cmd.OutOrStdout(), d, args, 0)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", paths.GetRecordingDir(), "directory holding <subject>.jsonl recordings")
	cmd.Flags().DurationVar(&interval, "interval", 0, "delay between replayed frames")
	return cmd
}

// run 打开全部主题并等待结束，结束的会话保存导出
func (a *app) run(ctx context.Context, out io.Writer, dialer transport.Dialer, subjects []string, idle time.Duration) error {
	store, err := archive.NewStore(a.cfg.Session.ExportDir)
	if err != nil {
		return err
	}

	p := newPrinter(out)
	svc := meeting.NewService(a.roster, dialer,
		meeting.WithConcludeOnVerdict(a.cfg.Session.ConcludeOnVerdict),
		meeting.WithUpdateCallback(p.update),
	)
	defer svc.CloseAll()

	if _, err := svc.WatchAll(ctx, subjects, idle); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	var failed int
	for _, subject := range subjects {
		sess, ok := svc.Get(subject)
		if !ok {
			p.printf("%s: not started\n", subject)
			failed++
			continue
		}
		snap := sess.Snapshot()
		if snap.State != meeting.StateConcluded {
			p.printf("%s: stopped before conclusion\n", subject)
			failed++
			continue
		}
		if snap.Failure != "" {
			p.printf("%s: connection failed: %s\n", subject, snap.Failure)
			failed++
		}
		exp, err := sess.Export()
		if err != nil {
			log.Warn("export %s: %v", subject, err)
			continue
		}
		path, err := store.Save(exp)
		if err != nil {
			return err
		}
		p.printf("%s: export saved to %s\n", subject, path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sessions did not complete", failed, len(subjects))
	}
	return nil
}
