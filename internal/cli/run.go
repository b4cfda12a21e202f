package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tradepulse/internal/notify"
	"tradepulse/internal/poll"
	"tradepulse/internal/session"
	"tradepulse/internal/stream"
	"tradepulse/internal/upstream"
)

func newRunCmd(app *App) *cobra.Command {
	var noStream, noPoll bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the alert delivery session",
		Long: `Connects to the upstream alert feed and polling endpoint and prints
delivered alerts to the terminal. Suppressed alerts are logged and, when
the journal is enabled, recorded for 'pulse history'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg := app.Config

			sess := session.NewSession(session.Config{
				BaseNotifyInterval: cfg.Throttle.BaseInterval,
				ThrottleFactor:     cfg.Throttle.AdaptiveFactor,
				AdaptiveEnabled:    cfg.Throttle.AdaptiveEnabled,
			}, app.Logger)
			sess.SetNotifier(notify.NewTerminalNotifier())
			if app.Journal != nil {
				sess.SetJournal(app.Journal)
			}

			var ingestor *stream.Ingestor
			if cfg.Stream.Enabled && !noStream {
				streamCfg := stream.DefaultConfig(upstream.StreamURL(cfg.Upstream.BaseURL))
				streamCfg.BaseDelay = cfg.Stream.BaseDelay
				streamCfg.MaxDelay = cfg.Stream.MaxDelay
				ingestor = stream.NewIngestor(streamCfg, app.Logger)
			}

			var fetcher *poll.Fetcher
			if cfg.Poll.Enabled && !noPoll {
				fetcher = poll.NewFetcher(app.Upstream, cfg.Poll.Interval, app.Logger)
			}

			sess.Attach(ingestor, fetcher)
			sess.Start(ctx)
			defer sess.Stop()

			if ingestor != nil {
				ingestor.Enable(ctx)
				defer ingestor.Disable()
			}
			if fetcher != nil {
				fetcher.Start(ctx)
				defer fetcher.Stop()
			}

			app.Logger.Info().
				Str("base_url", cfg.Upstream.BaseURL).
				Bool("stream", ingestor != nil).
				Bool("poll", fetcher != nil).
				Msg("Session started")

			<-ctx.Done()

			metrics := sess.GetMetrics()
			app.Logger.Info().
				Uint64("delivered", metrics.Delivered).
				Uint64("suppressed", metrics.Suppressed).
				Msg("Session stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&noStream, "no-stream", false, "disable the live stream, poll only")
	cmd.Flags().BoolVar(&noPoll, "no-poll", false, "disable polling, stream only")

	return cmd
}
