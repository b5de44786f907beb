package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/soocke/facegate-go/app/kiosk"
	"github.com/soocke/facegate-go/config"
	"github.com/soocke/facegate-go/debug"
	"github.com/soocke/facegate-go/domain/faceapi"
	"github.com/soocke/facegate-go/domain/session"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Run one capture session headless and log its progress",
	Long: `Run one capture session without a window. The session status is logged
at every interval until a frame is captured and previewed, the session
closes, or the timeout expires. With --confirm the previewed frame is
submitted; with --auto-confirm the session submits on its own.`,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().String("mode", config.SiteCheckIn, "call site: checkin, register or admin")
	probeCmd.Flags().String("user", "", "admin user id (admin mode)")
	probeCmd.Flags().String("password", "", "admin password (admin mode)")
	probeCmd.Flags().Bool("auto-confirm", false, "submit as soon as the captured frame verifies")
	probeCmd.Flags().Bool("confirm", false, "submit the frame once its preview verified")
	probeCmd.Flags().Duration("timeout", time.Minute, "give up after this long")
	probeCmd.Flags().Duration("interval", time.Second, "status log interval")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	opts, err := kioskOptions(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)
	confirm, _ := cmd.Flags().GetBool("confirm")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		interval = time.Second
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	camera := kiosk.NewCamera(cfg, logger)
	defer camera.Close()
	client := faceapi.NewClient(cfg.APIBaseURL, cfg.APIToken, cfg.APITimeout())
	k := kiosk.New(logger, cfg, camera, client, session.LogNotifier{Logger: logger}, opts)
	defer k.Close()

	if cfg.Debug {
		debug.StartStatsLogger(ctx, 5*time.Second, camera, debug.StatsFunc(func() {
			if s := k.Controller(); s != nil {
				s.Loop().LogStats()
			}
		}))
	}

	if _, err := k.Renew(ctx); err != nil {
		return err
	}
	s := k.Controller()
	logger.Info("probe started", "session", s.ID(), "site", opts.Site, "device", camera.Active())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("probe timed out after %s in phase %s", timeout, s.Phase())
			}
			return nil
		case <-ticker.C:
		}
		st := s.Status()
		logStatus(logger, st)
		switch {
		case st.DeviceError != "":
			return fmt.Errorf("camera failed: %s", st.DeviceError)
		case st.Phase == session.PhaseClosed:
			if st.CommitError != "" {
				return fmt.Errorf("submit failed: %s", st.CommitError)
			}
			logger.Info("probe finished", "session", st.ID)
			return nil
		case st.Phase == session.PhaseCaptured && !st.Previewing:
			if confirm && st.PreviewVerified {
				if err := s.Confirm(ctx); err != nil {
					return fmt.Errorf("could not confirm: %w", err)
				}
				continue
			}
			if !opts.AutoConfirm || !st.PreviewVerified {
				logger.Info("probe captured", "verified", st.PreviewVerified, "error", st.PreviewError)
				return nil
			}
		}
	}
}

func logStatus(logger *slog.Logger, st session.Status) {
	attrs := []any{
		"phase", st.Phase.String(),
		"matches", st.ConsecutiveMatches,
		"required", st.RequiredMatches,
		"threshold", st.ThresholdPercent,
		"generation", st.Generation,
	}
	if st.SimilarityPercent != nil {
		attrs = append(attrs, "similarity", *st.SimilarityPercent)
	}
	logger.Info("probe.status", attrs...)
}
