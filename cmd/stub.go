package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/soocke/facegate-go/devserver"
)

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Serve an in-memory face API for local testing",
	Long: `Serve a stand-in for the face recognition API. Every decodable image
counts as a face and comparisons report the configured similarity. Point
api_base_url at http://<addr>/api to drive the kiosk without the real service.`,
	RunE: runStub,
}

func init() {
	stubCmd.Flags().String("addr", "127.0.0.1:8000", "listen address")
	stubCmd.Flags().Float64("similarity", 0.9, "similarity reported for every comparison (0..1)")
	stubCmd.Flags().Float64("threshold", devserver.DefaultThreshold, "similarity needed to verify")
	stubCmd.Flags().Duration("latency", 0, "artificial delay on comparison endpoints")
	stubCmd.Flags().String("admin-user", "admin", "admin user accepted by the login endpoint")
	stubCmd.Flags().String("admin-password", "admin", "password for --admin-user")
	rootCmd.AddCommand(stubCmd)
}

func runStub(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	similarity, _ := cmd.Flags().GetFloat64("similarity")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	latency, _ := cmd.Flags().GetDuration("latency")
	adminUser, _ := cmd.Flags().GetString("admin-user")
	adminPassword, _ := cmd.Flags().GetString("admin-password")

	level := logLevel
	if level == "" {
		level = "info"
	}
	logger := newLogger(level)

	stub := devserver.New(logger, devserver.Options{
		Similarity: similarity,
		Threshold:  threshold,
		Latency:    latency,
		Admins:     map[string]string{adminUser: adminPassword},
	})
	server := &http.Server{
		Addr:              addr,
		Handler:           stub.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx := cmd.Context()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("stub shutdown failed", "error", err)
		}
	}()

	logger.Info("stub listening", "addr", addr, "similarity", similarity, "threshold", threshold)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not serve: %w", err)
	}
	return nil
}
