package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"palm-reader/internal/app"
	"palm-reader/internal/config"
	"palm-reader/internal/domain"
	"palm-reader/internal/logging"
)

type options struct {
	provider string
	model    string
	logLevel string
	logFile  string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "palmd",
		Short:         "Palm reading service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.provider, "provider", "", "model provider: gemini or openai (overrides PALM_PROVIDER)")
	cmd.PersistentFlags().StringVar(&opts.model, "model", "", "model name (overrides PALM_MODEL)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "rotating log file (overrides LOG_FILE)")

	cmd.AddCommand(newServeCmd(opts), newReadCmd(opts))
	return cmd
}

// loadConfig applies flag overrides on top of the environment.
func (o *options) loadConfig(extra map[string]string) (config.Config, error) {
	overrides := map[string]string{
		"PALM_PROVIDER": o.provider,
		"PALM_MODEL":    o.model,
		"LOG_LEVEL":     o.logLevel,
		"LOG_FILE":      o.logFile,
	}
	for k, v := range extra {
		overrides[k] = v
	}
	return config.Load(func(key string) string {
		if v := overrides[key]; v != "" {
			return v
		}
		return os.Getenv(key)
	})
}

func newServeCmd(opts *options) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			extra := map[string]string{}
			if port > 0 {
				extra["PORT"] = strconv.Itoa(port)
			}
			cfg, err := opts.loadConfig(extra)
			if err != nil {
				return err
			}
			if _, err := logging.Init(cfg.LogLevel, cfg.LogFile, os.Stderr); err != nil {
				slog.Warn("log file unavailable, logging to stderr only", "err", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			return serve(ctx, net.JoinHostPort("", strconv.Itoa(cfg.Port)), a.Handler)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides PORT)")
	return cmd
}

func serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newReadCmd(opts *options) *cobra.Command {
	var hand, focus string
	cmd := &cobra.Command{
		Use:   "read <image>",
		Short: "Print a reading for a local palm photo as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(nil)
			if err != nil {
				return err
			}
			if _, err := logging.Init(cfg.LogLevel, cfg.LogFile, os.Stderr); err != nil {
				slog.Warn("log file unavailable, logging to stderr only", "err", err)
			}

			image, err := imageDataURI(args[0])
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			reading, err := a.Reading.ProduceReading(cmd.Context(), domain.ReadingRequest{
				Image:        image,
				DominantHand: domain.ParseHand(hand),
				FocusArea:    focus,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), reading)
		},
	}
	cmd.Flags().StringVar(&hand, "hand", "", "dominant hand: left or right")
	cmd.Flags().StringVar(&focus, "focus", "", "what the reading should focus on")
	return cmd
}

var imageMIMETypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".gif":  "image/gif",
}

func imageDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mime, ok := imageMIMETypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s does not look like an image (%s)", path, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
