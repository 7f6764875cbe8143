package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"upload-index/clients"
	"upload-index/walker"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultBaseURL = "https://u.nisemo.no/"

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "upload-index",
		Short: "Print public URLs of uploaded JSON files",
		Long: `upload-index walks an upload directory and prints the public URL
of every .json file under it, one per line, wrapped in <pre> markers.

Each URL is the base URL followed by the file's path relative to the root.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          list,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the listing over HTTP",
		RunE:  serve,
	}
	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Send a HEAD request to every listed URL and report failures",
		RunE:  check,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.upload-index.yaml)")
	rootCmd.PersistentFlags().StringP("root", "r", "", "Upload directory to scan")
	rootCmd.PersistentFlags().StringP("base-url", "b", defaultBaseURL, "Base URL prepended to every relative path")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	checkCmd.Flags().Duration("timeout", clients.DefaultCheckTimeout, "Timeout for each HEAD request")

	// Bind flags to viper
	viper.BindPFlag("index.root", rootCmd.PersistentFlags().Lookup("root"))
	viper.BindPFlag("index.base_url", rootCmd.PersistentFlags().Lookup("base-url"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("check.timeout", checkCmd.Flags().Lookup("timeout"))

	// Bind environment variables
	viper.BindEnv("index.root", "UPLOAD_INDEX_ROOT")
	viper.BindEnv("index.base_url", "UPLOAD_INDEX_BASE_URL")
	viper.BindEnv("log.level", "UPLOAD_INDEX_LOG_LEVEL")

	rootCmd.AddCommand(serveCmd, checkCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".upload-index")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func validation(root, baseURL string) error {
	if root == "" {
		return errors.New("upload root is required (--root or UPLOAD_INDEX_ROOT)")
	}
	if baseURL == "" {
		return errors.New("base URL must not be empty")
	}
	return nil
}

func newLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// setup validates configuration and builds the walker
func setup() (*walker.Walker, *zap.Logger, error) {
	if err := validation(viper.GetString("index.root"), viper.GetString("index.base_url")); err != nil {
		return nil, nil, err
	}

	logger, err := newLogger()
	if err != nil {
		return nil, nil, err
	}

	w := walker.NewWalker(&walker.Dependencies{
		Source: walker.NewOsSource(),
		Log:    logger,
	}, walker.Config{
		BaseURL: viper.GetString("index.base_url"),
	})

	return w, logger, nil
}

func list(cmd *cobra.Command, args []string) error {
	w, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	return w.Write(cmd.Context(), viper.GetString("index.root"), cmd.OutOrStdout())
}

func serve(cmd *cobra.Command, args []string) error {
	w, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              viper.GetString("serve.addr"),
		Handler:           w.Handler(viper.GetString("index.root")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving listing", zap.String("addr", srv.Addr), zap.String("root", viper.GetString("index.root")))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func check(cmd *cobra.Command, args []string) error {
	w, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	paths, err := w.RelativePaths(cmd.Context(), viper.GetString("index.root"))
	if err != nil {
		return err
	}

	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		urls = append(urls, w.PublicURL(p))
	}

	checker := clients.NewURLChecker(viper.GetDuration("check.timeout"))
	results, err := checker.CheckAll(cmd.Context(), urls)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.OK() {
			logger.Debug("url reachable", zap.String("url", res.URL), zap.Int("status", res.StatusCode))
			continue
		}
		failed++
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%v\n", res.URL, res.Err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d URLs failed", failed, len(results))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "all %d URLs reachable\n", len(results))
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
