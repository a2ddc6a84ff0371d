package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/parsiad/tbman"
	"github.com/parsiad/tbman/internal/web"
)

// httpShutdownTimeout bounds draining of in-flight control requests.
const httpShutdownTimeout = 5 * time.Second

var flags struct {
	port        int
	lowPort     int
	highPort    int
	host        string
	session     string
	tensorboard string
	stopTimeout time.Duration
}

var rootCmd = &cobra.Command{
	Use:   "tbman",
	Short: "Supervise TensorBoard instances behind one web page",
	Long: `tbman launches one TensorBoard process per configuration, each on its own
port, and serves a web page for starting and stopping them. Configurations
are kept in a session file and relaunched on the next run.`,
	SilenceUsage: true,
	RunE:         run,
}

// Execute runs the root command, exiting non-zero on any startup or runtime
// failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.Flags()
	f.IntVar(&flags.port, "port", tbman.DefaultWebPort, "port the control web page listens on")
	f.IntVar(&flags.lowPort, "low-port", tbman.DefaultPortLow, "inclusive lower bound of the TensorBoard port range")
	f.IntVar(&flags.highPort, "high-port", tbman.DefaultPortHigh, "exclusive upper bound of the TensorBoard port range")
	f.StringVar(&flags.host, "host", tbman.DefaultHost, "address TensorBoard instances and the web page bind to")
	f.StringVar(&flags.session, "session", tbman.DefaultSessionPath(), "session file path")
	f.StringVar(&flags.tensorboard, "tensorboard", tbman.DefaultTensorBoardBinary, "TensorBoard executable")
	f.DurationVar(&flags.stopTimeout, "stop-timeout", tbman.DefaultStopTimeout, "per-instance stop timeout")
}

// validateFlags checks the user-supplied flag values before they reach the
// library options, which treat invalid input as a programmer error and
// panic. Reports every violation so the user can fix the command line in
// one pass.
func validateFlags() error {
	var errs []error

	if flags.host == "" {
		errs = append(errs, errors.New("--host must not be empty"))
	}
	if flags.port <= 0 {
		errs = append(errs, fmt.Errorf("--port must be positive, got %d", flags.port))
	}
	if flags.lowPort <= 0 {
		errs = append(errs, fmt.Errorf("--low-port must be positive, got %d", flags.lowPort))
	}
	if flags.highPort <= flags.lowPort {
		errs = append(errs, fmt.Errorf("--high-port must be greater than --low-port, got [%d, %d)", flags.lowPort, flags.highPort))
	}
	if flags.session == "" {
		errs = append(errs, errors.New("--session must not be empty"))
	}
	if flags.tensorboard == "" {
		errs = append(errs, errors.New("--tensorboard must not be empty"))
	}
	if flags.stopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("--stop-timeout must be positive, got %s", flags.stopTimeout))
	}

	return errors.Join(errs...)
}

func run(cmd *cobra.Command, _ []string) error {
	if err := validateFlags(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	tbman.SetLogger(logger.With("component", "tbman"))

	mgr, err := tbman.New(
		tbman.WithHost(flags.host),
		tbman.WithPortRange(flags.lowPort, flags.highPort),
		tbman.WithSessionPath(flags.session),
		tbman.WithTensorBoardBinary(flags.tensorboard),
		tbman.WithStopTimeout(flags.stopTimeout),
	)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := &http.Server{
		Addr:              net.JoinHostPort(flags.host, strconv.Itoa(flags.port)),
		Handler:           web.NewHandler(mgr, logger, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("control interface listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve control interface: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		return srv.Shutdown(drainCtx)
	})

	err = g.Wait()

	// The session is saved before any instance stops, so a failure here
	// never loses configurations that were running at signal time.
	if shutdownErr := mgr.Shutdown(); shutdownErr != nil {
		logger.Error("shutdown failed", "error", shutdownErr)
		if err == nil {
			err = shutdownErr
		}
	}
	return err
}
