package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/adaptive-context/internal/bandit"
	"github.com/danielpatrickdp/adaptive-context/internal/learning"
	"github.com/danielpatrickdp/adaptive-context/internal/metrics"
	"github.com/danielpatrickdp/adaptive-context/internal/oracle"
)

const defaultOracleAddr = "localhost:50071"

var (
	serveAddr        string
	serveMetricsAddr string
)

var oracleCmd = &cobra.Command{
	Use:   "oracle",
	Short: "Decision oracle commands",
}

var oracleServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local Thompson-sampling oracle over gRPC",
	Long: `Serve answers Select and Observe calls from the configured posterior store.
The listen address defaults to oracle.addr, then ` + defaultOracleAddr + `. When a
metrics address is set, Prometheus metrics are exposed on /metrics.`,
	Args: cobra.NoArgs,
	RunE: runOracleServe,
}

func init() {
	rootCmd.AddCommand(oracleCmd)
	oracleCmd.AddCommand(oracleServeCmd)
	oracleServeCmd.Flags().StringVar(&serveAddr, "addr", "", "gRPC listen address")
	oracleServeCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "metrics listen address (overrides metrics.addr)")
}

func runOracleServe(cmd *cobra.Command, args []string) error {
	b, err := openLocalBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	addr := firstNonEmpty(serveAddr, b.cfg.Oracle.Addr, defaultOracleAddr)
	metricsAddr := firstNonEmpty(serveMetricsAddr, b.cfg.Metrics.Addr)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	lcfg := learning.FromConfig(*b.cfg)
	handler := bandit.New(b.store, bandit.Config{
		Learner:      lcfg.Learner,
		BaselineRate: lcfg.Baseline.Rate,
		MinPulls:     lcfg.MinPulls,
		Update:       lcfg.UpdateConfig(),
	}, nil, b.logger)

	srv := grpc.NewServer(grpc.UnaryInterceptor(metricsInterceptor(m)))
	oracle.Register(srv, handler)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var httpSrv *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		httpSrv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				b.logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(lis) }()

	b.logger.Info("oracle serving",
		zap.String("addr", lis.Addr().String()),
		zap.String("learner", lcfg.Learner),
		zap.String("metrics_addr", metricsAddr),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Decision oracle listening on %s\n", lis.Addr())

	var serveErr error
	select {
	case <-ctx.Done():
		b.logger.Info("shutting down oracle")
		srv.GracefulStop()
	case err := <-errCh:
		if err != nil {
			serveErr = fmt.Errorf("serve: %w", err)
		}
	}

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			b.logger.Debug("metrics server shutdown", zap.Error(err))
		}
	}
	return serveErr
}

// metricsInterceptor records call latency per method ("select", "observe").
func metricsInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		m.OracleCall(strings.ToLower(path.Base(info.FullMethod)), start, err)
		return resp, err
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
