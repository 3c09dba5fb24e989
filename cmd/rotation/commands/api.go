package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sectorrotation/internal/api"
	"github.com/wonny/sectorrotation/internal/api/handlers"
	"github.com/wonny/sectorrotation/internal/s0_data/collector"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                    - Health check
  GET  /api/runs                  - 저장된 실행 목록
  GET  /api/runs/{id}             - 실행 보고서
  GET  /api/runs/{id}/schedule    - 리밸런스 스케줄
  GET  /api/runs/{id}/equity      - equity curve
  GET  /api/runs/{id}/plot.png    - equity plot
  GET  /api/data/quality          - 캐시 데이터 품질
  POST /api/data/collect          - 데이터 수집 트리거

Example:
  go run ./cmd/rotation api
  go run ./cmd/rotation api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}
	ctx := cmd.Context()

	runs, err := a.runStore(ctx)
	if err != nil {
		return err
	}
	upstream, err := a.fetchSource(ctx)
	if err != nil {
		return err
	}

	csv := a.csvStore()
	col := collector.NewCollector(upstream, csv, nil, a.log)

	router := api.NewRouter(
		handlers.NewRunHandler(runs, a.log),
		handlers.NewDataHandler(a.strategy, csv, nil, col, a.log),
		a.log,
	)
	server := api.New(a.cfg, a.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Server running on http://localhost:%s (Ctrl+C to stop)\n", a.cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.log.Info("Server stopped")
	return nil
}
