package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "데이터베이스 관리",
	Long: `Postgres 연결 점검 및 스키마 생성.

DATABASE_URL이 설정되지 않으면 실행 결과는 SQLite(STORE_DSN)에 저장됩니다.

Example:
  go run ./cmd/rotation db ping
  go run ./cmd/rotation db migrate`,
}

var (
	dbPingCmd = &cobra.Command{
		Use:   "ping",
		Short: "연결 및 pool 상태 확인",
		RunE:  pingDB,
	}

	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "market / analytics 스키마 생성",
		RunE:  migrateDB,
	}
)

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbPingCmd, dbMigrateCmd)
}

func pingDB(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.Database.Enabled() {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	db, err := a.database(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Healthy:        %v\n", status.Healthy)
	fmt.Fprintf(out, "Response time:  %v\n", status.ResponseTime)
	fmt.Fprintf(out, "Connections:    %d total, %d idle\n", status.TotalConns, status.IdleConns)
	return nil
}

func migrateDB(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.Database.Enabled() {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	// database() applies the schema on connect
	if _, err := a.database(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Schema up to date")
	return nil
}
