package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/sectorrotation/internal/audit"
	"github.com/wonny/sectorrotation/internal/store"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "저장된 백테스트 결과 조회",
	Long: `저장된 백테스트 실행 결과를 조회하거나 내보냅니다.

Subcommands:
  list   - 최근 실행 목록
  show   - 실행 보고서 출력
  export - JSON 보고서 / equity plot 저장

Example:
  go run ./cmd/rotation runs list --limit 10
  go run ./cmd/rotation runs show <run_id> --schedule
  go run ./cmd/rotation runs export <run_id> --json out/run.json --plot out/equity.png`,
}

var (
	runsListCmd = &cobra.Command{
		Use:   "list",
		Short: "최근 실행 목록",
		RunE:  listRuns,
	}

	runsShowCmd = &cobra.Command{
		Use:   "show [run_id]",
		Short: "실행 보고서 출력",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	runsExportCmd = &cobra.Command{
		Use:   "export [run_id]",
		Short: "JSON 보고서 / equity plot 저장",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	runsLimit    int
	runsSchedule bool
	runsJSON     string
	runsPlot     string
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsExportCmd)

	runsListCmd.Flags().IntVar(&runsLimit, "limit", store.DefaultListLimit, "max runs to list")
	runsShowCmd.Flags().BoolVar(&runsSchedule, "schedule", false, "print every rebalance")
	runsExportCmd.Flags().StringVar(&runsJSON, "json", "", "JSON report path")
	runsExportCmd.Flags().StringVar(&runsPlot, "plot", "", "equity plot path (png|svg|pdf)")
}

func listRuns(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.runStore(cmd.Context())
	if err != nil {
		return err
	}
	list, err := runs.List(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}

	audit.NewConsoleWriter(cmd.OutOrStdout(), false).PrintRuns(list)
	return nil
}

func showRun(cmd *cobra.Command, args []string) error {
	report, closeFn, err := loadReport(cmd, args[0])
	if err != nil {
		return err
	}
	defer closeFn()

	audit.NewConsoleWriter(cmd.OutOrStdout(), runsSchedule).Print(report)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	if runsJSON == "" && runsPlot == "" {
		return fmt.Errorf("nothing to export: pass --json and/or --plot")
	}

	report, closeFn, err := loadReport(cmd, args[0])
	if err != nil {
		return err
	}
	defer closeFn()

	if runsJSON != "" {
		if err := audit.SaveJSON(runsJSON, report); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", runsJSON)
	}
	if runsPlot != "" {
		if err := audit.SavePlot(runsPlot, report); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Plot written to %s\n", runsPlot)
	}
	return nil
}

func loadReport(cmd *cobra.Command, runID string) (*audit.Report, func(), error) {
	a, err := setup()
	if err != nil {
		return nil, nil, err
	}

	runs, err := a.runStore(cmd.Context())
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	result, err := runs.Get(cmd.Context(), runID)
	if errors.Is(err, store.ErrNotFound) {
		a.Close()
		return nil, nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return audit.NewReport(result), a.Close, nil
}
