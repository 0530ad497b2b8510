package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/k-negishi/crm-calendar-sync/internal/ics"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "全イベントをICSファイルに書き出す",
	Long: `導出した全イベントをiCalendar (RFC 5545) 形式で書き出します。

Examples:
  crmcal export                 # crm-calendario-<timestamp>.ics
  crmcal export -o agenda.ics
  crmcal export -o -            # stdout`,
	RunE: runExport,
}

var exportOutput string

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (- for stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	events, err := application.Events.Execute(cmd.Context())
	if err != nil {
		return err
	}

	now := time.Now()
	data := ics.Export(events, now)

	if exportOutput == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}

	path := exportOutput
	if path == "" {
		path = ics.FileName(now)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("ICSファイルの書き込みに失敗しました: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %d events exported to %s\n", len(events), path)
	return nil
}
