package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "今日と明日の予定をLINEに送信",
	RunE: func(cmd *cobra.Command, args []string) error {
		uc, ok := application.Notifier()
		if !ok {
			return fmt.Errorf("LINE_CHANNEL_ACCESS_TOKEN と LINE_USER_ID を設定してください")
		}

		today := time.Now().In(application.Location)
		skipped, err := uc.Execute(cmd.Context(), today, today.AddDate(0, 0, 1))
		if err != nil {
			return err
		}
		if skipped {
			fmt.Fprintln(cmd.OutOrStdout(), "No events today or tomorrow, notification skipped.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ notification sent")
		return nil
	},
}
