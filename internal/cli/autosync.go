package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var autoSyncCmd = &cobra.Command{
	Use:       "autosync [on|off]",
	Short:     "自動同期の有効/無効を表示・変更",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if len(args) == 1 {
			var enabled bool
			switch args[0] {
			case "on":
				enabled = true
			case "off":
				enabled = false
			default:
				return fmt.Errorf("on または off を指定してください: %s", args[0])
			}
			if err := application.Settings.SetAutoSync(ctx, enabled); err != nil {
				return err
			}
		}

		enabled, err := application.Settings.AutoSync(ctx)
		if err != nil {
			return err
		}
		state := "off"
		if enabled {
			state = "on"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Auto-sync: %s (schedule %q)\n", state, application.Config.AutoSyncCron)
		return nil
	},
}
