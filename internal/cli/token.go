package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Googleアクセストークンの管理",
	Long: `Commands:
  crmcal token check          # 現在のトークンを検証
  crmcal token set <token>    # 検証して保存
  crmcal token clear          # 保存済みトークンを削除`,
}

var tokenCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "現在のトークンを検証",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireCalendar(); err != nil {
			return err
		}
		ctx := cmd.Context()
		token := application.Config.GoogleAccessToken
		if token == "" {
			t, err := application.Settings.Token(ctx)
			if err != nil {
				return err
			}
			token = t
		}

		out := cmd.OutOrStdout()
		if !application.Sync.TokenValid(ctx, token) {
			fmt.Fprintln(out, "✗ token is invalid or expired")
			return fmt.Errorf("アクセストークンが無効です")
		}
		fmt.Fprintln(out, "✓ token is valid")
		if p, err := application.Settings.Profile(ctx); err == nil && p != nil && p.Email != "" {
			fmt.Fprintf(out, "  account: %s\n", p.Email)
		}
		return nil
	},
}

var tokenSetCmd = &cobra.Command{
	Use:   "set <token>",
	Short: "トークンを検証して保存",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := application.SaveToken(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ token saved")
		if profile.Email != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  account: %s\n", profile.Email)
		}
		return nil
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "保存済みトークンを削除",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ token cleared")
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenCheckCmd)
	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenClearCmd)
}
