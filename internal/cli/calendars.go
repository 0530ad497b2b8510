package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var calendarsCmd = &cobra.Command{
	Use:   "calendars",
	Short: "Googleカレンダーの一覧を表示",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireCalendar(); err != nil {
			return err
		}
		calendars, err := application.Calendar.ListCalendars(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, c := range calendars {
			marker := " "
			if c.Primary {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %-40s %s\n", marker, c.ID, c.Summary)
		}
		return nil
	},
}
