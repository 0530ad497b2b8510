package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
	"github.com/k-negishi/crm-calendar-sync/internal/query"
)

const dateLayout = "2006-01-02"

var eventsCmd = &cobra.Command{
	Use:     "events",
	Aliases: []string{"ls"},
	Short:   "導出したイベントを表示",
	Long: `CRMレコードから導出したイベントを表示します。

Examples:
  crmcal events --search ana
  crmcal events --date 2024-06-10
  crmcal events --date 2024-06-10 --remote
  crmcal events --upcoming 10`,
	RunE: runEvents,
}

var (
	eventsSearch   string
	eventsDate     string
	eventsUpcoming int
	eventsRemote   bool
)

func init() {
	eventsCmd.Flags().StringVarP(&eventsSearch, "search", "s", "", "Filter by title or description")
	eventsCmd.Flags().StringVarP(&eventsDate, "date", "d", "", "Show events on a day (YYYY-MM-DD)")
	eventsCmd.Flags().IntVarP(&eventsUpcoming, "upcoming", "u", -1, "Show upcoming events (0 = all)")
	eventsCmd.Flags().BoolVar(&eventsRemote, "remote", false, "Read the day from Google Calendar instead (requires --date)")
}

func runEvents(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	loc := application.Location

	var day time.Time
	if eventsDate != "" {
		d, err := time.ParseInLocation(dateLayout, eventsDate, loc)
		if err != nil {
			return fmt.Errorf("日付はYYYY-MM-DD形式で指定してください: %w", err)
		}
		day = d
	}

	if eventsRemote {
		if day.IsZero() {
			return fmt.Errorf("--remote には --date が必要です")
		}
		if err := requireCalendar(); err != nil {
			return err
		}
		events, err := application.Calendar.GetEvents(ctx, day)
		if err != nil {
			return err
		}
		printEvents(cmd.OutOrStdout(), events)
		return nil
	}

	events, err := application.Events.Execute(ctx)
	if err != nil {
		return err
	}
	events = query.FilterBySearch(events, eventsSearch)
	if !day.IsZero() {
		events = query.EventsOnDate(events, day)
	}
	if eventsUpcoming >= 0 {
		events = query.Upcoming(events, time.Now().In(loc), eventsUpcoming)
	}
	printEvents(cmd.OutOrStdout(), events)
	return nil
}

func printEvents(w io.Writer, events []domain.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}
	for _, ev := range events {
		fmt.Fprintln(w, formatEvent(ev))
	}
}

func formatEvent(ev domain.Event) string {
	var b strings.Builder
	b.WriteString(ev.Date.Format(dateLayout))
	if ev.IsAllDay() {
		b.WriteString("       ")
	} else {
		b.WriteString(" " + ev.Time + " ")
	}
	if ev.Priority == domain.PriorityHigh {
		b.WriteString("! ")
	} else {
		b.WriteString("  ")
	}
	label := ev.Meta().Label
	if label == "" {
		label = string(ev.Type)
	}
	fmt.Fprintf(&b, "%-12s %s", "["+label+"]", ev.Title)
	if ev.ID != "" {
		fmt.Fprintf(&b, "  (%s)", ev.ID)
	}
	return b.String()
}
