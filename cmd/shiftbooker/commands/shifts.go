package commands

import (
	"fmt"
	"shiftbooker/internal/booker"
	"shiftbooker/lib/serviceutil"
	"shiftbooker/lib/timezone"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(shiftsCmd)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

// planTable lists every resolved label with the row it matched, unmatched
// labels get the most similar row on the page as a hint.
func planTable(plan booker.Plan) table.Writer {
	t := newTable()
	t.AppendHeader(table.Row{"Weekday", "Label", "Found", "Shift ID", "Row / closest row"})
	for _, m := range plan.Matches {
		if m.Found {
			t.AppendRow(table.Row{m.Weekday, m.Label, "yes", m.Id, plan.Opportunity.Page.ShiftRowText(m.Id)})
			continue
		}
		closest, similarity := plan.Opportunity.ClosestShiftRow(m.Label)
		hint := ""
		if closest != "" {
			hint = fmt.Sprintf("%s (%.2f)", closest, similarity)
		}
		t.AppendRow(table.Row{m.Weekday, m.Label, "no", "", hint})
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d to book", len(plan.ShiftIds())), ""})
	return t
}

var shiftsCmd = &cobra.Command{
	Use:   "shifts",
	Short: "Shows which shift rows the config resolves to, without signing up.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, output := setup()

		client, err := booker.Login(cmd.Context(), cfg, output)
		if err != nil {
			serviceutil.Fatal("failed to login", err)
		}
		plan, err := booker.ScrapeShiftIds(cmd.Context(), client, cfg.OpportunityGuid, cfg.Time, timezone.Now())
		if err != nil {
			serviceutil.Fatal("failed to scrape shift ids", err)
		}

		fmt.Println(planTable(plan).Render())
	},
}
