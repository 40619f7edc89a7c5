package gluvib

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ecology747-sudo/gluvib/internal/service"
	"github.com/ecology747-sudo/gluvib/internal/store"
)

var (
	summaryOffset int
	summaryJSON   bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show KPIs, trends, insight and nutrition score for a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s *store.SQLite) error {
			return runSummary(cmd, s, summaryOffset, summaryJSON)
		})
	},
}

// runSummary computes one snapshot synchronously and renders it.
func runSummary(cmd *cobra.Command, src service.Source, offset int, asJSON bool) error {
	p := newPipeline(src, &service.TurnQueue{})
	defer p.Close()
	p.ApplySelectedDayOffset(offset)
	snap, ok := p.Current()
	if !ok {
		return fmt.Errorf("could not compute summary (see log for the load error)")
	}
	return renderSnapshot(cmd.OutOrStdout(), snap, asJSON)
}

func renderSnapshot(w io.Writer, snap service.Snapshot, asJSON bool) error {
	if asJSON {
		b, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal summary json: %w", err)
		}
		fmt.Fprintln(w, string(b))
		return nil
	}

	fmt.Fprintf(w, "Date: %s (%s, %s)\n", snap.Date, snap.Context, snap.Phase)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "METRIC\tVALUE\tTRENDS")
	for _, m := range snap.Metrics {
		if !m.HasValue && !hasPeriodData(m) {
			continue
		}
		value := "-"
		if m.HasValue {
			value = m.Display
			if m.Live {
				value += " (live)"
			}
		}
		trends := make([]string, 0, len(m.Periods))
		for _, pa := range m.Periods {
			trends = append(trends, fmt.Sprintf("%s %s", pa.WindowLabel, service.FormatValue(m.PeriodScale.Kind, pa.Value)))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Label, value, strings.Join(trends, " | "))
	}

	n := snap.Nutrition
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Intake: %.0f kcal of %.0f kcal budget (%s)\n", n.IntakeKcal, n.BudgetKcal, n.Energy)
	fmt.Fprintf(w, "Macros: C %.1fg | P %.1fg | F %.1fg (%s)\n", n.Macros.CarbsG, n.Macros.ProteinG, n.Macros.FatG, n.Profile)
	if n.HasTargets {
		fmt.Fprintf(w, "Targets: C %.1fg | P %.1fg | F %.1fg (%s)\n", n.Targets.CarbsG, n.Targets.ProteinG, n.Targets.FatG, n.TargetMatch)
	}
	switch mb := snap.Metabolic; {
	case mb.HasGlucose && mb.HasCV:
		fmt.Fprintf(w, "Glucose: %.0f mg/dL mean, CV %.1f%% (%s)\n", mb.MeanMgDL, mb.CVPercent, mb.Variability)
	case mb.HasGlucose:
		fmt.Fprintf(w, "Glucose: %.0f mg/dL mean\n", mb.MeanMgDL)
	}
	fmt.Fprintf(w, "Score: %d (%s)\n", n.Score.Value, n.Score.Tier)
	if n.Insight.Text != "" {
		fmt.Fprintf(w, "Insight: %s\n", n.Insight.Text)
	}
	return nil
}

func hasPeriodData(m service.MetricView) bool {
	for _, pa := range m.Periods {
		if pa.Value > 0 {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().IntVar(&summaryOffset, "offset", 0, "Selected day: 0 today, -1 yesterday, -2 the day before")
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "Output as JSON")
}
