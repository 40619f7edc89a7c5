package gluvib

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ecology747-sudo/gluvib/internal/model"
	"github.com/ecology747-sudo/gluvib/internal/store"
)

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Manage daily energy and macro targets",
}

var (
	targetKcal    float64
	targetCarbs   float64
	targetProtein float64
	targetFat     float64
	targetDate    string
)

var targetSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set daily targets with an effective date",
	RunE: func(cmd *cobra.Command, args []string) error {
		t := model.MacroTargets{
			EffectiveDate: targetDate,
			Kcal:          targetKcal,
			CarbsG:        targetCarbs,
			ProteinG:      targetProtein,
			FatG:          targetFat,
		}
		return withStore(cmd.Context(), func(s *store.SQLite) error {
			if err := s.SetTargets(cmd.Context(), t); err != nil {
				return err
			}
			effective := t.EffectiveDate
			if effective == "" {
				effective = "today"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set targets effective %s\n", effective)
			return nil
		})
	},
}

var targetShowDate string

var targetShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show targets in effect on a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s *store.SQLite) error {
			day, err := parseDayArg("date", targetShowDate, model.DayOf(s.Now()))
			if err != nil {
				return err
			}
			t, err := s.CurrentTargets(cmd.Context(), day)
			if err != nil {
				return err
			}
			if t == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No targets configured")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Effective: %s\nCalories: %.0f\nCarbs: %.1fg\nProtein: %.1fg\nFat: %.1fg\n", t.EffectiveDate, t.Kcal, t.CarbsG, t.ProteinG, t.FatG)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(targetCmd)
	targetCmd.AddCommand(targetSetCmd, targetShowCmd)

	targetSetCmd.Flags().Float64Var(&targetKcal, "kcal", 0, "Daily calorie target")
	targetSetCmd.Flags().Float64Var(&targetCarbs, "carbs", 0, "Daily carbs target (g)")
	targetSetCmd.Flags().Float64Var(&targetProtein, "protein", 0, "Daily protein target (g)")
	targetSetCmd.Flags().Float64Var(&targetFat, "fat", 0, "Daily fat target (g)")
	targetSetCmd.Flags().StringVar(&targetDate, "effective-date", "", "Effective date YYYY-MM-DD (default today)")

	targetShowCmd.Flags().StringVar(&targetShowDate, "date", "", "Day YYYY-MM-DD (default today)")
}
