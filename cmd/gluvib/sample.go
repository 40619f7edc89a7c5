package gluvib

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ecology747-sudo/gluvib/internal/model"
	"github.com/ecology747-sudo/gluvib/internal/store"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Record and inspect daily samples",
}

var (
	sampleMetric string
	sampleDate   string
	sampleValue  float64
)

var sampleAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record one daily value for a metric",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("value") {
			return fmt.Errorf("--value is required")
		}
		date := sampleDate
		if strings.TrimSpace(date) == "" {
			date = todayString()
		}
		return withStore(cmd.Context(), func(s *store.SQLite) error {
			if err := s.AddSample(cmd.Context(), store.SampleInput{Metric: sampleMetric, Date: date, Value: sampleValue}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s = %g on %s\n", strings.ToLower(strings.TrimSpace(sampleMetric)), sampleValue, date)
			return nil
		})
	},
}

var sampleImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import samples from a YAML document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer f.Close()

		return withStore(cmd.Context(), func(s *store.SQLite) error {
			report, err := s.ImportSamples(cmd.Context(), f)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(report.Metrics))
			for _, m := range report.Metrics {
				names = append(names, string(m))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d samples (%s) batch=%s\n", report.Imported, strings.Join(names, ", "), report.BatchID)
			return nil
		})
	},
}

var (
	listMetric string
	listFrom   string
	listTo     string
	listLimit  int
)

var sampleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored samples",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := store.ListFilter{Limit: listLimit}
		if strings.TrimSpace(listMetric) != "" {
			m, err := model.ParseMetric(listMetric)
			if err != nil {
				return err
			}
			f.Metric = m
		}
		var err error
		if f.From, err = parseDayArg("from", listFrom, model.Day{}); err != nil {
			return err
		}
		if f.To, err = parseDayArg("to", listTo, model.Day{}); err != nil {
			return err
		}
		return withStore(cmd.Context(), func(s *store.SQLite) error {
			rows, err := s.ListSamples(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "DATE\tMETRIC\tVALUE\tSOURCE")
			for _, r := range rows {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%g\t%s\n", r.Day, r.Metric, r.Value, r.Source)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(sampleCmd)
	sampleCmd.AddCommand(sampleAddCmd, sampleImportCmd, sampleListCmd)

	sampleAddCmd.Flags().StringVar(&sampleMetric, "metric", "", "Metric name (e.g. steps, carbs, weight)")
	sampleAddCmd.Flags().StringVar(&sampleDate, "date", "", "Day YYYY-MM-DD (default today)")
	sampleAddCmd.Flags().Float64Var(&sampleValue, "value", 0, "Daily value in display units (e.g. 81.2 for weight in kg)")
	_ = sampleAddCmd.MarkFlagRequired("metric")

	sampleListCmd.Flags().StringVar(&listMetric, "metric", "", "Only this metric")
	sampleListCmd.Flags().StringVar(&listFrom, "from", "", "First day YYYY-MM-DD")
	sampleListCmd.Flags().StringVar(&listTo, "to", "", "Last day YYYY-MM-DD")
	sampleListCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum rows (0 for all)")
}
