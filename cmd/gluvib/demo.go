package gluvib

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ecology747-sudo/gluvib/internal/model"
	"github.com/ecology747-sudo/gluvib/internal/service"
	"github.com/ecology747-sudo/gluvib/internal/store"
)

var (
	demoOffset int
	demoJSON   bool
	demoDays   int
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Show a summary over generated sample data without touching the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		mem := store.NewMemory()
		seedDemo(mem, model.DayOf(time.Now()), demoDays)
		return runSummary(cmd, mem, demoOffset, demoJSON)
	},
}

// seedDemo writes a repeating weekly pattern ending on today.
func seedDemo(m *store.Memory, today model.Day, days int) {
	if days < 1 {
		days = 1
	}
	series := map[model.Metric][]model.DailySample{}
	add := func(metric model.Metric, day model.Day, v float64) {
		series[metric] = append(series[metric], model.DailySample{Date: day, Value: v})
	}
	for i := days - 1; i >= 0; i-- {
		day := today.AddDays(-i)
		w := float64(i % 7)
		add(model.MetricSteps, day, 6500+w*550)
		add(model.MetricExerciseMinutes, day, float64((i%3)*20))
		add(model.MetricActiveEnergy, day, 420+w*30)
		add(model.MetricRestingEnergy, day, 1650)
		add(model.MetricIntakeEnergy, day, 1900+w*60)
		add(model.MetricCarbs, day, 210+w*8)
		add(model.MetricProtein, day, 95+w*2)
		add(model.MetricFat, day, 70+w*3)
		add(model.MetricSleepMinutes, day, 400+w*10)
		add(model.MetricRestingHR, day, 58+w)
		add(model.MetricGlucose, day, 104+w*3)
		add(model.MetricGlucoseCV, day, service.StoredValue(model.MetricGlucoseCV, 24+w*1.5))
		if i%3 == 0 {
			add(model.MetricWeight, day, service.StoredValue(model.MetricWeight, 81.2-float64(i)/30))
			add(model.MetricBodyFat, day, service.StoredValue(model.MetricBodyFat, 22.1))
		}
	}
	for metric, samples := range series {
		m.PutSeries(model.NewDailySeries(metric, samples))
	}
	m.SetTargets(model.MacroTargets{
		EffectiveDate: today.AddDays(-days).String(),
		Kcal:          2200,
		CarbsG:        230,
		ProteinG:      100,
		FatG:          75,
	})
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().IntVar(&demoOffset, "offset", 0, "Selected day: 0 today, -1 yesterday, -2 the day before")
	demoCmd.Flags().BoolVar(&demoJSON, "json", false, "Output as JSON")
	demoCmd.Flags().IntVar(&demoDays, "days", 60, "Days of generated history")
}
