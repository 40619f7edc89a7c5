package gluvib

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ecology747-sudo/gluvib/internal/config"
	"github.com/ecology747-sudo/gluvib/internal/logging"
)

var (
	dbPath     string
	configPath string
	logLevel   string

	cfg = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "gluvib",
	Short: "gluvib turns daily health samples into trends, insights and a nutrition score",
	Long:  "gluvib is a local-first CLI that aggregates daily health samples, classifies the selected day and composes a nutrition insight and score.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			if _, err := logging.ParseLevelStrict(logLevel); err != nil {
				return err
			}
			loaded.Logging.Level = logLevel
		}
		cfg = loaded
		logging.Init(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cmd.ErrOrStderr(),
		})
		return nil
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error, disabled)")
}
