package gluvib

import (
	"github.com/spf13/cobra"

	"github.com/ecology747-sudo/gluvib/internal/service"
	"github.com/ecology747-sudo/gluvib/internal/store"
)

var refreshJSON bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refetch glucose from Nightscout and show today's summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s *store.SQLite) error {
			p := newPipeline(s, &service.TurnQueue{})
			defer p.Close()
			if err := p.Refresh(cmd.Context()); err != nil {
				return err
			}
			snap, _ := p.Current()
			return renderSnapshot(cmd.OutOrStdout(), snap, refreshJSON)
		})
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().BoolVar(&refreshJSON, "json", false, "Output as JSON")
}
