package gluvib

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ecology747-sudo/gluvib/internal/store"
)

var settingCmd = &cobra.Command{
	Use:   "setting",
	Short: "Manage stored settings such as the Nightscout URL and token",
}

var settingSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a setting value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s *store.SQLite) error {
			if err := s.SetSetting(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", args[0])
			return nil
		})
	},
}

var settingGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show one setting, or all settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s *store.SQLite) error {
			if len(args) == 1 {
				v, ok, err := s.GetSetting(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("setting %q is not set", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), displaySetting(args[0], v))
				return nil
			}
			all, err := s.ListSettings(cmd.Context())
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(all))
			for k := range all {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, displaySetting(k, all[k]))
			}
			return nil
		})
	},
}

// displaySetting masks the Nightscout token.
func displaySetting(key, value string) string {
	if key != store.SettingNightscoutToken {
		return value
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

func init() {
	rootCmd.AddCommand(settingCmd)
	settingCmd.AddCommand(settingSetCmd, settingGetCmd)
}
