package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tickermark/internal/store"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the detection toggles",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the stored settings as JSON",
	Args:  cobra.NoArgs,
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set auto-detect or highlight to true or false",
	Long: `set changes one toggle. KEY is "auto-detect" or "highlight";
VALUE is any boolean strconv.ParseBool accepts.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

func openSettings() (*store.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	newLogger(cfg)
	return store.NewSQLiteStore(cfg.Storage.SQLitePath)
}

func runSettingsGet(cmd *cobra.Command, _ []string) error {
	db, err := openSettings()
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := db.GetSettings(cmd.Context())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	v, err := strconv.ParseBool(args[1])
	if err != nil {
		return fmt.Errorf("invalid value %q: want true or false", args[1])
	}

	db, err := openSettings()
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := db.GetSettings(cmd.Context())
	if err != nil {
		return err
	}
	switch args[0] {
	case "auto-detect":
		s.AutoDetectEnabled = v
	case "highlight":
		s.HighlightEnabled = v
	default:
		return fmt.Errorf("unknown setting %q: want auto-detect or highlight", args[0])
	}
	if err := db.SaveSettings(cmd.Context(), s); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %t\n", args[0], v)
	return nil
}
