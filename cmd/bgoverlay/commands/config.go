package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/smoogipooo/osu--Background-Overlay/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage bgoverlay configuration",
	Long:  `View and manage bgoverlay configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current bgoverlay configuration.`,
	Example: `  # Show configuration as YAML (default)
  bgoverlay config show

  # Show configuration as JSON
  bgoverlay config show --format json`,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value.

Durations use Go syntax (100ms, 1s). Lists are comma separated.`,
	Example: `  # Wait longer for slow wallpaper writers
  bgoverlay config set debounce 2s

  # Point at the wallpaper file on Linux
  bgoverlay config set wallpaper_path ~/Pictures/wall.jpg

  # Search for a differently named build
  bgoverlay config set process_names "osu!,osu!cuttingedge"`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Long:  `Get a specific configuration value.`,
	Example: `  # Get the debounce delay
  bgoverlay config get debounce

  # Get log level
  bgoverlay config get log_level`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default configuration",
	Long: `Overwrite the configuration file with the built-in defaults.

The skin files are not touched. Use "bgoverlay restore" for that.`,
	RunE: runConfigReset,
}

var formatFlag string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configResetCmd)

	configShowCmd.Flags().StringVarP(&formatFlag, "format", "f", "yaml", "output format (yaml or json)")
}

// openConfig loads the file selected by --config without applying flag overrides
func openConfig() (*config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return configMgr, nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configMgr, err := openConfig()
	if err != nil {
		return err
	}

	return printConfig(os.Stdout, configMgr.Get(), formatFlag)
}

func printConfig(w io.Writer, cfg *config.Config, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		enc.SetIndent(2)
		return enc.Encode(cfg)
	}
	return fmt.Errorf("unsupported format: %s (use 'yaml' or 'json')", format)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	configMgr, err := openConfig()
	if err != nil {
		return err
	}

	if err := configMgr.Set(key, value); err != nil {
		return err
	}

	if err := configMgr.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("✅ %s = %s (takes effect on the next run)\n", key, value)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	configMgr, err := openConfig()
	if err != nil {
		return err
	}

	value, err := configMgr.Lookup(args[0])
	if err != nil {
		return err
	}

	fmt.Println(value)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configMgr, err := openConfig()
	if err != nil {
		return err
	}

	fmt.Println(configMgr.GetConfigPath())
	return nil
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	configMgr, err := openConfig()
	if err != nil {
		return err
	}

	// Update validates and saves
	if err := configMgr.Update(config.Defaults()); err != nil {
		return err
	}

	fmt.Printf("✅ Defaults written to %s\n", configMgr.GetConfigPath())
	return nil
}
