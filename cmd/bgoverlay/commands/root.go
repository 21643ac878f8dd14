package commands

import (
	"fmt"
	"os"

	"github.com/smoogipooo/osu--Background-Overlay/internal/config"
	"github.com/smoogipooo/osu--Background-Overlay/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "bgoverlay",
		Short: "osu! Background Overlay - keep the osu! menu background in sync with your wallpaper",
		Long: `osu! Background Overlay replaces the menu background of the active osu! skin
with the part of your desktop wallpaper that sits behind the osu! window, so the
game looks transparent.

Features:
  • Finds the osu! (or osu!test) process and follows its window
  • Re-crops the background whenever the window moves or the wallpaper changes
  • Backs up the skin's original background before the first overwrite
  • Tells osu! to reload the skin after every update
  • Optional local status API with a live log stream`,
		SilenceUsage: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/bgoverlay/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("status-port", 0, "serve the status API on this localhost port (0 disables)")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("status_port", rootCmd.PersistentFlags().Lookup("status-port"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	viper.SetEnvPrefix("BGOVERLAY")
	viper.AutomaticEnv()
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig opens the config file, applies flag and environment overrides
// and initialises logging from the result.
func loadConfig() (*config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config manager: %w", err)
	}

	if level := viper.GetString("log_level"); level != "" {
		configMgr.SetLogLevel(level)
	}
	if port := viper.GetInt("status_port"); port > 0 {
		configMgr.SetStatusPort(port)
	}

	logger.Init(configMgr.Get().LogLevel, true)
	return configMgr, nil
}
