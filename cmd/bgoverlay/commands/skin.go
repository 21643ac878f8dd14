package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smoogipooo/osu--Background-Overlay/internal/config"
	"github.com/smoogipooo/osu--Background-Overlay/internal/skin"
	"github.com/smoogipooo/osu--Background-Overlay/internal/skinfile"
	"github.com/smoogipooo/osu--Background-Overlay/internal/window"
	"github.com/spf13/cobra"
)

var skinCmd = &cobra.Command{
	Use:   "skin",
	Short: "Show the active osu! skin",
	Long: `Resolve the skin selected in the osu! configuration file of the current user
and show where its menu background and backup live. Nothing is written.

The install directory is taken from the running osu! process unless
--install-dir is given.`,
	Example: `  # Resolve from the running game
  bgoverlay skin

  # Resolve from an installation without starting the game
  bgoverlay skin --install-dir "C:\Games\osu!"`,
	RunE: runSkin,
}

var (
	installDirFlag string
	userFlag       string
)

func init() {
	rootCmd.AddCommand(skinCmd)
	skinCmd.Flags().StringVar(&installDirFlag, "install-dir", "", "osu! install directory (default: from the running process)")
	skinCmd.Flags().StringVar(&userFlag, "user", "", "user name in the config file name (default: current user)")
}

func runSkin(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()

	installDir, userName, err := resolveInstall(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	ref, err := skin.NewResolver(cfg.SkinsDir).Resolve(installDir, userName)
	if err != nil {
		return err
	}

	fmt.Printf("Install directory: %s\n", installDir)
	fmt.Printf("Config file:       %s\n", skin.ConfigPath(installDir, userName))
	fmt.Printf("Skin state:        %s\n", ref.State)

	switch ref.State {
	case skin.Unresolved:
		fmt.Println("\nNo skin is selected in the configuration file.")
		return nil
	case skin.Default:
		fmt.Println("\nThe default skin is selected; its background cannot be changed.")
		return nil
	}

	guard := skinfile.NewGuard(cfg.BackgroundName, cfg.BackupPrefix, cfg.JPEGQuality)
	fmt.Printf("Skin:              %s\n", ref.Name)
	fmt.Printf("Skin directory:    %s\n", ref.Dir)
	fmt.Printf("Background:        %s%s\n", guard.TargetPath(ref.Dir), presence(guard.TargetPath(ref.Dir)))
	fmt.Printf("Backup:            %s%s\n", guard.BackupPath(ref.Dir), presence(guard.BackupPath(ref.Dir)))
	return nil
}

// resolveInstall returns the install directory and user name, from flags
// or from the running target process.
func resolveInstall(ctx context.Context, cfg *config.Config) (string, string, error) {
	userName := userFlag
	if userName == "" {
		var err error
		if userName, err = skin.CurrentUser(); err != nil {
			return "", "", err
		}
	}

	if installDirFlag != "" {
		return installDirFlag, userName, nil
	}

	finder := window.NewProcessFinder()
	for _, name := range cfg.ProcessNames {
		procs, err := finder.Find(ctx, name)
		if err != nil {
			return "", "", err
		}
		if len(procs) == 0 {
			continue
		}
		if procs[0].Exe == "" {
			return "", "", fmt.Errorf("cannot read the executable path of %s (pid %d), use --install-dir", procs[0].Name, procs[0].PID)
		}
		return filepath.Dir(procs[0].Exe), userName, nil
	}
	return "", "", fmt.Errorf("%w: start osu! or pass --install-dir", window.ErrProcessNotFound)
}

func presence(path string) string {
	if _, err := os.Stat(path); err != nil {
		return " (missing)"
	}
	return ""
}
