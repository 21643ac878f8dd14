package commands

import (
	"errors"
	"fmt"

	"github.com/smoogipooo/osu--Background-Overlay/internal/skin"
	"github.com/smoogipooo/osu--Background-Overlay/internal/skinfile"
	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the original menu background of the active skin",
	Long: `Copy the backup made before the first overwrite back over the menu background
of the active skin. The backup itself is kept.

Stop "bgoverlay run" first, otherwise the next window move or wallpaper change
overwrites the restored background again.`,
	Example: `  # Restore the skin selected in the running game
  bgoverlay restore

  # Restore for an installation that is not running
  bgoverlay restore --install-dir "C:\Games\osu!"`,
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().StringVar(&installDirFlag, "install-dir", "", "osu! install directory (default: from the running process)")
	restoreCmd.Flags().StringVar(&userFlag, "user", "", "user name in the config file name (default: current user)")
}

func runRestore(cmd *cobra.Command, args []string) error {
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
	if ref.State != skin.Custom {
		return fmt.Errorf("no custom skin selected (state: %s)", ref.State)
	}

	guard := skinfile.NewGuard(cfg.BackgroundName, cfg.BackupPrefix, cfg.JPEGQuality)
	if err := guard.Restore(ref.Dir); err != nil {
		if errors.Is(err, skinfile.ErrNoBackup) {
			return fmt.Errorf("skin %q has no backup at %s", ref.Name, guard.BackupPath(ref.Dir))
		}
		return err
	}

	fmt.Printf("✓ Restored %s from %s\n", guard.TargetPath(ref.Dir), guard.BackupPath(ref.Dir))
	return nil
}
