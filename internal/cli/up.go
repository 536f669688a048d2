package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/happyhackingspace/rapgen"
	"github.com/spf13/cobra"
)

const releaseSlug = "happyhackingspace/rapgen"

func (c *CLI) newUpCommand() *cobra.Command {
	var checkOnly bool
	var modelOnly bool

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Update the binary and the cached model to the latest release",
		Example: `  rapgen up
  rapgen up --check
  rapgen up --model-only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !modelOnly {
				updated, err := c.updateBinary(cmd.Context(), checkOnly)
				if err != nil {
					return err
				}
				if checkOnly || !updated {
					return nil
				}
			}
			dir, err := rapgen.ModelDir()
			if err != nil {
				return err
			}
			return refreshModel(modelURL, filepath.Join(dir, rapgen.ModelFile), modelOnly)
		},
	}
	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only report whether a newer release exists")
	cmd.Flags().BoolVar(&modelOnly, "model-only", false, "Refresh the cached model without updating the binary")
	return cmd
}

// updateBinary replaces the running executable with the latest release and
// reports whether it did.
func (c *CLI) updateBinary(ctx context.Context, checkOnly bool) (bool, error) {
	current := c.version
	if current == "dev" {
		current = "0.0.0"
	}

	updater, err := selfupdate.NewUpdater(selfupdate.Config{})
	if err != nil {
		return false, err
	}
	latest, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(releaseSlug))
	if err != nil {
		return false, fmt.Errorf("detect latest version: %w", err)
	}
	if !found {
		return false, fmt.Errorf("no release of %s found", releaseSlug)
	}
	if latest.LessOrEqual(current) {
		fmt.Printf("rapgen %s is the latest release\n", c.version)
		return false, nil
	}
	if checkOnly {
		fmt.Printf("rapgen %s is available (running %s)\n", latest.Version(), c.version)
		return false, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return false, err
	}
	slog.Info("Updating binary", "from", c.version, "to", latest.Version(), "path", exe)
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return false, fmt.Errorf("update: %w", err)
	}
	fmt.Printf("Updated to %s\n", latest.Version())
	return true, nil
}

// refreshModel downloads the published bundle next to dest and swaps it in
// once it loads. Without force, a missing cached model is left missing.
func refreshModel(url, dest string, force bool) error {
	if _, err := os.Stat(dest); err != nil && !force {
		slog.Debug("No cached model to refresh", "path", dest)
		return nil
	}
	tmp := dest + ".tmp"
	if err := downloadFile(url, tmp); err != nil {
		return err
	}
	if _, err := rapgen.Load(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("downloaded model is unusable: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace cached model: %w", err)
	}
	slog.Info("Cached model updated", "path", dest)
	return nil
}
