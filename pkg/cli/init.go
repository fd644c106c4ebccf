package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fissio/fissio/pkg/config"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default fissio.config.json",
		Long: `Write a fissio.config.json with the default engine tunables to the working
directory, as a starting point for customization.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}

func runInit(force bool) error {
	path := filepath.Join(workDir, "fissio.config.json")

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	mgr := config.NewManager()
	if err := mgr.SaveConfig(mgr.GetDefaultConfig(), path); err != nil {
		return err
	}

	printSuccess(fmt.Sprintf("Wrote %s", path))
	return nil
}
