package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	resetIncludeDatabase    bool
	resetIncludeScreenshots bool
	resetForce              bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove saved sessions (and optionally all data)",
	Long: `Reset PlutoDesk by removing persistent files.

By default, only the sessions file (and its backup) is removed. Folders,
courses, sets, problems and screenshots are kept.

Stop the server first; a running server would write its sessions back on
the next change.

Optional flags:
  --include-database     Also remove the catalog database
  --include-screenshots  Also remove the screenshots directory
  --force                Skip confirmation prompt

Examples:
  # Reset sessions only (interactive confirmation)
  plutodesk reset

  # Remove everything without prompting
  plutodesk reset --include-database --include-screenshots --force`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetIncludeDatabase, "include-database", false, "Also remove the catalog database")
	resetCmd.Flags().BoolVar(&resetIncludeScreenshots, "include-screenshots", false, "Also remove the screenshots directory")
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "Skip confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

type resetTarget struct {
	path string
	desc string
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	errOut := cmd.ErrOrStderr()

	targets := []resetTarget{
		{cfg.Sessions.File, "sessions file"},
		{cfg.Sessions.File + ".bak", "sessions backup"},
	}
	if resetIncludeDatabase {
		targets = append(targets,
			resetTarget{cfg.Database.Path, "catalog database"},
			resetTarget{cfg.Database.Path + "-wal", "database WAL"},
			resetTarget{cfg.Database.Path + "-shm", "database shared memory"},
		)
	}
	if resetIncludeScreenshots {
		targets = append(targets, resetTarget{cfg.Screenshots.Dir, "screenshots"})
	}

	var existing []resetTarget
	for _, t := range targets {
		if _, err := os.Stat(t.path); err == nil {
			existing = append(existing, t)
		}
	}
	if len(existing) == 0 {
		fmt.Fprintln(errOut, "Nothing to reset: no data files found.")
		return nil
	}

	fmt.Fprintln(errOut, "The following will be removed:")
	for _, t := range existing {
		fmt.Fprintf(errOut, "  - %s (%s)\n", t.path, t.desc)
	}

	if !resetForce {
		fmt.Fprint(errOut, "\nProceed? [y/N] ")
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if a := strings.TrimSpace(answer); a != "y" && a != "Y" {
			fmt.Fprintln(errOut, "Aborted.")
			return nil
		}
	}

	failed := 0
	for _, t := range existing {
		if err := os.RemoveAll(t.path); err != nil {
			fmt.Fprintf(errOut, "  ERROR removing %s: %v\n", t.path, err)
			failed++
		} else {
			fmt.Fprintf(errOut, "  Removed %s\n", t.path)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d path(s) could not be removed", failed)
	}

	fmt.Fprintln(errOut, "\nReset complete.")
	return nil
}
