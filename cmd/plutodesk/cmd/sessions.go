package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/plutodesk/plutodesk/internal/domain/session"
	"github.com/plutodesk/plutodesk/internal/port/inbound"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List, create, start, end and delete sessions",
	Long: `Manage study sessions directly in the sessions file.

A running server picks the changes up through its file watcher.

Examples:
  plutodesk sessions list
  plutodesk sessions create --folder Math --course Calculus --set "Week 1"
  plutodesk sessions start 3f8c1f0e-5a3b-4c53-9d0e-2b8f4f0b7c11
  plutodesk sessions end`,
}

var sessionsJSON bool

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			views, err := a.sessions.List(ctx)
			if err != nil {
				return err
			}
			var activeID uuid.UUID
			if rec, ok := a.sessions.ActiveSession(ctx); ok {
				activeID = rec.ID
			}
			if sessionsJSON {
				return writeJSON(cmd.OutOrStdout(), views)
			}
			return writeSessionTable(cmd.OutOrStdout(), views, activeID)
		})
	},
}

var sessionsActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "Show the active session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			view, err := a.sessions.Active(ctx)
			if err != nil {
				return err
			}
			if sessionsJSON {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			if view == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No active session")
				return nil
			}
			return writeSessionTable(cmd.OutOrStdout(), []inbound.SessionView{*view}, view.ID)
		})
	},
}

var createReq inbound.CreateRequest

var sessionsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a session and make it active",
	Long: `Create a session for a folder, course and set, creating any of them that
do not exist yet, and make it the active session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			view, err := a.sessions.CreateAndStart(ctx, createReq)
			if err != nil {
				if errors.Is(err, session.ErrContextExists) {
					return fmt.Errorf("%w; use \"plutodesk sessions start\" with its id", err)
				}
				return err
			}
			if sessionsJSON {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started %s (%s)\n", view.Name, view.ID)
			return nil
		})
	},
}

var sessionsStartCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Make a session active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid session id %q: %w", args[0], err)
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.sessions.Start(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started %s\n", id)
			return nil
		})
	},
}

var sessionsEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End the active session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			ended, err := a.sessions.End(ctx)
			if err != nil {
				return err
			}
			if ended == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No active session")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ended %s\n", ended.Name)
			return nil
		})
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a session",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid session id %q: %w", args[0], err)
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.sessions.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			return nil
		})
	},
}

func init() {
	sessionsCmd.PersistentFlags().BoolVar(&sessionsJSON, "json", false, "Print JSON instead of a table")

	sessionsCreateCmd.Flags().StringVar(&createReq.FolderName, "folder", "", "Folder name (required)")
	sessionsCreateCmd.Flags().StringVar(&createReq.CourseName, "course", "", "Course name (required)")
	sessionsCreateCmd.Flags().StringVar(&createReq.SetName, "set", "", "Set name (required)")
	_ = sessionsCreateCmd.MarkFlagRequired("folder")
	_ = sessionsCreateCmd.MarkFlagRequired("course")
	_ = sessionsCreateCmd.MarkFlagRequired("set")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsActiveCmd, sessionsCreateCmd,
		sessionsStartCmd, sessionsEndCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// withApp loads the configuration, opens the on-disk stores and runs fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, cfg, cliLogger(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSessionTable(w io.Writer, views []inbound.SessionView, activeID uuid.UUID) error {
	if len(views) == 0 {
		_, err := fmt.Fprintln(w, "No sessions")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tFOLDER\tCOURSE\tSET\tLAST USED")
	for _, v := range views {
		marker := ""
		if v.ID == activeID {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			marker, v.ID, v.FolderName, v.CourseName, v.SetName,
			v.LastUsed.Local().Format(time.DateTime))
	}
	return tw.Flush()
}
