package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/plutodesk/plutodesk/internal/port/inbound"
)

var screenshotName string

var screenshotCmd = &cobra.Command{
	Use:   "screenshot <file|->",
	Short: "File an image under the active session",
	Long: `Save a PNG or JPEG as a new problem in the active session's set.

The image is copied to <screenshots dir>/<folder>/<course>/<set>/ and a
problem is recorded in the catalog. Use "-" to read the image from stdin.

Examples:
  plutodesk screenshot ~/Desktop/q3.png --name "Question 3"
  pngpaste - | plutodesk screenshot -`,
	Args: cobra.ExactArgs(1),
	RunE: runScreenshot,
}

func init() {
	screenshotCmd.Flags().StringVar(&screenshotName, "name", "", "Problem name (default: timestamped)")
	rootCmd.AddCommand(screenshotCmd)
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	data, err := readImage(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		p, err := a.capture.SaveScreenshot(ctx, inbound.ScreenshotRequest{
			ProblemName: screenshotName,
			Image:       data,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %q to %s\n", p.Title, p.ImagePath)
		return nil
	})
}

func readImage(stdin io.Reader, src string) ([]byte, error) {
	var data []byte
	var err error
	if src == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("read image: %s is empty", src)
	}
	return data, nil
}
