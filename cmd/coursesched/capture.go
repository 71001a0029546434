package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"coursesched/internal/capture"
	appLog "coursesched/internal/log"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Save a PNG screenshot of a running planner page",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		opts := capture.Options{}
		opts.URL, _ = cmd.Flags().GetString("url")
		opts.OutputPath, _ = cmd.Flags().GetString("output")
		opts.Term, _ = cmd.Flags().GetString("term")
		opts.Width, _ = cmd.Flags().GetInt("width")
		opts.Height, _ = cmd.Flags().GetInt("height")
		opts.Timeout, _ = cmd.Flags().GetDuration("timeout")
		if opts.URL == "" {
			opts.URL = "http://" + cfg.Listen + "/"
		}

		appLog.Info("capturing page", "url", opts.URL, "term", opts.Term)
		if err := capture.CapturePNG(cmd.Context(), opts); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", opts.OutputPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().String("url", "", "Page URL (defaults to the configured listen address)")
	captureCmd.Flags().StringP("output", "o", "planner.png", "Output PNG path")
	captureCmd.Flags().String("term", "", "Term to switch to before capturing (Fall, Winter, Spring)")
	captureCmd.Flags().Int("width", capture.DefaultWidth, "Viewport width")
	captureCmd.Flags().Int("height", capture.DefaultHeight, "Viewport height")
	captureCmd.Flags().Duration("timeout", capture.DefaultTimeout, "Overall capture timeout")
}
