package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"coursesched/internal/ics"
	"coursesched/internal/planner"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write an .ics calendar for a set of course IDs",
	Long: `Select the given course IDs in order, exactly as the planner page would,
and write the selection to an iCalendar file. A course that conflicts with
an earlier pick is rejected.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ids, _ := cmd.Flags().GetStringSlice("course")
		output, _ := cmd.Flags().GetString("output")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		terms, err := cfg.TermRanges()
		if err != nil {
			return err
		}

		loader := newLoader(cfg)
		if err := loader.Run(cmd.Context()); err != nil {
			return fmt.Errorf("fetch schedule: %w", err)
		}
		sched, _ := loader.Current()

		sess := planner.NewSession("cli", cfg.Term())
		for _, id := range ids {
			if _, err := planner.Toggle(sched, sess, id); err != nil {
				var conflictErr *planner.ConflictError
				if errors.As(err, &conflictErr) {
					return fmt.Errorf("cannot add %s: %w", id, err)
				}
				return err
			}
		}

		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()

		skipped, err := ics.Write(file, sess.Selection.Courses(), ics.Options{
			Terms:    terms,
			Location: cfg.Location(),
		})
		if err != nil {
			return fmt.Errorf("failed to generate ICS: %w", err)
		}

		out := cmd.OutOrStdout()
		warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		for _, s := range skipped {
			fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("skipped %s: %s", s.Course.Label(), s.Reason)))
		}
		fmt.Fprintf(out, "Successfully exported %d courses to %s\n", sess.Selection.Len()-len(skipped), output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringSliceP("course", "i", nil, "Course ID to select (repeatable, e.g. -i F213 -i W211)")
	exportCmd.Flags().StringP("output", "o", "schedule.ics", "Output file path")
	_ = exportCmd.MarkFlagRequired("course")
}
