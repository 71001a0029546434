package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"coursesched/internal/model"
	"coursesched/internal/schedule"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the schedule once and print it by term",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if u, _ := cmd.Flags().GetString("url"); u != "" {
			cfg.ScheduleURL = u
		}

		loader := newLoader(cfg)
		if err := loader.Run(cmd.Context()); err != nil {
			return fmt.Errorf("fetch schedule: %w", err)
		}
		sched, _ := loader.Current()
		printSchedule(cmd, sched, loader.Status())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().String("url", "", "Schedule URL (overrides config if set)")
}

func printSchedule(cmd *cobra.Command, sched model.Schedule, st schedule.Status) {
	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true).Padding(1, 0)
	termStyle := lipgloss.NewStyle().Bold(true).Underline(true)
	idStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	out := cmd.OutOrStdout()
	title := sched.Title
	if st.FromCache {
		title += " (cached)"
	}
	fmt.Fprintln(out, titleStyle.Render(title))

	for _, term := range model.Terms() {
		courses := sched.ForTerm(term)
		if len(courses) == 0 {
			continue
		}
		fmt.Fprintln(out, termStyle.Render(term.String()))
		for _, c := range courses {
			when := c.Meeting.String()
			if c.MeetsErr != nil {
				when = warnStyle.Render(fmt.Sprintf("%q: %v", c.Meets, c.MeetsErr))
			}
			fmt.Fprintf(out, "  %s  %s  %s\n", idStyle.Render(c.ID), c.Label(), when)
		}
		fmt.Fprintln(out)
	}
	if st.Problems > 0 {
		fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("%d course(s) had problems; see log for details", st.Problems)))
	}
}
