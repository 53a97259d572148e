package main

import (
	"github.com/spf13/cobra"
)

var analyzeSkillsCmd = &cobra.Command{
	Use:   "analyze-skills <user_test_id>",
	Short: "Extract and store a user's skills and knowledge from their assessment",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeSkills,
}

func init() {
	rootCmd.AddCommand(analyzeSkillsCmd)
}

func runAnalyzeSkills(cmd *cobra.Command, args []string) error {
	userTestID, err := parseUserTestID(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	a, err := setup(ctx, out, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	us, err := a.svc.AnalyzeSkills(ctx, userTestID)
	if err != nil {
		return err
	}
	return emit(out, us, func() { a.printer.PrintUserSkills(us) })
}
