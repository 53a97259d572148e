package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	gapsJob    int
	gapsStored bool
)

var gapsCmd = &cobra.Command{
	Use:   "gaps <user_test_id>",
	Short: "Classify a user's skills against job requirements",
	Long: `Classify every required skill and knowledge area as Achieved, Weak or Missing.
Without --job, every posting in the corpus is classified and each result is stored.`,
	Args: cobra.ExactArgs(1),
	RunE: runGaps,
}

func init() {
	gapsCmd.Flags().IntVar(&gapsJob, "job", -1, "Classify a single posting by index")
	gapsCmd.Flags().BoolVar(&gapsStored, "stored", false, "Print the stored record for --job without recomputing")
	rootCmd.AddCommand(gapsCmd)
}

func runGaps(cmd *cobra.Command, args []string) error {
	userTestID, err := parseUserTestID(args[0])
	if err != nil {
		return err
	}
	if gapsStored && gapsJob < 0 {
		return fmt.Errorf("--stored requires --job")
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	a, err := setup(ctx, out, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	if gapsStored {
		rec, err := a.svc.GapRecord(ctx, userTestID, gapsJob)
		if err != nil {
			return err
		}
		return emit(out, rec, func() { a.printer.PrintGapRecord(rec) })
	}

	if err := a.loadCorpus(ctx); err != nil {
		return err
	}

	if gapsJob >= 0 {
		rec, err := a.svc.ClassifyOne(ctx, userTestID, gapsJob)
		if err != nil {
			return err
		}
		return emit(out, rec, func() { a.printer.PrintGapRecord(rec) })
	}

	results, err := a.svc.ClassifyAll(ctx, userTestID)
	if err != nil {
		return err
	}
	return emit(out, results, func() { a.printer.PrintGapSummary(results) })
}
