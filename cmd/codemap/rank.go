package main

import (
	"fmt"

	"github.com/jonathan/codemap/internal/matching"
	"github.com/spf13/cobra"
)

var (
	rankTopK   int
	rankVector string
)

var rankCmd = &cobra.Command{
	Use:   "rank [user_test_id]",
	Short: "Rank job postings against a user's profile",
	Long: `Build the user's profile text from their assessment, embed it and print the
most similar postings, one per distinct title. With --vector, rank a raw embedding instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRank,
}

func init() {
	rankCmd.Flags().IntVarP(&rankTopK, "top-k", "k", 0, "Number of matches to return (default from config, 3)")
	rankCmd.Flags().StringVar(&rankVector, "vector", "", "Comma-separated profile vector to rank instead of a user")
	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (rankVector == "") {
		return fmt.Errorf("provide either a user_test_id or --vector")
	}

	var (
		userTestID int64
		vector     []float32
		err        error
	)
	if rankVector != "" {
		vector, err = parseVector(rankVector)
	} else {
		userTestID, err = parseUserTestID(args[0])
	}
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

	if err := a.loadCorpus(ctx); err != nil {
		return err
	}

	var resp *matching.RankResponse
	if vector != nil {
		resp, err = a.svc.RankVector(ctx, vector, rankTopK)
	} else {
		resp, err = a.svc.Rank(ctx, userTestID, rankTopK)
	}
	if err != nil {
		return err
	}
	return emit(out, resp, func() { a.printer.PrintMatches(resp) })
}
