package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jonathan/codemap/internal/enrichment"
	"github.com/spf13/cobra"
)

var buildCacheClearEnrichment bool

var buildCacheCmd = &cobra.Command{
	Use:   "build-cache",
	Short: "Recompute the job corpus embeddings and rewrite the cache file",
	Long: `Recompute the job corpus embeddings and rewrite the cache file.

With --clear-enrichment, cached LLM enrichments in Redis are removed as well,
so the next ranking requests extract descriptions and requirements again.`,
	Args: cobra.NoArgs,
	RunE: runBuildCache,
}

func init() {
	buildCacheCmd.Flags().BoolVar(&buildCacheClearEnrichment, "clear-enrichment", false, "Also delete cached enrichments from Redis")
	rootCmd.AddCommand(buildCacheCmd)
}

func runBuildCache(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	a, err := setup(ctx, out, appOptions{regenerate: true})
	if err != nil {
		return err
	}
	defer a.close()

	if buildCacheClearEnrichment {
		if a.enrichCache == nil {
			return fmt.Errorf("--clear-enrichment needs llm.enrich enabled")
		}
		if err := clearEnrichment(ctx, a.enrichCache, out); err != nil {
			return err
		}
	}

	if err := a.loadCorpus(ctx); err != nil {
		return err
	}
	r := a.svc.Readiness()
	return emit(out, r, func() {
		a.printer.PrintReadiness(r)
		fmt.Fprintf(out, "Embeddings written under %s\n", a.cfg.DataDir)
	})
}

type prefixDeleter interface {
	Available() bool
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}

// clearEnrichment removes every cached enrichment.
func clearEnrichment(ctx context.Context, c prefixDeleter, out io.Writer) error {
	if !c.Available() {
		fmt.Fprintln(out, "Redis unavailable, no cached enrichments to clear")
		return nil
	}
	n, err := c.DeleteByPrefix(ctx, enrichment.CacheKeyPrefix)
	if err != nil {
		return fmt.Errorf("failed to clear cached enrichments: %w", err)
	}
	fmt.Fprintf(out, "Cleared %d cached enrichments\n", n)
	return nil
}
