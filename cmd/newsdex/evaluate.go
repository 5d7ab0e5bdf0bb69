package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	domeval "github.com/kailas-cloud/newsdex/internal/domain/evaluation"
	evaluationuc "github.com/kailas-cloud/newsdex/internal/usecase/evaluation"
)

const (
	testSetFile    = "test_queries.json"
	comparisonCSV  = "comparison.csv"
	comparisonJSON = "comparison.json"
)

func newTestSetCmd(c *cli) *cobra.Command {
	var (
		out          string
		perSection   int
		minScore     float64
		crossSection bool
		seed         uint64
	)
	cmd := &cobra.Command{
		Use:   "testset",
		Short: "Generate labeled evaluation queries from the processed corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ev := c.cfg.Evaluation
			if !cmd.Flags().Changed("queries-per-section") {
				perSection = ev.QueriesPerSection
			}
			if !cmd.Flags().Changed("min-keyword-score") {
				minScore = ev.MinKeywordScore
			}
			if !cmd.Flags().Changed("cross-section") {
				crossSection = ev.IncludeCrossSection
			}
			if !cmd.Flags().Changed("seed") {
				seed = ev.Seed
			}
			if out == "" {
				out = filepath.Join(ev.OutputDir, testSetFile)
			}

			articles, db, err := openArticles(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			queries, err := evaluationuc.NewGenerator(articles, seed, c.logger).GenerateTestSet(cmd.Context(),
				evaluationuc.GenerateOptions{
					QueriesPerSection:   perSection,
					MinKeywordScore:     minScore,
					IncludeCrossSection: crossSection,
					Query:               c.corpusQuery(),
				})
			if err != nil {
				return err
			}
			if err := writeFile(out, func(f *os.File) error { return evaluationuc.WriteTestSet(f, queries) }); err != nil {
				return err
			}

			s := domeval.Summarize(queries)
			c.logger.Info("Test set written", zap.String("path", out), zap.Int("queries", s.TotalQueries))
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"%d queries written to %s (prompt+keywords %d, keyword only %d, prompt only %d)\n",
				s.TotalQueries, out, s.QueryTypes.Combined, s.QueryTypes.KeywordOnly, s.QueryTypes.SemanticOnly)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&out, "out", "", "Output file (default <evaluation.output_dir>/"+testSetFile+")")
	f.IntVar(&perSection, "queries-per-section", 0, "Seed articles sampled per section")
	f.Float64Var(&minScore, "min-keyword-score", 0, "Minimum keyword score for generating keywords")
	f.BoolVar(&crossSection, "cross-section", false, "Also expand cross-section topics")
	f.Uint64Var(&seed, "seed", 0, "Sampling seed")
	return cmd
}

func newEvaluateCmd(c *cli) *cobra.Command {
	var (
		testSet  string
		variants []string
		k        int
		outDir   string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score variants on a test set and write comparison reports",
		Long: `Runs every query of a test set against each variant and reports MRR,
MAP, precision@k, recall@k, NDCG@k, mean latency and throughput. Reports are
written as CSV and JSON to the output directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if outDir == "" {
				outDir = c.cfg.Evaluation.OutputDir
			}
			if testSet == "" {
				testSet = filepath.Join(outDir, testSetFile)
			}
			if k > 0 {
				c.cfg.Evaluation.K = k
			}

			f, err := os.Open(filepath.Clean(testSet))
			if err != nil {
				return fmt.Errorf("open test set: %w", err)
			}
			queries, err := evaluationuc.ReadTestSet(f)
			_ = f.Close()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			vs, err := a.selectVariants(variants)
			if err != nil {
				return err
			}
			if err := a.fit(cmd.Context(), vs...); err != nil {
				return err
			}
			reports, err := a.evaluator().Compare(cmd.Context(), vs, queries)
			if err != nil {
				return err
			}

			csvPath := filepath.Join(outDir, comparisonCSV)
			if err := writeFile(csvPath, func(f *os.File) error { return evaluationuc.WriteCSV(f, reports) }); err != nil {
				return err
			}
			jsonPath := filepath.Join(outDir, comparisonJSON)
			if err := writeFile(jsonPath, func(f *os.File) error { return evaluationuc.WriteJSON(f, reports) }); err != nil {
				return err
			}
			c.logger.Info("Evaluation reports written", zap.String("csv", csvPath), zap.String("json", jsonPath))
			return printComparison(cmd, reports)
		},
	}
	f := cmd.Flags()
	f.StringVar(&testSet, "testset", "", "Test set file (default <output-dir>/"+testSetFile+")")
	f.StringSliceVar(&variants, "variant", nil, "Variants to evaluate (default: every configured variant)")
	f.IntVar(&k, "k", 0, "Cut-off for precision, recall and NDCG (default evaluation.k)")
	f.StringVar(&outDir, "out", "", "Report directory (default evaluation.output_dir)")
	return cmd
}

func printComparison(cmd *cobra.Command, reports []evaluationuc.Report) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIANT\tQUERIES\tFAILED\tMRR\tMAP\tP@K\tR@K\tNDCG\tLATENCY\tQPS")
	for _, r := range reports {
		m := r.Metrics
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%s\t%.1f\n",
			m.Variant, m.Queries, m.Failed, m.MRR, m.MAP, m.Precision, m.Recall, m.NDCG, m.MeanLatency, m.QPS)
	}
	return tw.Flush()
}

// writeFile creates path and its parent directories and hands the file to write.
func writeFile(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
