package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/newsdex/internal/domain/article"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
	"github.com/kailas-cloud/newsdex/internal/usecase/indexing"
)

func newIndexCmd(c *cli) *cobra.Command {
	var (
		variants     []string
		collection   string
		sections     []string
		from, to     string
		useProcessed bool
		limit        int
	)
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed the article corpus into one collection per variant",
		Long: `Reads eligible articles from the corpus database, fits corpus-fitted
variants on them and upserts their vectors with title, section, date,
newspaper and keyword payloads. Re-running overwrites existing records.`,
		Example: `  newsdex index --variant tfidf --variant sbert
  newsdex index --variant minilm --section Economía --from 2024-11-01`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if collection != "" && len(variants) != 1 {
				return errors.New("--collection requires exactly one --variant")
			}
			q, err := c.articleQuery(sections, from, to)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("use-processed") {
				q.UseProcessed = useProcessed
			}
			q.Limit = limit

			a, err := newApp(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			vs, err := a.selectVariants(variants)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, v := range vs {
				summary, err := a.indexer.Index(cmd.Context(), indexing.Options{Variant: v, Collection: collection, Query: q})
				if err != nil {
					return fmt.Errorf("index %s: %w", v, err)
				}
				fmt.Fprintf(out, "%-7s %-12s indexed=%d skipped=%d batches=%d failed_batches=%d took=%s\n",
					v, summary.Collection, summary.Indexed, summary.Skipped,
					len(summary.Results), summary.Failed(), summary.Duration.Round(time.Millisecond))
				for _, r := range summary.FailedRanges() {
					fmt.Fprintf(out, "        skipped articles [%d, %d)\n", r[0], r[1])
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&variants, "variant", nil, "Variants to index (default: every configured variant)")
	cmd.Flags().StringVar(&collection, "collection", "", "Target collection instead of news_<variant>")
	cmd.Flags().StringSliceVar(&sections, "section", nil, "Restrict to sections")
	cmd.Flags().StringVar(&from, "from", "", "Earliest publication date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Latest publication date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&useProcessed, "use-processed", false, "Embed processed text instead of the raw body")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of articles (0 = all)")
	return cmd
}

// corpusQuery is the configured article selection.
func (c *cli) corpusQuery() article.Query {
	return article.Query{
		MinWords:     c.cfg.Articles.MinWords,
		MaxWords:     c.cfg.Articles.MaxWords,
		UseProcessed: c.cfg.Articles.UseProcessed,
	}
}

// articleQuery narrows the configured selection with flags.
func (c *cli) articleQuery(sections []string, from, to string) (article.Query, error) {
	q := c.corpusQuery()
	for _, s := range sections {
		sec := article.Section(s)
		if !sec.IsValid() {
			return q, fmt.Errorf("unknown section %q", s)
		}
		q.Sections = append(q.Sections, sec)
	}
	var err error
	if from != "" {
		if q.From, err = time.Parse(article.DateLayout, from); err != nil {
			return q, fmt.Errorf("--from: %w", err)
		}
	}
	if to != "" {
		if q.To, err = time.Parse(article.DateLayout, to); err != nil {
			return q, fmt.Errorf("--to: %w", err)
		}
		// inclusive upper bound for the whole day
		q.To = q.To.Add(24*time.Hour - time.Nanosecond)
	}
	return q, nil
}

// selectVariants parses names, defaulting to every configured variant.
func (a *app) selectVariants(names []string) ([]variant.Variant, error) {
	if len(names) == 0 {
		return a.embedders.Variants(), nil
	}
	vs := make([]variant.Variant, 0, len(names))
	for _, n := range names {
		v, err := variant.Parse(n)
		if err != nil {
			return nil, err
		}
		if _, err := a.embedders.Get(v); err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
	return vs, nil
}
