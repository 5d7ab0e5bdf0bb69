package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/newsdex/internal/domain/keyword"
	"github.com/kailas-cloud/newsdex/internal/domain/search/mode"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
	"github.com/kailas-cloud/newsdex/internal/domain/search/result"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

func newSearchCmd(c *cli) *cobra.Command {
	var (
		p        request.Params
		v        string
		match    string
		sortBy   string
		asJSON   bool
		keywords []string
	)
	cmd := &cobra.Command{
		Use:   "search [prompt]",
		Short: "Run a hybrid query against one variant's collection",
		Example: `  newsdex search "subida de los tipos de interés" --variant sbert
  newsdex search --keyword inflación --keyword bce --match all --sort keyword
  newsdex search "elecciones en Estados Unidos" --keyword trump --date 2024-11-06`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Prompt = strings.Join(args, " ")
			p.Keywords = keywords
			p.Match = mode.Match(match)
			p.SortBy = mode.Sort(sortBy)
			p.Variant = variant.Variant(v)
			if p.Variant == "" {
				p.Variant = variant.Variant(c.cfg.Search.DefaultVariant)
			}
			req, err := request.New(p)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.fit(cmd.Context(), req.Variant()); err != nil {
				return err
			}
			results, err := a.search.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeResultsJSON(cmd.OutOrStdout(), results)
			}
			return writeResults(cmd.OutOrStdout(), results)
		},
	}
	f := cmd.Flags()
	f.StringVar(&v, "variant", "", "Embedding variant (default: search.default_variant)")
	f.StringSliceVar(&keywords, "keyword", nil, "Keyword to match, repeatable")
	f.StringVar(&match, "match", "", "Keyword match mode: any or all")
	f.StringVar(&sortBy, "sort", "", "Sort key: semantic, keyword or combined")
	f.StringVar(&p.Date, "date", "", "Publication date (YYYY-MM-DD)")
	f.StringVar(&p.Section, "section", "", "Section filter")
	f.StringVar(&p.Newspaper, "newspaper", "", "Newspaper filter")
	f.Float64Var(&p.MinKeywordScore, "min-keyword-score", 0, "Drop results below this keyword score")
	f.IntVar(&p.Limit, "limit", 0, "Number of results (default 20, max 100)")
	f.StringVar(&p.Collection, "collection", "", "Collection instead of news_<variant>")
	f.BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func newSimilarCmd(c *cli) *cobra.Command {
	var (
		v         string
		limit     int
		threshold float64
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "similar <article-id>",
		Short: "Find articles similar to an indexed one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vv := variant.Variant(v)
			if vv == "" {
				vv = variant.Variant(c.cfg.Search.DefaultVariant)
			}
			if threshold == 0 {
				threshold = c.cfg.Search.SimilarThreshold
			}
			req, err := request.NewSimilar(vv, args[0], limit, threshold)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.search.Similar(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeResultsJSON(cmd.OutOrStdout(), results)
			}
			return writeResults(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringVar(&v, "variant", "", "Embedding variant (default: search.default_variant)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of results")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum cosine similarity (default: search.similar_threshold)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

type resultRow struct {
	ArticleID     string  `json:"article_id"`
	Title         string  `json:"title"`
	Section       string  `json:"section"`
	PublishedAt   string  `json:"published_at"`
	Newspaper     string  `json:"newspaper"`
	URL           string  `json:"url,omitempty"`
	Keywords      string  `json:"keywords"`
	SemanticScore float64 `json:"semantic_score"`
	KeywordScore  float64 `json:"keyword_score"`
	CombinedScore float64 `json:"combined_score"`
}

func toRows(results []result.Result) []resultRow {
	rows := make([]resultRow, len(results))
	for i := range results {
		r := &results[i]
		pl := r.Payload()
		rows[i] = resultRow{
			ArticleID:     r.ID(),
			Title:         pl.Title,
			Section:       pl.Section,
			PublishedAt:   pl.PublishedAt,
			Newspaper:     pl.Newspaper,
			URL:           pl.URL,
			Keywords:      keyword.Format(pl.Keywords),
			SemanticScore: r.SemanticScore(),
			KeywordScore:  r.KeywordScore(),
			CombinedScore: r.CombinedScore(),
		}
	}
	return rows
}

func writeResultsJSON(w io.Writer, results []result.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toRows(results))
}

func writeResults(w io.Writer, results []result.Result) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "no matches")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSCORE\tSEM\tKW\tDATE\tSECTION\tNEWSPAPER\tTITLE")
	for i, r := range toRows(results) {
		fmt.Fprintf(tw, "%d\t%.3f\t%.3f\t%.3f\t%s\t%s\t%s\t%s\n",
			i+1, r.CombinedScore, r.SemanticScore, r.KeywordScore,
			r.PublishedAt, r.Section, r.Newspaper, r.Title)
	}
	return tw.Flush()
}
