package main

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/TrendGoat/internal/storage"
	"github.com/IshaanNene/TrendGoat/internal/trending"
)

var topN int

// analyzeCmd creates the "analyze" subcommand.
func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Recompute trending keywords from stored data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.trending.Run(cmd.Context())
			if err != nil {
				return err
			}
			printTrending(report, topN)
			return nil
		},
	}
	cmd.Flags().IntVarP(&topN, "top", "t", 20, "number of keywords to print")
	return cmd
}

func printTrending(r *trending.Report, n int) {
	fmt.Printf("Trending analysis at %s from %d sources\n\n",
		r.AnalysisTimestamp.Local().Format(time.DateTime), len(r.DataSourcesUsed))
	top := r.Top(n)
	if len(top) == 0 {
		fmt.Println("No keyword crossed the trending threshold. Run a collection first.")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tKEYWORD\tSCORE\tMENTIONS\tSENTIMENT\tSOURCES")
	for i, kw := range top {
		srcs := make([]string, 0, len(kw.Sources))
		for src, c := range kw.Sources {
			srcs = append(srcs, fmt.Sprintf("%s=%g", src, c))
		}
		sort.Strings(srcs)
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%g\t%s\t%s\n",
			i+1, kw.Keyword, kw.TrendingScore, kw.TotalMentions, kw.Sentiment.Label, strings.Join(srcs, " "))
	}
	tw.Flush()
}

// summaryCmd creates the "summary" subcommand.
func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show stored data per source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			sum, err := a.store.Summary(cmd.Context())
			if err != nil {
				return err
			}
			printSummary(sum)

			info, err := a.keywords.Info()
			if err != nil {
				return err
			}
			fmt.Printf("\nKeywords (%d): %s\n", info.Count, strings.Join(info.Keywords, ", "))
			if report, err := a.trending.Load(); err == nil && report != nil {
				fmt.Printf("Last analysis: %s, %d trending keywords\n",
					report.AnalysisTimestamp.Local().Format(time.DateTime), len(report.TrendingKeywords))
			}
			return nil
		},
	}
}

func printSummary(sum *storage.Summary) {
	fmt.Printf("Storage backend: %s\n\n", sum.Backend)
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tITEMS\tCOLLECTIONS\tSIZE\tLAST UPDATED")
	for _, src := range slices.Sorted(maps.Keys(sum.Sources)) {
		s := sum.Sources[src]
		if !s.Exists {
			fmt.Fprintf(tw, "%s\t-\t-\t-\tnever\n", src.Label())
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", src.Label(), s.TotalItems, s.TotalCollections,
			humanSize(s.SizeBytes), s.LastUpdated.Local().Format(time.DateTime))
	}
	tw.Flush()
	fmt.Printf("\nTotal items: %d\n", sum.TotalItems)
}

func humanSize(n int64) string {
	switch {
	case n <= 0:
		return "-"
	case n < 1<<10:
		return fmt.Sprintf("%d B", n)
	case n < 1<<20:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	}
}
