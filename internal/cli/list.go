package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/k2fort/arcfeed/internal/entry"
	"github.com/k2fort/arcfeed/internal/filter"
	"github.com/k2fort/arcfeed/internal/server"
)

type listOptions struct {
	category  string
	since     string
	until     string
	dateRange string
	contains  []string
	latest    bool
	limit     int
	sortOrder string
}

func newListCmd(opts *options) *cobra.Command {
	lo := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show stored entries",
		Long: `Show entries from news.json and patches.json without touching the network.

Examples:
  arcfeed list --category patches --limit 5
  arcfeed list --since 2026-10-01 --contains hotfix
  arcfeed list --range "Sep 1 - Oct 15" --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}

			categories, err := parseCategories(lo.category)
			if err != nil {
				return err
			}
			f, err := lo.filter(time.Now())
			if err != nil {
				return err
			}
			order := SortOrder(lo.sortOrder)
			switch order {
			case SortByDate, SortByTitle, SortByCategory:
			default:
				return fmt.Errorf("invalid sort order: %s (must be 'date', 'title' or 'category')", lo.sortOrder)
			}

			result := &ListResult{
				Categories: categories,
				Filter:     f.String(),
				Entries:    []ListedEntry{},
			}
			// Limit applies to the merged, sorted listing
			match := f.Clone()
			match.Limit = 0
			for _, cat := range categories {
				bucket, err := a.store.LoadBucket(cat)
				if err != nil {
					return fmt.Errorf("loading %s: %w", cat, err)
				}
				for _, e := range match.Apply(bucket.Entries) {
					result.Entries = append(result.Entries, ListedEntry{Category: cat, Entry: e})
				}
			}

			sortEntries(result.Entries, order)
			if f.Limit > 0 && len(result.Entries) > f.Limit {
				result.Entries = result.Entries[:f.Limit]
			}
			result.Count = len(result.Entries)

			return writeList(cmd.OutOrStdout(), result, OutputFormat(opts.format), opts.verbose)
		},
	}

	cmd.Flags().StringVar(&lo.category, "category", "all", "Category: news, patches or all")
	cmd.Flags().StringVar(&lo.since, "since", "", "Only entries dated on or after this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&lo.until, "until", "", "Only entries dated on or before this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&lo.dateRange, "range", "", "Date range such as 'Mar 1-15', 'Sep 1 - Oct 15' or 'March'")
	cmd.Flags().StringSliceVar(&lo.contains, "contains", nil, "Keyword in title or summary (repeatable)")
	cmd.Flags().BoolVar(&lo.latest, "latest", false, "Only the latest entry of each category")
	cmd.Flags().IntVar(&lo.limit, "limit", 0, "Maximum number of entries, 0 for all")
	cmd.Flags().StringVar(&lo.sortOrder, "sort", string(SortByDate), "Sort order: date, title or category")

	return cmd
}

func (lo *listOptions) filter(now time.Time) (*filter.Filter, error) {
	f := filter.NewFilter()

	if lo.dateRange != "" {
		from, to, err := filter.ParseDateRange(lo.dateRange, now)
		if err != nil {
			return nil, err
		}
		f.DateFrom, f.DateTo = from, to
	}
	if lo.since != "" {
		day, err := filter.ParseDay(lo.since)
		if err != nil {
			return nil, fmt.Errorf("--since: %w", err)
		}
		f.DateFrom = &day
	}
	if lo.until != "" {
		day, err := filter.ParseDay(lo.until)
		if err != nil {
			return nil, fmt.Errorf("--until: %w", err)
		}
		f.DateTo = &day
	}
	if len(lo.contains) > 0 {
		f.Keywords = append(f.Keywords, lo.contains...)
	}
	f.LatestOnly = lo.latest
	if lo.limit < 0 {
		return nil, fmt.Errorf("--limit must be >= 0")
	}
	f.Limit = lo.limit

	return f, nil
}

func parseCategories(raw string) ([]entry.Category, error) {
	if raw == "" || raw == "all" {
		return entry.Categories, nil
	}
	cat, err := entry.ParseCategory(raw)
	if err != nil {
		return nil, err
	}
	return []entry.Category{cat}, nil
}

func (a *app) newServer() *server.Server {
	return server.New(a.store, a.log, server.Options{
		Host: a.cfg.Server.Host,
		Port: a.cfg.Server.Port,
	})
}
