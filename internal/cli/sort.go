package cli

import (
	"sort"
	"strings"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate     SortOrder = "date"
	SortByTitle    SortOrder = "title"
	SortByCategory SortOrder = "category"
)

// sortEntries sorts listed entries based on the specified sort order.
// Sorting is stable so bucket order breaks ties.
func sortEntries(entries []ListedEntry, sortOrder SortOrder) {
	switch sortOrder {
	case SortByDate:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Date > entries[j].Date
		})
	case SortByTitle:
		sort.SliceStable(entries, func(i, j int) bool {
			ti, tj := strings.ToLower(entries[i].Title), strings.ToLower(entries[j].Title)
			if ti != tj {
				return ti < tj
			}
			// If titles are equal, newest first
			return entries[i].Date > entries[j].Date
		})
	case SortByCategory:
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Category != entries[j].Category {
				return entries[i].Category < entries[j].Category
			}
			return entries[i].Date > entries[j].Date
		})
	}
}
