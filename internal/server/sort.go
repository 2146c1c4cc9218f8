package server

import "sort"

// sortItems orders items by date descending, keeping bucket order for ties
func sortItems(items []entryItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date > items[j].Date
	})
}
