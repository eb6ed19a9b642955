package core

import (
	"slices"
	"strings"

	"github.com/jmylchreest/toastd/internal/model"
)

// LookupByID finds a toast by its id.
// Returns nil if not found.
func LookupByID(toasts []model.Toast, id string) *model.Toast {
	for i := range toasts {
		if toasts[i].ID == id {
			return &toasts[i]
		}
	}
	return nil
}

// LookupByIndex finds a toast by its index (1-based for user-friendliness).
// Returns nil if index is out of bounds.
func LookupByIndex(toasts []model.Toast, index int) *model.Toast {
	idx := index - 1
	if idx < 0 || idx >= len(toasts) {
		return nil
	}
	return &toasts[idx]
}

// Search finds toasts matching a search term in summary or body.
// Case-insensitive substring match.
func Search(toasts []model.Toast, term string) []model.Toast {
	if term == "" {
		return toasts
	}

	term = strings.ToLower(term)
	var result []model.Toast
	for _, t := range toasts {
		_, summary, body := Parts(t)
		if strings.Contains(strings.ToLower(summary), term) ||
			strings.Contains(strings.ToLower(body), term) {
			result = append(result, t)
		}
	}
	return result
}

// UniqueApps returns a sorted list of unique app names.
func UniqueApps(toasts []model.Toast) []string {
	seen := make(map[string]bool)
	var apps []string
	for _, t := range toasts {
		if app := App(t); app != "" && !seen[app] {
			seen[app] = true
			apps = append(apps, app)
		}
	}

	slices.SortFunc(apps, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return apps
}
