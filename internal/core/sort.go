package core

import (
	"sort"
	"strings"

	"github.com/jmylchreest/toastd/internal/model"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByCreated SortField = "created"
	SortByApp     SortField = "app"
	SortByUrgency SortField = "urgency"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField
	Order SortOrder
}

// DefaultSortOptions returns default sort options (newest first).
func DefaultSortOptions() SortOptions {
	return SortOptions{
		Field: SortByCreated,
		Order: SortDesc,
	}
}

// Sort sorts toasts in place. Ties keep their stack order.
func Sort(toasts []model.Toast, opts SortOptions) {
	if len(toasts) == 0 {
		return
	}

	sort.SliceStable(toasts, func(i, j int) bool {
		a, b := toasts[i], toasts[j]
		if opts.Order == SortDesc {
			a, b = b, a
		}
		switch opts.Field {
		case SortByApp:
			return strings.ToLower(App(a)) < strings.ToLower(App(b))
		case SortByUrgency:
			return a.Options.UrgencyOr(model.UrgencyNormal) < b.Options.UrgencyOr(model.UrgencyNormal)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}

// ParseSortField parses a sort field string. Unknown fields sort by creation time.
func ParseSortField(s string) SortField {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "app", "appname", "a":
		return SortByApp
	case "urgency", "u":
		return SortByUrgency
	default:
		return SortByCreated
	}
}

// ParseSortOrder parses a sort order string. Unknown orders sort descending.
func ParseSortOrder(s string) SortOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending", "a":
		return SortAsc
	default:
		return SortDesc
	}
}
