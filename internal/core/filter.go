package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/toastd/internal/model"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="
	FilterOpNotEqual  FilterOp = "!="
	FilterOpContains  FilterOp = "~"
	FilterOpRegex     FilterOp = "~="
	FilterOpGreater   FilterOp = ">"
	FilterOpLess      FilterOp = "<"
	FilterOpGreaterEq FilterOp = ">="
	FilterOpLessEq    FilterOp = "<="
)

// FilterCondition represents a single filter condition.
type FilterCondition struct {
	Field    string // app, summary, body, category, type, urgency, open, created
	Operator FilterOp
	Value    string

	regex      *regexp.Regexp
	urgencyVal model.Urgency
	cutoff     time.Time
	boolVal    bool
}

// FilterExpr is a set of conditions ANDed together.
type FilterExpr struct {
	Conditions []FilterCondition
}

// FilterOptions specifies criteria for filtering toasts.
type FilterOptions struct {
	Since     time.Duration  // newer than now-since (0=all)
	AppFilter string         // exact match on app name
	Urgency   *model.Urgency // nil=any
	Open      *bool          // nil=any
	Limit     int            // 0=unlimited
	Now       func() time.Time
}

// Filter returns the toasts matching opts, in their original order.
func Filter(toasts []model.Toast, opts FilterOptions) []model.Toast {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	cutoff := now().Add(-opts.Since)

	result := make([]model.Toast, 0, len(toasts))
	for _, t := range toasts {
		if opts.Since > 0 && t.CreatedAt.Before(cutoff) {
			continue
		}
		if opts.AppFilter != "" && App(t) != opts.AppFilter {
			continue
		}
		if opts.Urgency != nil && t.Options.UrgencyOr(model.UrgencyNormal) != *opts.Urgency {
			continue
		}
		if opts.Open != nil && t.Open != *opts.Open {
			continue
		}
		result = append(result, t)
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

// ParseDuration parses a duration string with extended formats.
// Supports: 48h, 7d, 1w, 0 (all time)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "0" || s == "" {
		return 0, nil
	}

	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// ParseUrgency accepts urgency names or their numeric levels.
func ParseUrgency(s string) (model.Urgency, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "0":
		return model.UrgencyLow, nil
	case "1":
		return model.UrgencyNormal, nil
	case "2":
		return model.UrgencyCritical, nil
	}
	return model.ParseUrgency(s)
}

// ParseFilter parses a filter expression string into a FilterExpr.
// Format: "field=value,field2~value2,field3>value3"
//
// Supported fields: app, summary, body, category, type, urgency, open, created
// Supported operators: = (equal), != (not equal), ~ (contains), ~= (regex), >, <, >=, <=
//
// Examples:
//   - "app=discord" - exact app name match
//   - "summary~error" - summary contains "error"
//   - "urgency>=normal" - urgency is normal or higher
//   - "open=false" - closed toasts still in history
//   - "body~=(?i)meeting" - body matches regex
//   - "created>1h" - created within the last hour
func ParseFilter(expr string) (*FilterExpr, error) {
	return parseFilter(expr, time.Now())
}

func parseFilter(expr string, now time.Time) (*FilterExpr, error) {
	filter := &FilterExpr{}
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cond, err := parseCondition(part, now)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}
	return filter, nil
}

// operators is ordered longest first so "!=" is not read as "=".
var operators = []FilterOp{
	FilterOpNotEqual,
	FilterOpGreaterEq,
	FilterOpLessEq,
	FilterOpRegex,
	FilterOpEqual,
	FilterOpContains,
	FilterOpGreater,
	FilterOpLess,
}

func parseCondition(s string, now time.Time) (FilterCondition, error) {
	// The earliest operator position wins so values may contain operator characters.
	best, bestIdx := FilterOp(""), -1
	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx > 0 && (bestIdx < 0 || idx < bestIdx) {
			best, bestIdx = op, idx
		}
	}
	if bestIdx < 0 {
		return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
	}

	cond := FilterCondition{
		Field:    strings.ToLower(strings.TrimSpace(s[:bestIdx])),
		Operator: best,
		Value:    strings.TrimSpace(s[bestIdx+len(best):]),
	}
	if err := cond.init(now); err != nil {
		return FilterCondition{}, err
	}
	return cond, nil
}

// init normalizes the field and pre-parses the value.
func (c *FilterCondition) init(now time.Time) error {
	switch c.Field {
	case "app", "app_name", "appname":
		c.Field = "app"
	case "summary", "title":
		c.Field = "summary"
	case "body", "message":
		c.Field = "body"
	case "category", "cat":
		c.Field = "category"
	case "type":
	case "urgency", "priority":
		c.Field = "urgency"
		u, err := ParseUrgency(c.Value)
		if err != nil {
			return err
		}
		c.urgencyVal = u
	case "open":
		c.boolVal = parseBool(c.Value)
	case "closed":
		c.Field = "open"
		c.boolVal = !parseBool(c.Value)
	case "created", "timestamp", "time", "ts":
		c.Field = "created"
		dur, err := ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid timestamp value: %w", err)
		}
		c.cutoff = now.Add(-dur)
	default:
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}

	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}
	return nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1", "y", "t":
		return true
	default:
		return false
	}
}

// Match reports whether every condition matches.
func (f *FilterExpr) Match(t model.Toast) bool {
	for _, cond := range f.Conditions {
		if !cond.Match(t) {
			return false
		}
	}
	return true
}

// Match tests a single condition.
func (c *FilterCondition) Match(t model.Toast) bool {
	switch c.Field {
	case "app":
		return c.matchString(App(t))
	case "summary":
		_, summary, _ := Parts(t)
		return c.matchString(summary)
	case "body":
		_, _, body := Parts(t)
		return c.matchString(body)
	case "category":
		return c.matchString(Category(t))
	case "type":
		return c.matchString(t.Options.TypeOr(model.TypeNormal))
	case "urgency":
		return c.matchUrgency(t.Options.UrgencyOr(model.UrgencyNormal))
	case "open":
		return c.matchBool(t.Open)
	case "created":
		return c.matchTime(t.CreatedAt)
	default:
		return false
	}
}

func (c *FilterCondition) matchString(v string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return v == c.Value
	case FilterOpNotEqual:
		return v != c.Value
	case FilterOpContains:
		return strings.Contains(strings.ToLower(v), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(v)
	default:
		return false
	}
}

func (c *FilterCondition) matchUrgency(v model.Urgency) bool {
	switch c.Operator {
	case FilterOpEqual:
		return v == c.urgencyVal
	case FilterOpNotEqual:
		return v != c.urgencyVal
	case FilterOpGreater:
		return v > c.urgencyVal
	case FilterOpLess:
		return v < c.urgencyVal
	case FilterOpGreaterEq:
		return v >= c.urgencyVal
	case FilterOpLessEq:
		return v <= c.urgencyVal
	default:
		return false
	}
}

func (c *FilterCondition) matchBool(v bool) bool {
	switch c.Operator {
	case FilterOpEqual:
		return v == c.boolVal
	case FilterOpNotEqual:
		return v != c.boolVal
	default:
		return false
	}
}

// matchTime compares against the cutoff; "created>1h" means newer than an hour ago.
func (c *FilterCondition) matchTime(v time.Time) bool {
	switch c.Operator {
	case FilterOpGreater:
		return v.After(c.cutoff)
	case FilterOpLess:
		return v.Before(c.cutoff)
	case FilterOpGreaterEq:
		return !v.Before(c.cutoff)
	case FilterOpLessEq:
		return !v.After(c.cutoff)
	default:
		return false
	}
}

// FilterWithExpr filters toasts using a filter expression.
func FilterWithExpr(toasts []model.Toast, expr *FilterExpr) []model.Toast {
	if expr == nil || len(expr.Conditions) == 0 {
		return toasts
	}
	result := make([]model.Toast, 0, len(toasts))
	for _, t := range toasts {
		if expr.Match(t) {
			result = append(result, t)
		}
	}
	return result
}
