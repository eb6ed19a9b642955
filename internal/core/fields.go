// Package core provides filtering, sorting, and lookup logic over toasts.
package core

import (
	"strings"

	"github.com/jmylchreest/toastd/internal/model"
)

// Hint keys read by the field accessors.
const (
	HintAppName  = "app_name"
	HintCategory = "category"
)

// Parts splits toast content into app name, summary and body. Messages carry
// their own fields; other content takes the app from the app_name hint and
// splits its text at the first newline.
func Parts(t model.Toast) (app, summary, body string) {
	switch c := t.Content.(type) {
	case model.Message:
		return appName(c.AppName, t), c.Summary, c.Body
	case *model.Message:
		if c != nil {
			return appName(c.AppName, t), c.Summary, c.Body
		}
		return t.Options.Hint(HintAppName), "", ""
	}
	summary, body, _ = strings.Cut(t.Text(), "\n")
	return t.Options.Hint(HintAppName), summary, body
}

func appName(name string, t model.Toast) string {
	if name != "" {
		return name
	}
	return t.Options.Hint(HintAppName)
}

// App returns the toast's application name, if any.
func App(t model.Toast) string {
	app, _, _ := Parts(t)
	return app
}

// Category returns the category hint.
func Category(t model.Toast) string {
	return t.Options.Hint(HintCategory)
}
