package httpapi

import (
	"errors"
	"fmt"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/model"
)

// ErrNoContent is returned for a show request without content or summary.
var ErrNoContent = errors.New("content or summary is required")

// ToastRequest is the body of POST /toasts and PATCH /toasts/{id}.
// Summary, Body and AppName build a structured message and take precedence
// over Content. Omitted fields are left unchanged by a patch.
type ToastRequest struct {
	Content any    `json:"content,omitempty"`
	AppName string `json:"app_name,omitempty"`
	Summary string `json:"summary,omitempty"`
	Body    string `json:"body,omitempty"`

	ID        string           `json:"id,omitempty"`
	Placement *string          `json:"placement,omitempty"`
	Icon      *string          `json:"icon,omitempty"`
	Type      *string          `json:"type,omitempty"`
	Urgency   *string          `json:"urgency,omitempty"`
	Duration  *config.Duration `json:"duration,omitempty"` // "5s" or milliseconds as a string
	Hints     map[string]any   `json:"hints,omitempty"`
}

// ContentValue returns the toast content carried by the request, or nil.
func (r ToastRequest) ContentValue() any {
	if r.Summary != "" || r.Body != "" {
		return model.Message{AppName: r.AppName, Summary: r.Summary, Body: r.Body}
	}
	return r.Content
}

// Options converts the request into toast options.
func (r ToastRequest) Options() (*model.Options, error) {
	opts := &model.Options{
		ID:    r.ID,
		Icon:  r.Icon,
		Type:  r.Type,
		Hints: r.Hints,
	}
	if r.Placement != nil {
		p, err := model.ParsePlacement(*r.Placement)
		if err != nil {
			return nil, err
		}
		opts.Placement = &p
	}
	if r.Urgency != nil {
		u, err := model.ParseUrgency(*r.Urgency)
		if err != nil {
			return nil, err
		}
		opts.Urgency = &u
	}
	if r.Duration != nil {
		d := r.Duration.Duration()
		if d < 0 {
			return nil, fmt.Errorf("duration must not be negative: %s", d)
		}
		opts.Duration = &d
	}
	return opts, nil
}

// ShowResponse is returned by POST /toasts.
type ShowResponse struct {
	ID string `json:"id"`
}

// VisibleRequest is the body of PUT /visible.
type VisibleRequest struct {
	Visible bool `json:"visible"`
}

// UnfoldRequest is the body of POST /unfold. A missing value switches the mode.
type UnfoldRequest struct {
	Unfolded *bool `json:"unfolded,omitempty"`
}

// ErrorResponse carries a failed request's message.
type ErrorResponse struct {
	Error string `json:"error"`
}
