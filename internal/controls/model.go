package controls

import "time"

// Control is one security control in a compliance framework.
type Control struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Framework   string    `json:"framework,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Question is one questionnaire item under a control. Response holds the
// current answer; it is written when a reviewer accepts an evidence match.
type Question struct {
	ID        string     `json:"id"`
	ControlID string     `json:"controlId"`
	Ordinal   int        `json:"ordinal"`
	Text      string     `json:"text"`
	Response  string     `json:"response,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}
