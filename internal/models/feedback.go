package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Feedback is a free-text message submitted by a client user.
type Feedback struct {
	ID        string    `json:"id"`
	Type      int       `json:"type"`
	Content   string    `json:"content"`
	Contact   string    `json:"contact"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate trims the free-text fields and rejects feedback with no content.
func (f *Feedback) Validate() error {
	f.Content = strings.TrimSpace(f.Content)
	f.Contact = strings.TrimSpace(f.Contact)
	if f.Content == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidFeedback)
	}
	return nil
}

// NewFeedbackID returns a short random feedback identifier.
func NewFeedbackID() string {
	return "fb_" + uuid.New().String()[:8]
}
