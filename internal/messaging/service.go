// Package messaging delivers bot output to chat users.
package messaging

import (
	"context"
	"errors"
)

// PickerMode selects what the datetime picker asks for.
type PickerMode string

const (
	PickerModeDatetime PickerMode = "datetime"
	PickerModeDate     PickerMode = "date"
)

// Default picker texts.
const (
	DefaultPickerText    = "日時を選んでください"
	DefaultPickerAltText = "日時選択メッセージ"
	DefaultPickerLabel   = "Select date"
)

var (
	// ErrEmptyRecipient is returned when a push has no destination.
	ErrEmptyRecipient = errors.New("recipient cannot be empty")
	// ErrEmptyReplyToken is returned when a reply has no token.
	ErrEmptyReplyToken = errors.New("reply token cannot be empty")
)

// Picker describes a datetime picker prompt. Initial, Min and Max must be
// formatted for Mode.
type Picker struct {
	Text    string     `json:"text"`
	AltText string     `json:"alt_text"`
	Label   string     `json:"label"`
	Data    string     `json:"data"`
	Mode    PickerMode `json:"mode"`
	Initial string     `json:"initial"`
	Min     string     `json:"min"`
	Max     string     `json:"max"`
}

// Service defines a pluggable message delivery abstraction.
type Service interface {
	// PushPicker sends a picker prompt to a user. retryKey makes repeated
	// attempts of the same push idempotent on the platform side.
	PushPicker(ctx context.Context, to string, p Picker, retryKey string) error

	// ReplyText answers an inbound event. Reply tokens are single-use.
	ReplyText(ctx context.Context, replyToken, text string) error
}
