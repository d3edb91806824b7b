// Package postback encodes the pending intent carried through the datetime
// picker and decodes it again when the selection comes back.
//
// Payloads are "key=value" pairs joined by '&'. Only the delimiter characters
// '%', '&', '=', '+' and ';' are percent-escaped in values; everything else,
// Japanese text included, is carried as raw UTF-8 so the platform's
// character limit goes as far as it can. Decoding undoes only those five
// escapes, so payloads from older unescaped encoders decode unchanged unless
// their message contains '&'.
package postback

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/BTreeMap/LineSchedule/internal/models"
)

// MaxDataLength is the largest postback data, in characters, the messaging
// platform accepts.
const MaxDataLength = 300

const (
	keyAction  = "action"
	keyMessage = "user_message"
	keyOwner   = "owner"
)

var (
	// ErrMalformed is returned for payloads that cannot be parsed or carry an unknown action.
	ErrMalformed = errors.New("malformed postback payload")
	// ErrTooLong is returned when the encoded payload exceeds MaxDataLength.
	ErrTooLong = errors.New("postback payload too long")
)

var (
	escaper = strings.NewReplacer(
		"%", "%25",
		"&", "%26",
		"=", "%3D",
		"+", "%2B",
		";", "%3B",
	)
	unescaper = strings.NewReplacer(
		"%25", "%",
		"%26", "&",
		"%3D", "=", "%3d", "=",
		"%2B", "+", "%2b", "+",
		"%3B", ";", "%3b", ";",
	)
)

// Payload is the intent state round-tripped through the picker.
type Payload struct {
	Action  models.IntentKind
	Message string // set for IntentCreateSchedule
	Owner   string // set for IntentQueryDay and IntentGenerateReport
}

// FromIntent builds the payload for a classified intent and its owner.
func FromIntent(in models.Intent, ownerID string) Payload {
	if in.Kind == models.IntentCreateSchedule {
		return Payload{Action: in.Kind, Message: in.Payload}
	}
	return Payload{Action: in.Kind, Owner: ownerID}
}

// Encode serializes p. It fails when the result would not fit the platform limit.
func Encode(p Payload) (string, error) {
	if !models.IsValidIntentKind(p.Action) {
		return "", fmt.Errorf("%w: unknown action %q", ErrMalformed, p.Action)
	}
	var b strings.Builder
	b.WriteString(keyAction + "=" + escaper.Replace(string(p.Action)))
	if p.Message != "" {
		b.WriteString("&" + keyMessage + "=" + escaper.Replace(p.Message))
	}
	if p.Owner != "" {
		b.WriteString("&" + keyOwner + "=" + escaper.Replace(p.Owner))
	}
	data := b.String()
	if n := utf8.RuneCountInString(data); n > MaxDataLength {
		return "", fmt.Errorf("%w: %d characters", ErrTooLong, n)
	}
	return data, nil
}

// Decode parses data produced by Encode. The first occurrence of a key wins.
func Decode(data string) (Payload, error) {
	fields := make(map[string]string, 3)
	for _, pair := range strings.Split(data, "&") {
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return Payload{}, fmt.Errorf("%w: field %q has no value", ErrMalformed, pair)
		}
		if _, seen := fields[key]; !seen {
			fields[key] = unescaper.Replace(value)
		}
	}
	p := Payload{
		Action:  models.IntentKind(fields[keyAction]),
		Message: fields[keyMessage],
		Owner:   fields[keyOwner],
	}
	if !models.IsValidIntentKind(p.Action) {
		return Payload{}, fmt.Errorf("%w: unknown action %q", ErrMalformed, p.Action)
	}
	return p, nil
}
