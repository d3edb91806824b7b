package postback

import (
	"errors"
	"strings"
	"testing"

	"github.com/BTreeMap/LineSchedule/internal/models"
)

func TestEncodeDecodeCreate(t *testing.T) {
	tests := []string{
		"Dentist",
		"歯医者 10時",
		"a&b=c",
		"user_message=spoof&action=report",
		"100% done?",
	}
	for _, msg := range tests {
		t.Run(msg, func(t *testing.T) {
			data, err := Encode(FromIntent(models.Intent{Kind: models.IntentCreateSchedule, Payload: msg}, "U1"))
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			p, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if p.Action != models.IntentCreateSchedule || p.Message != msg || p.Owner != "" {
				t.Errorf("unexpected payload %+v", p)
			}
		})
	}
}

func TestEncodeQueryCarriesOwner(t *testing.T) {
	data, err := Encode(FromIntent(models.Intent{Kind: models.IntentQueryDay}, "Uabc"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if data != "action=query&owner=Uabc" {
		t.Errorf("unexpected encoding %q", data)
	}
	p, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p.Action != models.IntentQueryDay || p.Owner != "Uabc" {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestEncodeKeepsJapaneseRaw(t *testing.T) {
	msg := strings.Repeat("会", 100)
	data, err := Encode(Payload{Action: models.IntentCreateSchedule, Message: msg})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if want := "action=schedule&user_message=" + msg; data != want {
		t.Errorf("expected raw UTF-8 payload, got %q", data)
	}
	p, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p.Message != msg {
		t.Errorf("message did not round-trip: %q", p.Message)
	}
}

func TestEncodeEscapesDelimiters(t *testing.T) {
	data, err := Encode(Payload{Action: models.IntentCreateSchedule, Message: "C++; 50% a&b=c"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if want := "action=schedule&user_message=C%2B%2B%3B 50%25 a%26b%3Dc"; data != want {
		t.Errorf("Encode = %q, want %q", data, want)
	}
}

func TestDecodeLegacyUnescaped(t *testing.T) {
	tests := []struct {
		data string
		want string
	}{
		{"action=schedule&user_message=Dentist", "Dentist"},
		{"action=schedule&user_message=C++ study", "C++ study"},
		{"action=schedule&user_message=50%off", "50%off"},
		{"action=schedule&user_message=a;b", "a;b"},
		{"action=schedule&user_message=1+1=2", "1+1=2"},
		{"action=schedule&user_message=歯医者 10時", "歯医者 10時"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			p, err := Decode(tt.data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if p.Action != models.IntentCreateSchedule || p.Message != tt.want {
				t.Errorf("Decode(%q) = %+v, want message %q", tt.data, p, tt.want)
			}
		})
	}
}

func TestDecodeFirstKeyWins(t *testing.T) {
	p, err := Decode("action=query&owner=U1&action=schedule&owner=U2")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p.Action != models.IntentQueryDay || p.Owner != "U1" {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, data := range []string{"", "action=delete", "user_message=hi", "action=%zz", "action=schedule&user_message"} {
		if _, err := Decode(data); !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%q): expected ErrMalformed, got %v", data, err)
		}
	}
}

func TestEncodeLengthCountsCharacters(t *testing.T) {
	prefix := len("action=schedule&user_message=")
	if _, err := Encode(Payload{Action: models.IntentCreateSchedule, Message: strings.Repeat("予", MaxDataLength-prefix)}); err != nil {
		t.Errorf("payload of exactly %d characters should fit, got %v", MaxDataLength, err)
	}
	_, err := Encode(Payload{Action: models.IntentCreateSchedule, Message: strings.Repeat("予", MaxDataLength-prefix+1)})
	if !errors.Is(err, ErrTooLong) {
		t.Errorf("expected ErrTooLong, got %v", err)
	}
	// Escapes count toward the limit.
	_, err = Encode(Payload{Action: models.IntentCreateSchedule, Message: strings.Repeat("&", 100)})
	if !errors.Is(err, ErrTooLong) {
		t.Errorf("expected ErrTooLong for escaped delimiters, got %v", err)
	}
}

func TestEncodeUnknownAction(t *testing.T) {
	if _, err := Encode(Payload{Action: "delete"}); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}
