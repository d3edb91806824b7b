package testutil

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// mockTestingT records assertion failures instead of failing the real test.
type mockTestingT struct {
	failed bool
}

func (m *mockTestingT) Helper() {}

func (m *mockTestingT) Errorf(format string, args ...interface{}) {
	m.failed = true
}

func (m *mockTestingT) Fatalf(format string, args ...interface{}) {
	m.failed = true
}

func TestAssertHTTPStatus(t *testing.T) {
	tests := []struct {
		name       string
		expected   int
		actual     int
		shouldFail bool
	}{
		{"matching status codes", 200, 200, false},
		{"different status codes", 200, 404, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockT := &mockTestingT{}
			AssertHTTPStatus(mockT, tt.expected, tt.actual, "test context")
			if mockT.failed != tt.shouldFail {
				t.Errorf("failed = %v, want %v", mockT.failed, tt.shouldFail)
			}
		})
	}
}

func TestAssertJSONResponse(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		expected   string
		shouldFail bool
	}{
		{"matching status", `{"status":"ok"}`, "ok", false},
		{"different status", `{"status":"error","message":"x"}`, "ok", true},
		{"missing status", `{"result":1}`, "ok", true},
		{"invalid json", `not json`, "ok", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			fmt.Fprint(rr, tt.body)
			mockT := &mockTestingT{}
			AssertJSONResponse(mockT, rr, tt.expected)
			if mockT.failed != tt.shouldFail {
				t.Errorf("failed = %v, want %v", mockT.failed, tt.shouldFail)
			}
		})
	}
}

func TestSignBodyValidatesWithSDK(t *testing.T) {
	body := WebhookBody(TextEvent("ev-1", Source("U1"), "r1", "会議"))
	if !webhook.ValidateSignature("secret", SignBody("secret", body), []byte(body)) {
		t.Error("signature should validate with the same secret")
	}
	if webhook.ValidateSignature("other", SignBody("secret", body), []byte(body)) {
		t.Error("signature should not validate with another secret")
	}
}

func TestEventBuildersParse(t *testing.T) {
	body := WebhookBody(
		TextEvent("ev-1", Source("U1"), "r1", "会議"),
		PostbackEvent("ev-2", GroupSource("G1", "U2"), "r2", "action=create", map[string]string{"datetime": "2025-02-20T10:00"}),
		StickerEvent("ev-3", GroupSource("G1", ""), "r3"),
		FollowEvent("ev-4", Source("U4"), "r4"),
	)

	cb, err := webhook.ParseRequest("secret", NewCallbackRequest("secret", body))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if len(cb.Events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(cb.Events))
	}

	msg, ok := cb.Events[0].(webhook.MessageEvent)
	if !ok {
		t.Fatalf("event 0 is %T, want MessageEvent", cb.Events[0])
	}
	text, ok := msg.Message.(webhook.TextMessageContent)
	if !ok || text.Text != "会議" || msg.WebhookEventId != "ev-1" || msg.ReplyToken != "r1" {
		t.Errorf("unexpected text event: %+v", msg)
	}
	if src, ok := msg.Source.(webhook.UserSource); !ok || src.UserId != "U1" {
		t.Errorf("unexpected source: %#v", msg.Source)
	}

	pb, ok := cb.Events[1].(webhook.PostbackEvent)
	if !ok {
		t.Fatalf("event 1 is %T, want PostbackEvent", cb.Events[1])
	}
	if pb.Postback == nil || pb.Postback.Data != "action=create" || pb.Postback.Params["datetime"] != "2025-02-20T10:00" {
		t.Errorf("unexpected postback: %+v", pb.Postback)
	}
	if src, ok := pb.Source.(webhook.GroupSource); !ok || src.GroupId != "G1" || src.UserId != "U2" {
		t.Errorf("unexpected source: %#v", pb.Source)
	}

	if _, ok := cb.Events[3].(webhook.FollowEvent); !ok {
		t.Errorf("event 3 is %T, want FollowEvent", cb.Events[3])
	}
}

func TestNewCallbackRequestUnsigned(t *testing.T) {
	req := NewCallbackRequest("", WebhookBody())
	if req.Header.Get("X-Line-Signature") != "" {
		t.Error("unsigned request should have no signature header")
	}
}
