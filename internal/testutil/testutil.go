// Package testutil provides common test utilities and helpers for LineSchedule tests.
package testutil

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
)

// TB is the subset of testing.TB the assertions use.
type TB interface {
	Helper()
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// SignBody returns the X-Line-Signature value for body under channelSecret.
func SignBody(channelSecret, body string) string {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// WebhookBody wraps event JSON objects in a webhook callback document.
func WebhookBody(events ...string) string {
	return fmt.Sprintf(`{"destination":"Ubot","events":[%s]}`, strings.Join(events, ","))
}

// Source is the JSON for a one-to-one chat source.
func Source(userID string) string {
	return fmt.Sprintf(`{"type":"user","userId":%q}`, userID)
}

// GroupSource is the JSON for a group chat source. userID may be empty.
func GroupSource(groupID, userID string) string {
	if userID == "" {
		return fmt.Sprintf(`{"type":"group","groupId":%q}`, groupID)
	}
	return fmt.Sprintf(`{"type":"group","groupId":%q,"userId":%q}`, groupID, userID)
}

func eventHeader(kind, eventID, source, replyToken string) string {
	return fmt.Sprintf(`"type":%q,"mode":"active","timestamp":1740000000000,"source":%s,`+
		`"webhookEventId":%q,"deliveryContext":{"isRedelivery":false},"replyToken":%q`,
		kind, source, eventID, replyToken)
}

// TextEvent is the JSON for a text message event.
func TextEvent(eventID, source, replyToken, text string) string {
	return fmt.Sprintf(`{%s,"message":{"type":"text","id":"1","quoteToken":"q","text":%q}}`,
		eventHeader("message", eventID, source, replyToken), text)
}

// StickerEvent is the JSON for a sticker message event.
func StickerEvent(eventID, source, replyToken string) string {
	return fmt.Sprintf(`{%s,"message":{"type":"sticker","id":"2","packageId":"1","stickerId":"1","stickerResourceType":"STATIC","quoteToken":"q"}}`,
		eventHeader("message", eventID, source, replyToken))
}

// FollowEvent is the JSON for a follow event.
func FollowEvent(eventID, source, replyToken string) string {
	return fmt.Sprintf(`{%s,"follow":{"isUnblocked":false}}`, eventHeader("follow", eventID, source, replyToken))
}

// PostbackEvent is the JSON for a postback event with picker params.
func PostbackEvent(eventID, source, replyToken, data string, params map[string]string) string {
	p, err := json.Marshal(params)
	if err != nil {
		p = []byte("{}")
	}
	return fmt.Sprintf(`{%s,"postback":{"data":%q,"params":%s}}`,
		eventHeader("postback", eventID, source, replyToken), data, p)
}

// NewCallbackRequest builds a signed POST /callback request. An empty
// channelSecret leaves the signature header off.
func NewCallbackRequest(channelSecret, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	if channelSecret != "" {
		req.Header.Set("X-Line-Signature", SignBody(channelSecret, body))
	}
	return req
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t TB, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t TB, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
		return nil
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Errorf("response missing or invalid 'status' field")
	}

	return response
}
