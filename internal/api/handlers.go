// Package api provides HTTP handlers for LineSchedule endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/LineSchedule/internal/flow"
	"github.com/BTreeMap/LineSchedule/internal/models"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// SignatureHeader carries the base64 HMAC-SHA256 of the request body.
const SignatureHeader = "X-Line-Signature"

// callbackHandler verifies and dispatches a LINE webhook delivery. Once the
// signature checks out the response is 200 whatever the events lead to, so
// LINE does not redeliver because of a failed reply.
func (s *Server) callbackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r, http.MethodPost)
		return
	}
	if r.Header.Get(SignatureHeader) == "" {
		slog.Warn("Server.callbackHandler: missing signature header")
		writeError(w, http.StatusBadRequest, "Missing signature")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxCallbackBodyBytes)
	cb, err := webhook.ParseRequest(s.channelSecret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			slog.Warn("Server.callbackHandler: invalid signature")
			writeError(w, http.StatusBadRequest, "Invalid signature")
			return
		}
		slog.Warn("Server.callbackHandler: failed to parse webhook body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	slog.Debug("Server.callbackHandler: webhook received", "events", len(cb.Events))

	// Handling outlives a dropped connection; the write and reply still happen.
	ctx := context.WithoutCancel(r.Context())
	for _, event := range cb.Events {
		s.dispatch(ctx, event)
	}

	writeCallbackAck(w)
}

// dispatch hands text messages and postbacks to the event handler. Other
// event and message types are ignored.
func (s *Server) dispatch(ctx context.Context, event webhook.EventInterface) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		text, ok := e.Message.(webhook.TextMessageContent)
		if !ok {
			slog.Debug("Server.dispatch: ignoring non-text message", "type", fmt.Sprintf("%T", e.Message))
			return
		}
		owner := ownerID(e.Source)
		if owner == "" {
			slog.Warn("Server.dispatch: message without a sender, ignoring", "eventID", e.WebhookEventId)
			return
		}
		s.handler.HandleText(ctx, flow.TextEvent{
			EventID:    e.WebhookEventId,
			OwnerID:    owner,
			ReplyToken: e.ReplyToken,
			Text:       text.Text,
		})
	case webhook.PostbackEvent:
		owner := ownerID(e.Source)
		if owner == "" || e.Postback == nil {
			slog.Warn("Server.dispatch: incomplete postback, ignoring", "eventID", e.WebhookEventId)
			return
		}
		s.handler.HandlePostback(ctx, flow.PostbackEvent{
			EventID:    e.WebhookEventId,
			OwnerID:    owner,
			ReplyToken: e.ReplyToken,
			Data:       e.Postback.Data,
			Params:     e.Postback.Params,
		})
	default:
		slog.Debug("Server.dispatch: ignoring event", "type", fmt.Sprintf("%T", event))
	}
}

// ownerID identifies whose schedule an event acts on: the sending user, or
// the group or room when LINE withholds the user ID.
func ownerID(src webhook.SourceInterface) string {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		if s.UserId != "" {
			return s.UserId
		}
		return s.GroupId
	case webhook.RoomSource:
		if s.UserId != "" {
			return s.UserId
		}
		return s.RoomId
	default:
		return ""
	}
}

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}))
}
