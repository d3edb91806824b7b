// Package flow implements the two-step picker conversation.
//
// A text message is classified and answered with a datetime picker whose
// postback data carries the pending intent. When the selection comes back the
// intent is decoded and carried out against the store. No state is kept
// between the two steps other than what travels in the postback data.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/LineSchedule/internal/intent"
	"github.com/BTreeMap/LineSchedule/internal/messaging"
	"github.com/BTreeMap/LineSchedule/internal/models"
	"github.com/BTreeMap/LineSchedule/internal/postback"
	"github.com/BTreeMap/LineSchedule/internal/report"
	"github.com/BTreeMap/LineSchedule/internal/store"
	"github.com/BTreeMap/LineSchedule/internal/timewindow"
	"github.com/google/uuid"
)

// TextEvent is an inbound text message.
type TextEvent struct {
	EventID    string
	OwnerID    string
	ReplyToken string
	Text       string
}

// PostbackEvent is an inbound picker selection.
type PostbackEvent struct {
	EventID    string
	OwnerID    string
	ReplyToken string
	Data       string
	Params     map[string]string
}

// Snapshotter exports the store after a successful write.
type Snapshotter interface {
	Export(ctx context.Context) error
}

// Dependencies holds the collaborators of a Controller. Store and Messenger
// are required; Dedup, Outbox and Snapshot are optional.
type Dependencies struct {
	Store      store.Store
	Messenger  messaging.Service
	Formatter  *report.Formatter
	Resolver   *timewindow.Resolver
	Classifier *intent.Classifier
	Dedup      store.DedupRepo
	Outbox     store.OutboxRepo
	Snapshot   Snapshotter
	Now        func() time.Time
}

// Controller handles both steps of the picker conversation.
type Controller struct {
	deps Dependencies
}

// NewController creates a Controller, filling unset optional collaborators with defaults.
func NewController(deps Dependencies) *Controller {
	if deps.Formatter == nil {
		deps.Formatter = report.NewFormatter(report.NullGenerator{})
	}
	if deps.Resolver == nil {
		deps.Resolver = timewindow.New(nil)
	}
	if deps.Classifier == nil {
		deps.Classifier = intent.NewClassifier("", "")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Controller{deps: deps}
}

// HandleText classifies a text message and pushes the matching picker.
func (c *Controller) HandleText(ctx context.Context, ev TextEvent) {
	if !c.begin(ctx, ev.EventID, ev.OwnerID) {
		return
	}
	defer c.finish(ctx, ev.EventID)

	in := c.deps.Classifier.Classify(ev.Text)
	slog.Debug("Controller.HandleText: classified", "ownerID", ev.OwnerID, "intent", in.Kind)

	if in.Kind == models.IntentCreateSchedule && in.Payload == "" {
		c.reply(ctx, ev.ReplyToken, MsgEmptyMessage)
		return
	}

	data, err := postback.Encode(postback.FromIntent(in, ev.OwnerID))
	if err != nil {
		slog.Warn("Controller.HandleText: cannot encode picker payload", "error", err, "ownerID", ev.OwnerID)
		if errors.Is(err, postback.ErrTooLong) {
			c.reply(ctx, ev.ReplyToken, MsgMessageTooLong)
		} else {
			c.reply(ctx, ev.ReplyToken, MsgInvalidData)
		}
		return
	}

	c.pushPicker(ctx, ev.OwnerID, c.picker(in.Kind, data))
}

// picker builds the prompt for kind: a datetime picker for new entries, a date
// picker for day queries and reports.
func (c *Controller) picker(kind models.IntentKind, data string) messaging.Picker {
	w := c.deps.Resolver.Resolve(c.deps.Now())
	p := messaging.Picker{AltText: PickerAltText, Label: PickerLabel, Data: data}
	if kind == models.IntentCreateSchedule {
		p.Mode = messaging.PickerModeDatetime
		p.Text = PickerTextDatetime
		p.Initial, p.Min, p.Max = w.PickerValues()
	} else {
		p.Mode = messaging.PickerModeDate
		p.Text = PickerTextDate
		p.Initial, p.Min, p.Max = w.DateValues()
	}
	return p
}

// pushPicker sends the picker without waiting on the outcome beyond logging.
// A failed push is queued for retry when an outbox is configured.
func (c *Controller) pushPicker(ctx context.Context, to string, p messaging.Picker) {
	retryKey := uuid.NewString()
	err := c.deps.Messenger.PushPicker(ctx, to, p, retryKey)
	if err == nil {
		return
	}
	slog.Error("Controller.pushPicker: push failed", "error", err, "to", to)
	if c.deps.Outbox == nil {
		return
	}
	payload, err := messaging.EncodePushRequest(messaging.PushRequest{To: to, Picker: p, RetryKey: retryKey})
	if err != nil {
		slog.Error("Controller.pushPicker: cannot encode outbox payload", "error", err)
		return
	}
	id, err := c.deps.Outbox.EnqueueOutboxMessage(ctx, to, messaging.OutboxKindPicker, payload, retryKey)
	if err != nil {
		slog.Error("Controller.pushPicker: enqueue for retry failed", "error", err, "to", to)
		return
	}
	slog.Info("Controller.pushPicker: push queued for retry", "outboxID", id, "to", to)
}

// HandlePostback carries out the intent decoded from a picker selection and
// replies exactly once.
func (c *Controller) HandlePostback(ctx context.Context, ev PostbackEvent) {
	if !c.begin(ctx, ev.EventID, ev.OwnerID) {
		return
	}
	defer c.finish(ctx, ev.EventID)

	c.reply(ctx, ev.ReplyToken, c.resolve(ctx, ev))
}

func (c *Controller) resolve(ctx context.Context, ev PostbackEvent) string {
	p, err := postback.Decode(ev.Data)
	if err != nil {
		slog.Warn("Controller.HandlePostback: invalid payload", "error", err, "ownerID", ev.OwnerID)
		return MsgInvalidData
	}
	if p.Owner != "" && p.Owner != ev.OwnerID {
		slog.Warn("Controller.HandlePostback: payload owner differs from sender, scoping to sender", "payloadOwner", p.Owner, "ownerID", ev.OwnerID)
	}
	selection := selectedValue(ev.Params)
	slog.Debug("Controller.HandlePostback: resolving", "ownerID", ev.OwnerID, "action", p.Action, "selection", selection)

	switch p.Action {
	case models.IntentCreateSchedule:
		return c.createEntry(ctx, ev.OwnerID, p.Message, selection)
	case models.IntentQueryDay:
		return c.queryDay(ctx, ev.OwnerID, selection)
	case models.IntentGenerateReport:
		return c.generateReport(ctx, ev.OwnerID, selection)
	default:
		return MsgInvalidData
	}
}

// selectedValue returns the picked datetime or date, or UnknownSelection.
func selectedValue(params map[string]string) string {
	if v := params["datetime"]; v != "" {
		return v
	}
	if v := params["date"]; v != "" {
		return v
	}
	return UnknownSelection
}

func (c *Controller) createEntry(ctx context.Context, ownerID, text, selection string) string {
	if selection == UnknownSelection || text == "" {
		return MsgInvalidData
	}
	at, err := c.deps.Resolver.ParsePickerDatetime(selection)
	if err != nil {
		slog.Warn("Controller.createEntry: unparseable selection", "error", err, "ownerID", ownerID)
		return MsgInvalidData
	}

	entry := models.ScheduleEntry{OwnerID: ownerID, Text: text, ScheduledAt: at}
	id, err := c.deps.Store.AddScheduleEntry(ctx, entry)
	if err != nil {
		slog.Error("Controller.createEntry: store failed", "error", err, "ownerID", ownerID)
		return MsgStoreError
	}
	slog.Info("Controller.createEntry: entry saved", "id", id, "ownerID", ownerID, "scheduledAt", at)

	if c.deps.Snapshot != nil {
		if err := c.deps.Snapshot.Export(ctx); err != nil {
			slog.Error("Controller.createEntry: snapshot export failed", "error", err)
		}
	}
	return fmt.Sprintf(msgSaved, text, selection)
}

func (c *Controller) queryDay(ctx context.Context, ownerID, selection string) string {
	start, entries, err := c.dayEntries(ctx, ownerID, selection)
	if err != nil {
		return errorReply(err)
	}
	if len(entries) == 0 {
		return MsgNoEvents
	}
	return fmt.Sprintf(msgDayHeader, start.Format(timewindow.DateLayout), report.Listing(entries))
}

func (c *Controller) generateReport(ctx context.Context, ownerID, selection string) string {
	start, entries, err := c.dayEntries(ctx, ownerID, selection)
	if err != nil {
		return errorReply(err)
	}
	if len(entries) == 0 {
		return MsgReportNoEvents
	}
	return c.deps.Formatter.Format(ctx, entries, start)
}

var errDateUnresolved = errors.New("date unresolved")

// dayEntries lists the owner's entries on the selected calendar day.
func (c *Controller) dayEntries(ctx context.Context, ownerID, selection string) (time.Time, []models.ScheduleEntry, error) {
	if selection == UnknownSelection {
		return time.Time{}, nil, errDateUnresolved
	}
	day, err := c.parseDay(selection)
	if err != nil {
		slog.Warn("Controller.dayEntries: unparseable selection", "error", err, "ownerID", ownerID)
		return time.Time{}, nil, errDateUnresolved
	}
	start, end := c.deps.Resolver.DayBucket(day)
	entries, err := c.deps.Store.ListScheduleEntries(ctx, ownerID, start, end)
	if err != nil {
		slog.Error("Controller.dayEntries: store failed", "error", err, "ownerID", ownerID)
		return start, nil, err
	}
	return start, entries, nil
}

// parseDay accepts either a date or a datetime selection.
func (c *Controller) parseDay(selection string) (time.Time, error) {
	if len(selection) == len(timewindow.DateLayout) {
		return c.deps.Resolver.ParsePickerDate(selection)
	}
	return c.deps.Resolver.ParsePickerDatetime(selection)
}

func errorReply(err error) string {
	if errors.Is(err, errDateUnresolved) {
		return MsgDateUnresolved
	}
	return MsgStoreError
}

func (c *Controller) reply(ctx context.Context, replyToken, text string) {
	if err := c.deps.Messenger.ReplyText(ctx, replyToken, text); err != nil {
		slog.Error("Controller.reply: reply failed", "error", err)
	}
}

// begin records the event for deduplication and reports whether it should be
// handled. Dedup failures do not block handling.
func (c *Controller) begin(ctx context.Context, eventID, ownerID string) bool {
	if c.deps.Dedup == nil || eventID == "" {
		return true
	}
	fresh, err := c.deps.Dedup.RecordInbound(ctx, eventID, ownerID)
	if err != nil {
		slog.Error("Controller.begin: dedup record failed, handling anyway", "error", err, "eventID", eventID)
		return true
	}
	if !fresh {
		slog.Info("Controller.begin: duplicate event skipped", "eventID", eventID, "ownerID", ownerID)
	}
	return fresh
}

func (c *Controller) finish(ctx context.Context, eventID string) {
	if c.deps.Dedup == nil || eventID == "" {
		return
	}
	if err := c.deps.Dedup.MarkProcessed(ctx, eventID); err != nil {
		slog.Error("Controller.finish: mark processed failed", "error", err, "eventID", eventID)
	}
}
