package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// lineAPI is the subset of the LINE Messaging API client the service uses.
type lineAPI interface {
	PushMessage(ctx context.Context, req *messaging_api.PushMessageRequest, retryKey string) error
	ReplyMessage(ctx context.Context, req *messaging_api.ReplyMessageRequest) error
}

// sdkAPI adapts *messaging_api.MessagingApiAPI to lineAPI.
type sdkAPI struct {
	client *messaging_api.MessagingApiAPI
}

func (a sdkAPI) PushMessage(ctx context.Context, req *messaging_api.PushMessageRequest, retryKey string) error {
	_, err := a.client.WithContext(ctx).PushMessage(req, retryKey)
	return err
}

func (a sdkAPI) ReplyMessage(ctx context.Context, req *messaging_api.ReplyMessageRequest) error {
	_, err := a.client.WithContext(ctx).ReplyMessage(req)
	return err
}

// Opts holds configuration options for the LINE service.
type Opts struct {
	Endpoint string
}

// Option defines a configuration option for the LINE service.
type Option func(*Opts)

// WithEndpoint overrides the Messaging API base URL.
func WithEndpoint(endpoint string) Option {
	return func(o *Opts) {
		o.Endpoint = endpoint
	}
}

// LineService implements Service over the LINE Messaging API.
type LineService struct {
	api lineAPI
}

// Compile-time check that LineService implements Service.
var _ Service = (*LineService)(nil)

// NewLineService creates a LineService authenticated with the channel access token.
func NewLineService(channelToken string, opts ...Option) (*LineService, error) {
	if channelToken == "" {
		return nil, fmt.Errorf("LINE channel access token not set")
	}
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	var apiOpts []messaging_api.MessagingApiAPIOption
	if cfg.Endpoint != "" {
		apiOpts = append(apiOpts, messaging_api.WithEndpoint(cfg.Endpoint))
	}
	client, err := messaging_api.NewMessagingApiAPI(channelToken, apiOpts...)
	if err != nil {
		slog.Error("LineService.NewLineService: failed to create client", "error", err)
		return nil, fmt.Errorf("failed to create LINE client: %w", err)
	}
	slog.Debug("LineService.NewLineService: client created", "endpoint_set", cfg.Endpoint != "")
	return &LineService{api: sdkAPI{client: client}}, nil
}

// PickerMessage builds the buttons template carrying a single datetime picker action.
func PickerMessage(p Picker) *messaging_api.TemplateMessage {
	mode := messaging_api.DatetimePickerActionMODE_DATETIME
	if p.Mode == PickerModeDate {
		mode = messaging_api.DatetimePickerActionMODE_DATE
	}
	text, altText, label := p.Text, p.AltText, p.Label
	if text == "" {
		text = DefaultPickerText
	}
	if altText == "" {
		altText = DefaultPickerAltText
	}
	if label == "" {
		label = DefaultPickerLabel
	}
	return &messaging_api.TemplateMessage{
		AltText: altText,
		Template: &messaging_api.ButtonsTemplate{
			Text: text,
			Actions: []messaging_api.ActionInterface{
				&messaging_api.DatetimePickerAction{
					Label:   label,
					Data:    p.Data,
					Mode:    mode,
					Initial: p.Initial,
					Min:     p.Min,
					Max:     p.Max,
				},
			},
		},
	}
}

// PushPicker sends the picker prompt to a user, group or room ID.
func (s *LineService) PushPicker(ctx context.Context, to string, p Picker, retryKey string) error {
	if to == "" {
		return ErrEmptyRecipient
	}
	req := &messaging_api.PushMessageRequest{
		To:       to,
		Messages: []messaging_api.MessageInterface{PickerMessage(p)},
	}
	if err := s.api.PushMessage(ctx, req, retryKey); err != nil {
		slog.Error("LineService.PushPicker: push failed", "error", err, "to", to, "mode", p.Mode)
		return fmt.Errorf("push picker to %s: %w", to, err)
	}
	slog.Debug("LineService.PushPicker: picker pushed", "to", to, "mode", p.Mode)
	return nil
}

// ReplyText answers an inbound event with a single text message.
func (s *LineService) ReplyText(ctx context.Context, replyToken, text string) error {
	if replyToken == "" {
		return ErrEmptyReplyToken
	}
	req := &messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   []messaging_api.MessageInterface{messaging_api.TextMessage{Text: text}},
	}
	if err := s.api.ReplyMessage(ctx, req); err != nil {
		slog.Error("LineService.ReplyText: reply failed", "error", err)
		return fmt.Errorf("reply text: %w", err)
	}
	slog.Debug("LineService.ReplyText: reply sent", "length", len(text))
	return nil
}
