package messaging

import (
	"context"
	"sync"
)

// PushCall records a PushPicker invocation.
type PushCall struct {
	To       string
	Picker   Picker
	RetryKey string
}

// ReplyCall records a ReplyText invocation.
type ReplyCall struct {
	ReplyToken string
	Text       string
}

// MockService is an in-memory Service for tests. Calls are recorded even
// when the configured error is returned.
type MockService struct {
	mu       sync.Mutex
	Pushes   []PushCall
	Replies  []ReplyCall
	PushErr  error
	ReplyErr error
}

// Compile-time check that MockService implements Service.
var _ Service = (*MockService)(nil)

// NewMockService creates a MockService with no injected errors.
func NewMockService() *MockService {
	return &MockService{}
}

func (m *MockService) PushPicker(ctx context.Context, to string, p Picker, retryKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pushes = append(m.Pushes, PushCall{To: to, Picker: p, RetryKey: retryKey})
	return m.PushErr
}

func (m *MockService) ReplyText(ctx context.Context, replyToken, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Replies = append(m.Replies, ReplyCall{ReplyToken: replyToken, Text: text})
	return m.ReplyErr
}

// PushCalls returns a copy of the recorded pushes.
func (m *MockService) PushCalls() []PushCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PushCall, len(m.Pushes))
	copy(out, m.Pushes)
	return out
}

// ReplyCalls returns a copy of the recorded replies.
func (m *MockService) ReplyCalls() []ReplyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ReplyCall, len(m.Replies))
	copy(out, m.Replies)
	return out
}

// SetPushErr changes the error returned by PushPicker.
func (m *MockService) SetPushErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PushErr = err
}
