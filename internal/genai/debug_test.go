package genai

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openai/openai-go"
)

func newDebugClient(stateDir string, debug bool, chat chatService) *Client {
	return &Client{
		chat:        chat,
		model:       "test-model",
		temperature: 0.2,
		maxTokens:   400,
		debugMode:   debug,
		stateDir:    stateDir,
	}
}

// readDebugLogs decodes every file written under <stateDir>/debug.
func readDebugLogs(t *testing.T, stateDir string) []map[string]interface{} {
	t.Helper()
	files, err := os.ReadDir(filepath.Join(stateDir, "debug"))
	if err != nil {
		t.Fatalf("Failed to read debug directory: %v", err)
	}
	var logs []map[string]interface{}
	for _, f := range files {
		content, err := os.ReadFile(filepath.Join(stateDir, "debug", f.Name()))
		if err != nil {
			t.Fatalf("Failed to read debug file: %v", err)
		}
		var entry map[string]interface{}
		if err := json.Unmarshal(content, &entry); err != nil {
			t.Fatalf("Failed to unmarshal debug log %s: %v", f.Name(), err)
		}
		logs = append(logs, entry)
	}
	return logs
}

func TestDebugLogging_RecordsReportCall(t *testing.T) {
	stateDir := t.TempDir()
	chat := &mockChatService{resp: openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "本日は10:00に会議がありました。"}},
		},
	}}
	client := newDebugClient(stateDir, true, chat)

	userPrompt := "以下は2025-02-20の予定一覧です。\n\n10:00 - 会議"
	if _, err := client.GeneratePrompt(context.Background(), "日報アシスタント", userPrompt); err != nil {
		t.Fatalf("GeneratePrompt failed: %v", err)
	}

	logs := readDebugLogs(t, stateDir)
	if len(logs) != 1 {
		t.Fatalf("Expected one debug log, got %d", len(logs))
	}
	entry := logs[0]
	for _, field := range []string{"timestamp", "method", "model", "params", "response"} {
		if _, exists := entry[field]; !exists {
			t.Errorf("Required field '%s' missing from debug log", field)
		}
	}
	if _, exists := entry["error"]; exists {
		t.Errorf("Successful call should not log an error: %v", entry["error"])
	}
	if entry["method"] != "GeneratePrompt" || entry["model"] != "test-model" {
		t.Errorf("Unexpected method/model: %v/%v", entry["method"], entry["model"])
	}

	params, _ := json.Marshal(entry["params"])
	if !strings.Contains(string(params), "10:00 - 会議") {
		t.Errorf("Debug log should carry the schedule listing, got %s", params)
	}
}

func TestDebugLogging_RecordsFailure(t *testing.T) {
	stateDir := t.TempDir()
	client := newDebugClient(stateDir, true, &mockChatService{err: errors.New("rate limited")})

	if _, err := client.GeneratePrompt(context.Background(), "sys", "user"); err == nil {
		t.Fatal("Expected error from failing completion")
	}

	logs := readDebugLogs(t, stateDir)
	if len(logs) != 1 || logs[0]["error"] != "rate limited" {
		t.Errorf("Expected failure recorded in debug log, got %v", logs)
	}
}

func TestDebugLogging_Disabled(t *testing.T) {
	tests := []struct {
		name     string
		debug    bool
		stateDir string
	}{
		{"debug off", false, t.TempDir()},
		{"no state dir", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &mockChatService{resp: openai.ChatCompletion{
				Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}},
			}}
			client := newDebugClient(tt.stateDir, tt.debug, chat)
			if _, err := client.GeneratePrompt(context.Background(), "sys", "user"); err != nil {
				t.Fatalf("GeneratePrompt failed: %v", err)
			}
			if tt.stateDir == "" {
				return
			}
			if _, err := os.Stat(filepath.Join(tt.stateDir, "debug")); !os.IsNotExist(err) {
				t.Errorf("Debug directory should not be created when debug mode is disabled")
			}
		})
	}
}
