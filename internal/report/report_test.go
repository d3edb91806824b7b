package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/LineSchedule/internal/models"
	"github.com/BTreeMap/LineSchedule/internal/timewindow"
)

type fakeGenerator struct {
	out    string
	err    error
	calls  int
	prompt string
	block  bool
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	g.prompt = prompt
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.out, g.err
}

type fakePrompter struct {
	system, user string
}

func (p *fakePrompter) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	p.system, p.user = systemPrompt, userPrompt
	return "generated", nil
}

var day = time.Date(2025, time.March, 1, 0, 0, 0, 0, timewindow.DefaultLocation)

func sampleEntries() []models.ScheduleEntry {
	return []models.ScheduleEntry{
		{ID: 1, OwnerID: "U1", Text: "Dentist", ScheduledAt: day.Add(10 * time.Hour)},
		{ID: 2, OwnerID: "U1", Text: "Lunch", ScheduledAt: day.Add(12*time.Hour + 30*time.Minute)},
	}
}

func TestListing(t *testing.T) {
	got := Listing(sampleEntries())
	want := "10:00 - Dentist\n12:30 - Lunch"
	if got != want {
		t.Errorf("Listing() = %q, want %q", got, want)
	}
	if Listing(nil) != "" {
		t.Error("expected empty listing for no entries")
	}
}

func TestFormat_NoEventsSkipsGenerator(t *testing.T) {
	gen := &fakeGenerator{out: "should not be used"}
	f := NewFormatter(gen)
	if got := f.Format(context.Background(), nil, day); got != NoEventsMessage {
		t.Errorf("expected no-events message, got %q", got)
	}
	if gen.calls != 0 {
		t.Errorf("generator must not be invoked, got %d calls", gen.calls)
	}
}

func TestFormat_UsesGeneratorOutput(t *testing.T) {
	gen := &fakeGenerator{out: "本日の日報"}
	f := NewFormatter(gen)
	if got := f.Format(context.Background(), sampleEntries(), day); got != "本日の日報" {
		t.Errorf("expected generated text, got %q", got)
	}
	if !strings.Contains(gen.prompt, "10:00 - Dentist") || !strings.Contains(gen.prompt, "2025年3月1日") {
		t.Errorf("prompt missing listing or date: %q", gen.prompt)
	}
}

func TestFormat_FallsBackToListing(t *testing.T) {
	listing := Listing(sampleEntries())
	tests := []struct {
		name string
		gen  Generator
	}{
		{"failing generator", &fakeGenerator{err: errors.New("unreachable")}},
		{"empty output", &fakeGenerator{out: ""}},
		{"blank output", &fakeGenerator{out: "  \n"}},
		{"null generator", NullGenerator{}},
		{"nil generator", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFormatter(tt.gen)
			if got := f.Format(context.Background(), sampleEntries(), day); got != listing {
				t.Errorf("expected listing fallback %q, got %q", listing, got)
			}
		})
	}
}

func TestFormat_DeadlineFallsBack(t *testing.T) {
	gen := &fakeGenerator{block: true}
	f := NewFormatter(gen, WithTimeout(20*time.Millisecond))
	got := f.Format(context.Background(), sampleEntries(), day)
	if got != Listing(sampleEntries()) {
		t.Errorf("expected listing after deadline, got %q", got)
	}
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	panic("boom")
}

func TestFormat_GeneratorPanicFallsBack(t *testing.T) {
	f := NewFormatter(panickingGenerator{})
	if got := f.Format(context.Background(), sampleEntries(), day); got != Listing(sampleEntries()) {
		t.Errorf("expected listing after panic, got %q", got)
	}
}

func TestNullGenerator(t *testing.T) {
	_, err := NullGenerator{}.Generate(context.Background(), "x")
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Errorf("expected ErrGenerationUnavailable, got %v", err)
	}
}

func TestNewGenAIGenerator(t *testing.T) {
	if _, ok := NewGenAIGenerator(nil).(NullGenerator); !ok {
		t.Error("expected NullGenerator for nil prompter")
	}
	p := &fakePrompter{}
	out, err := NewGenAIGenerator(p).Generate(context.Background(), "prompt body")
	if err != nil || out != "generated" {
		t.Fatalf("unexpected result %q, %v", out, err)
	}
	if p.system != SystemPrompt || p.user != "prompt body" {
		t.Errorf("unexpected prompts: system=%q user=%q", p.system, p.user)
	}
}
