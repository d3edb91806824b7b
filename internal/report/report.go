// Package report renders a day's schedule entries as a plain listing and,
// when a text generator is available, as a generated daily report.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/LineSchedule/internal/models"
)

// DefaultTimeout bounds a single report generation call.
const DefaultTimeout = 30 * time.Second

// NoEventsMessage is returned for a day without entries.
const NoEventsMessage = "予定がないため日報を作成できません。"

// SystemPrompt is sent as the system message of every generation request.
const SystemPrompt = "あなたは業務日報の作成を手伝うアシスタントです。与えられた予定だけをもとに、簡潔で丁寧な日本語の日報を書いてください。"

// promptTemplate wraps the listing; the verbs are the date and the listing.
const promptTemplate = "以下は%sの予定一覧です。この内容をもとに日報を作成してください。\n\n%s"

// ErrGenerationUnavailable is returned by generators that cannot produce text.
var ErrGenerationUnavailable = errors.New("report generation unavailable")

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NullGenerator is the Generator used when no generation backend is configured.
type NullGenerator struct{}

func (NullGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", ErrGenerationUnavailable
}

// Prompter is the subset of the GenAI client the generator adapter needs.
type Prompter interface {
	GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// GenAIGenerator adapts a Prompter to Generator.
type GenAIGenerator struct {
	prompter Prompter
}

// NewGenAIGenerator returns a Generator backed by p. A nil p yields NullGenerator.
func NewGenAIGenerator(p Prompter) Generator {
	if p == nil {
		return NullGenerator{}
	}
	return &GenAIGenerator{prompter: p}
}

func (g *GenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.prompter.GeneratePrompt(ctx, SystemPrompt, prompt)
}

// Listing renders entries as "HH:MM - text" lines in the given order.
func Listing(entries []models.ScheduleEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s - %s", e.ScheduledAt.Format("15:04"), e.Text))
	}
	return strings.Join(lines, "\n")
}

// Prompt wraps a listing in the report template for the given date.
func Prompt(listing string, date time.Time) string {
	return fmt.Sprintf(promptTemplate, date.Format("2006年1月2日"), listing)
}

// Formatter turns a day's entries into the report reply.
type Formatter struct {
	gen     Generator
	timeout time.Duration
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithTimeout sets the generation deadline. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(f *Formatter) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// NewFormatter creates a Formatter. A nil gen is treated as NullGenerator.
func NewFormatter(gen Generator, opts ...Option) *Formatter {
	if gen == nil {
		gen = NullGenerator{}
	}
	f := &Formatter{gen: gen, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format returns the report for entries on date. It never fails: without
// entries it returns NoEventsMessage, and any generation problem yields the
// plain listing.
func (f *Formatter) Format(ctx context.Context, entries []models.ScheduleEntry, date time.Time) string {
	if len(entries) == 0 {
		return NoEventsMessage
	}
	listing := Listing(entries)

	genCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	out, err := f.generate(genCtx, Prompt(listing, date))
	if err != nil {
		if errors.Is(err, ErrGenerationUnavailable) {
			slog.Debug("Formatter.Format: generation unavailable, using listing")
		} else {
			slog.Warn("Formatter.Format: generation failed, using listing", "error", err, "entries", len(entries))
		}
		return listing
	}
	if strings.TrimSpace(out) == "" {
		slog.Warn("Formatter.Format: generator returned empty output, using listing", "entries", len(entries))
		return listing
	}
	return out
}

// generate calls the generator, converting a panic into an error.
func (f *Formatter) generate(ctx context.Context, prompt string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panicked: %v", r)
		}
	}()
	return f.gen.Generate(ctx, prompt)
}
