// Package summarize produces the ~100-word book summary for a resolved
// record. Generation failures never escape as errors; they collapse into
// fixed fallback texts whose kind stays distinguishable for logging.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/ujjwal16295/book-ai/internal/logging"
)

// Fallback texts shown in place of a summary. Both render as plain text; the
// Kind keeps the two paths apart internally.
const (
	FallbackEmpty  = "We couldn't generate a summary for this book. Please try another book."
	FallbackFailed = "There was an error generating the summary. Please try again later."
)

// Kind classifies how a Result was produced.
type Kind int

const (
	KindGenerated Kind = iota
	KindEmpty
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindGenerated:
		return "generated"
	case KindEmpty:
		return "empty"
	case KindFailed:
		return "failed"
	}
	return "unknown"
}

// Result is a summary text plus its provenance. Fallback results are still
// displayable; they are not error states.
type Result struct {
	Text string
	Kind Kind
}

// Generated reports whether the text came from the model rather than a fallback.
func (r Result) Generated() bool { return r.Kind == KindGenerated }

// Generator produces a raw summary for a title/author pair.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// BuildPrompt constructs the single instruction sent to the model.
func BuildPrompt(title, authors string) string {
	return fmt.Sprintf(`Generate a concise 100-word summary of the book %q by %s.
Focus on the main themes, key insights, and core message.
Make the summary informative yet engaging, capturing the essence of the book.
Limit the summary to exactly 100 words.`, title, authors)
}

// Summarize runs g for the given record fields and maps the outcome onto a
// Result. Each call fully replaces any prior summary; calling it again with
// the same inputs is always safe.
func Summarize(ctx context.Context, g Generator, title, authors string) Result {
	text, err := g.Generate(ctx, BuildPrompt(title, authors))
	if err != nil {
		logging.Warn("summary generation failed", "title", title, "err", err)
		return Result{Text: FallbackFailed, Kind: KindFailed}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		logging.Warn("summary generation returned empty text", "title", title)
		return Result{Text: FallbackEmpty, Kind: KindEmpty}
	}
	return Result{Text: text, Kind: KindGenerated}
}
