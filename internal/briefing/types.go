package briefing

import (
	"context"

	"github.com/ujjwal16295/book-ai/internal/catalog"
)

// SuggestionSource answers type-ahead lookups.
type SuggestionSource interface {
	Suggest(ctx context.Context, q string) ([]catalog.Candidate, error)
}

// DetailSource resolves a title to its single best-matching record. It must
// return catalog.ErrNotFound (possibly wrapped) when the catalog has no match.
type DetailSource interface {
	Lookup(ctx context.Context, title string) (catalog.Record, error)
}

// Phase is the orchestrator's user-visible state.
type Phase int

const (
	// PhaseIdle: no query yet.
	PhaseIdle Phase = iota
	// PhaseTyping: query present, suggestion list not visible.
	PhaseTyping
	// PhaseSuggesting: suggestion list populated and visible.
	PhaseSuggesting
	// PhaseResolving: detail fetch in flight, suggestions dismissed.
	PhaseResolving
	// PhaseGenerating: detail resolved, summary fetch in flight.
	PhaseGenerating
	// PhaseReady: summary present (real or fallback), detail displayed.
	PhaseReady
	// PhaseError: terminal for the query; a new search re-enters the machine.
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseTyping:
		return "typing"
	case PhaseSuggesting:
		return "suggesting"
	case PhaseResolving:
		return "resolving"
	case PhaseGenerating:
		return "generating"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	}
	return "unknown"
}

// ErrKind distinguishes the error phases.
type ErrKind int

const (
	ErrNone ErrKind = iota
	// ErrNotFound: the catalog answered with zero matches.
	ErrNotFound
	// ErrFetchFailed: network or parse failure talking to the catalog.
	ErrFetchFailed
	// ErrNoTitle: the detail entry point was reached with an empty title.
	ErrNoTitle
)

func (k ErrKind) String() string {
	switch k {
	case ErrNone:
		return ""
	case ErrNotFound:
		return "not-found"
	case ErrFetchFailed:
		return "fetch-failed"
	case ErrNoTitle:
		return "no-title"
	}
	return "unknown"
}

// Snapshot is the upward contract: everything presentation needs to render,
// returned by value so callers never alias live state.
type Snapshot struct {
	Phase   string `json:"phase"`
	ErrKind string `json:"errorKind,omitempty"`
	Query   string `json:"query"`

	Candidates      []catalog.Candidate `json:"candidates"`
	SuggestLoading  bool                `json:"suggestLoading"`
	Searched        bool                `json:"searched"`
	ShowSuggestions bool                `json:"showSuggestions"`

	Record      *catalog.Record `json:"record,omitempty"`
	Summary     string          `json:"summary,omitempty"`
	SummaryKind string          `json:"summaryKind,omitempty"`
	Generating  bool            `json:"generating"`
	CanRetry    bool            `json:"canRetry"`
}

// PopularBook is one fixed tile on the landing view.
type PopularBook struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Cover  string `json:"cover"`
}

var popularBooks = []PopularBook{
	{Title: "Atomic Habits", Author: "James Clear", Cover: "/atomic.png"},
	{Title: "Thinking, Fast and Slow", Author: "Daniel Kahneman", Cover: "/thinking.png"},
	{Title: "Sapiens", Author: "Yuval Noah Harari", Cover: "/sapiens.png"},
	{Title: "The Psychology of Money", Author: "Morgan Housel", Cover: "/money.png"},
}

// PopularBooks returns the fixed popular-summaries tiles.
func PopularBooks() []PopularBook {
	out := make([]PopularBook, len(popularBooks))
	copy(out, popularBooks)
	return out
}
