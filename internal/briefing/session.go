// Package briefing sequences the title→record→summary pipeline for one user
// session: debounced suggestions, detail resolution, chained summary
// generation, and the staleness checks that keep async completions from
// clobbering newer state.
package briefing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ujjwal16295/book-ai/internal/catalog"
	"github.com/ujjwal16295/book-ai/internal/debounce"
	"github.com/ujjwal16295/book-ai/internal/logging"
	"github.com/ujjwal16295/book-ai/internal/summarize"
)

// Session orchestrates suggestions, detail resolution and summary generation
// for one user. All exported methods are safe for concurrent use.
type Session struct {
	suggestions SuggestionSource
	details     DetailSource
	generator   summarize.Generator
	deb         *debounce.Debouncer
	onChange    func(Snapshot)

	// ResolveTimeout bounds one detail+summary chain. Set before first use.
	ResolveTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// token stamps every resolve/suggest; completions that no longer hold
	// the current token are dropped before touching view state.
	token uint64

	mu              sync.Mutex
	phase           Phase
	errKind         ErrKind
	query           string
	candidates      []catalog.Candidate
	suggestLoading  bool
	searched        bool
	showSuggestions bool
	record          catalog.Record
	hasRecord       bool
	summary         summarize.Result
	hasSummary      bool
}

// NewSession constructs a Session and starts its debounce consumer. onChange,
// if non-nil, is invoked with a fresh Snapshot after every state change.
// Callers must Close the session when the view goes away.
func NewSession(suggestions SuggestionSource, details DetailSource, generator summarize.Generator, onChange func(Snapshot)) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		suggestions:    suggestions,
		details:        details,
		generator:      generator,
		deb:            debounce.New(debounce.DefaultInterval),
		onChange:       onChange,
		ResolveTimeout: 30 * time.Second,
		ctx:            ctx,
		cancel:         cancel,
		phase:          PhaseIdle,
	}
	s.wg.Add(1)
	go s.consumeDebounce()
	return s
}

func (s *Session) consumeDebounce() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-s.deb.C():
			if !ok {
				return
			}
			switch ev.Kind {
			case debounce.KindClear:
				s.clearSuggestions()
			case debounce.KindSearch:
				s.runSuggest(ev.Query)
			}
		}
	}
}

// Type feeds one keystroke's worth of query text into the machine.
func (s *Session) Type(q string) {
	s.mu.Lock()
	s.query = q
	if strings.TrimSpace(q) == "" {
		s.phase = PhaseIdle
		s.candidates = nil
		s.searched = false
		s.showSuggestions = false
	} else if s.phase != PhaseSuggesting {
		s.phase = PhaseTyping
	}
	s.mu.Unlock()
	s.notify()
	s.deb.Push(q)
}

func (s *Session) clearSuggestions() {
	s.mu.Lock()
	s.candidates = nil
	s.searched = false
	s.showSuggestions = false
	if s.phase == PhaseSuggesting {
		s.phase = PhaseTyping
	}
	s.mu.Unlock()
	s.notify()
}

// runSuggest performs one suggestion lookup. Failures degrade to the same
// "no matches" shape the empty response takes; they are logged, not surfaced.
func (s *Session) runSuggest(q string) {
	token := atomic.AddUint64(&s.token, 1)

	s.mu.Lock()
	s.suggestLoading = true
	s.mu.Unlock()
	s.notify()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.ctx, s.ResolveTimeout)
		defer cancel()

		candidates, err := s.suggestions.Suggest(ctx, q)
		if err != nil {
			logging.Warn("suggestion lookup failed", "query", q, "err", err)
			candidates = nil
		}

		s.mu.Lock()
		// Guaranteed release of the loading flag on every exit path, but
		// only the newest request may publish results.
		if s.ctx.Err() != nil || atomic.LoadUint64(&s.token) != token {
			s.suggestLoading = false
			s.mu.Unlock()
			return
		}
		s.suggestLoading = false
		s.searched = true
		s.candidates = candidates
		s.showSuggestions = len(candidates) > 0
		if s.phase == PhaseTyping || s.phase == PhaseSuggesting {
			if len(candidates) > 0 {
				s.phase = PhaseSuggesting
			} else {
				s.phase = PhaseTyping
			}
		}
		s.mu.Unlock()
		s.notify()
	}()
}

// DismissSuggestions hides the dropdown without touching the query
// (outside-click behavior).
func (s *Session) DismissSuggestions() {
	s.mu.Lock()
	s.showSuggestions = false
	if s.phase == PhaseSuggesting {
		s.phase = PhaseTyping
	}
	s.mu.Unlock()
	s.notify()
}

// Submit resolves the typed title.
func (s *Session) Submit(title string) {
	s.resolve(title)
}

// PickSuggestion resolves a clicked candidate, echoing its title into the
// query box first.
func (s *Session) PickSuggestion(c catalog.Candidate) {
	s.mu.Lock()
	s.query = c.Title
	s.mu.Unlock()
	s.resolve(c.Title)
}

// PickPopular resolves a popular-tile title.
func (s *Session) PickPopular(title string) {
	s.resolve(title)
}

// resolve runs the detail→summary chain. Detail success triggers exactly one
// generation with no further user action; both completions are dropped if a
// newer resolve has superseded this one.
func (s *Session) resolve(title string) {
	title = strings.TrimSpace(title)
	s.deb.Cancel()
	token := atomic.AddUint64(&s.token, 1)

	s.mu.Lock()
	s.candidates = nil
	s.searched = false
	s.showSuggestions = false
	s.hasRecord = false
	s.hasSummary = false
	if title == "" {
		s.phase = PhaseError
		s.errKind = ErrNoTitle
		s.mu.Unlock()
		s.notify()
		return
	}
	s.phase = PhaseResolving
	s.errKind = ErrNone
	s.mu.Unlock()
	s.notify()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.ctx, s.ResolveTimeout)
		defer cancel()

		rec, err := s.details.Lookup(ctx, title)
		if s.stale(token, "detail", title) {
			return
		}
		if err != nil {
			kind := ErrFetchFailed
			if errors.Is(err, catalog.ErrNotFound) {
				kind = ErrNotFound
				logging.Info("book not found", "title", title)
			} else {
				logging.Warn("detail lookup failed", "title", title, "err", err)
			}
			s.mu.Lock()
			s.phase = PhaseError
			s.errKind = kind
			s.mu.Unlock()
			s.notify()
			return
		}

		s.mu.Lock()
		s.record = rec
		s.hasRecord = true
		s.phase = PhaseGenerating
		s.mu.Unlock()
		s.notify()

		res := summarize.Summarize(ctx, s.generator, rec.Title, rec.Authors)
		if s.stale(token, "summary", title) {
			return
		}
		s.mu.Lock()
		s.summary = res
		s.hasSummary = true
		s.phase = PhaseReady
		s.mu.Unlock()
		s.notify()
	}()
}

// Retry re-runs summary generation for the live record. Each invocation
// fully replaces the summary; overlapping retries are last-write-wins.
func (s *Session) Retry() {
	s.mu.Lock()
	if s.phase != PhaseReady || !s.hasRecord {
		s.mu.Unlock()
		return
	}
	rec := s.record
	s.phase = PhaseGenerating
	s.mu.Unlock()
	s.notify()

	token := atomic.AddUint64(&s.token, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.ctx, s.ResolveTimeout)
		defer cancel()

		res := summarize.Summarize(ctx, s.generator, rec.Title, rec.Authors)
		if s.stale(token, "retry", rec.Title) {
			return
		}
		s.mu.Lock()
		s.summary = res
		s.hasSummary = true
		s.phase = PhaseReady
		s.mu.Unlock()
		s.notify()
	}()
}

// stale reports whether token has been superseded or the session closed;
// stale completions are dropped silently apart from a debug line.
func (s *Session) stale(token uint64, stage, title string) bool {
	if s.ctx.Err() != nil || atomic.LoadUint64(&s.token) != token {
		logging.Debug("dropping stale completion", "stage", stage, "title", title)
		return true
	}
	return false
}

// Snapshot returns the current view state by value.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Phase:           s.phase.String(),
		ErrKind:         s.errKind.String(),
		Query:           s.query,
		SuggestLoading:  s.suggestLoading,
		Searched:        s.searched,
		ShowSuggestions: s.showSuggestions,
		Generating:      s.phase == PhaseGenerating,
	}
	if len(s.candidates) > 0 {
		snap.Candidates = make([]catalog.Candidate, len(s.candidates))
		copy(snap.Candidates, s.candidates)
	}
	if s.hasRecord {
		rec := s.record
		snap.Record = &rec
	}
	if s.hasSummary {
		snap.Summary = s.summary.Text
		snap.SummaryKind = s.summary.Kind.String()
	}
	snap.CanRetry = s.phase == PhaseReady && s.hasRecord
	return snap
}

// Phase reports the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// ErrorKind reports the current error kind (ErrNone outside PhaseError).
func (s *Session) ErrorKind() ErrKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errKind
}

// Close cancels in-flight work and stops the debouncer. In-flight requests
// targeting the closed session are dropped silently rather than erroring.
func (s *Session) Close() {
	s.cancel()
	s.deb.Stop()
	s.wg.Wait()
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange(s.Snapshot())
	}
}
