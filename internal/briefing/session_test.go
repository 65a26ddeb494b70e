package briefing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ujjwal16295/book-ai/internal/catalog"
	"github.com/ujjwal16295/book-ai/internal/summarize"
)

type fakeSuggest struct {
	candidates []catalog.Candidate
	err        error
	calls      int32
}

func (f *fakeSuggest) Suggest(ctx context.Context, q string) ([]catalog.Candidate, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

type fakeDetails struct {
	mu      sync.Mutex
	records map[string]catalog.Record
	err     error
	calls   int32
	// gate, when set for a title, blocks that lookup until the channel closes
	gates map[string]chan struct{}
}

func (f *fakeDetails) Lookup(ctx context.Context, title string) (catalog.Record, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	gate := f.gates[title]
	rec, ok := f.records[title]
	err := f.err
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return catalog.Record{}, ctx.Err()
		}
	}
	if err != nil {
		return catalog.Record{}, err
	}
	if !ok {
		return catalog.Record{}, catalog.ErrNotFound
	}
	return rec, nil
}

type fakeGen struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int32
	prompts []string
}

func (f *fakeGen) Generate(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	reply, err := f.reply, f.err
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	return reply, nil
}

func waitPhase(t *testing.T, s *Session, want Phase) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Phase() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for phase %v, at %v", want, s.Phase())
}

func waitSnapshot(t *testing.T, s *Session, ok func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := s.Snapshot(); ok(snap) {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for snapshot condition; last: %+v", s.Snapshot())
	return Snapshot{}
}

func sapiensRecord() catalog.Record {
	return catalog.Record{Title: "Sapiens", Authors: "Yuval Noah Harari", Description: "A history."}
}

func TestScenario_SapiensHappyPath(t *testing.T) {
	sugg := &fakeSuggest{candidates: []catalog.Candidate{
		{ID: "v1", Title: "Sapiens", Authors: "Yuval Noah Harari"},
	}}
	det := &fakeDetails{records: map[string]catalog.Record{"Sapiens": sapiensRecord()}}
	gen := &fakeGen{reply: "Humankind, briefly."}
	s := NewSession(sugg, det, gen, nil)
	defer s.Close()

	s.Type("Sapiens")
	snap := waitSnapshot(t, s, func(sn Snapshot) bool { return sn.ShowSuggestions })
	if len(snap.Candidates) != 1 || snap.Candidates[0].Title != "Sapiens" {
		t.Fatalf("unexpected candidates: %+v", snap.Candidates)
	}
	if s.Phase() != PhaseSuggesting {
		t.Fatalf("expected suggesting, got %v", s.Phase())
	}

	s.PickSuggestion(snap.Candidates[0])
	waitPhase(t, s, PhaseReady)

	final := s.Snapshot()
	if final.ShowSuggestions {
		t.Fatalf("suggestions must be dismissed on pick")
	}
	if final.Record == nil || final.Record.Title != "Sapiens" {
		t.Fatalf("unexpected record: %+v", final.Record)
	}
	if final.Summary != "Humankind, briefly." || final.SummaryKind != "generated" {
		t.Fatalf("unexpected summary: %+v", final)
	}
	if got := atomic.LoadInt32(&gen.calls); got != 1 {
		t.Fatalf("expected exactly one generation call, got %d", got)
	}
	gen.mu.Lock()
	prompt := gen.prompts[0]
	gen.mu.Unlock()
	if !strings.Contains(prompt, "Sapiens") || !strings.Contains(prompt, "Yuval Noah Harari") {
		t.Fatalf("generation not chained with resolved title/author: %q", prompt)
	}
}

func TestResolve_NotFoundSkipsGeneration(t *testing.T) {
	det := &fakeDetails{}
	gen := &fakeGen{reply: "never"}
	s := NewSession(&fakeSuggest{}, det, gen, nil)
	defer s.Close()

	s.Submit("zzzznotabook1234")
	waitPhase(t, s, PhaseError)
	if s.ErrorKind() != ErrNotFound {
		t.Fatalf("expected not-found, got %v", s.ErrorKind())
	}
	if atomic.LoadInt32(&gen.calls) != 0 {
		t.Fatalf("no summary call may be made on not-found")
	}
}

func TestResolve_FetchFailedIsDistinct(t *testing.T) {
	det := &fakeDetails{err: errors.New("connection reset")}
	s := NewSession(&fakeSuggest{}, det, &fakeGen{}, nil)
	defer s.Close()

	s.Submit("anything")
	waitPhase(t, s, PhaseError)
	if s.ErrorKind() != ErrFetchFailed {
		t.Fatalf("expected fetch-failed, got %v", s.ErrorKind())
	}
}

func TestResolve_EmptyTitleErrorsImmediately(t *testing.T) {
	det := &fakeDetails{}
	s := NewSession(&fakeSuggest{}, det, &fakeGen{}, nil)
	defer s.Close()

	s.Submit("   ")
	if s.Phase() != PhaseError || s.ErrorKind() != ErrNoTitle {
		t.Fatalf("expected immediate no-title error, got %v/%v", s.Phase(), s.ErrorKind())
	}
	if atomic.LoadInt32(&det.calls) != 0 {
		t.Fatalf("no detail call may be made without a title")
	}
}

func TestGenerationFallbackStillReachesReady(t *testing.T) {
	det := &fakeDetails{records: map[string]catalog.Record{"Sapiens": sapiensRecord()}}
	gen := &fakeGen{err: errors.New("model down")}
	s := NewSession(&fakeSuggest{}, det, gen, nil)
	defer s.Close()

	s.Submit("Sapiens")
	waitPhase(t, s, PhaseReady)
	snap := s.Snapshot()
	if snap.Summary != summarize.FallbackFailed || snap.SummaryKind != "failed" {
		t.Fatalf("expected failed fallback, got %+v", snap)
	}
	if !snap.CanRetry {
		t.Fatalf("retry must be offered from ready-with-fallback")
	}
}

func TestRetry_FullyReplacesSummary(t *testing.T) {
	det := &fakeDetails{records: map[string]catalog.Record{"Sapiens": sapiensRecord()}}
	gen := &fakeGen{err: errors.New("down")}
	s := NewSession(&fakeSuggest{}, det, gen, nil)
	defer s.Close()

	s.Submit("Sapiens")
	waitPhase(t, s, PhaseReady)

	gen.mu.Lock()
	gen.err = nil
	gen.reply = "Fresh summary."
	gen.mu.Unlock()

	s.Retry()
	waitSnapshot(t, s, func(sn Snapshot) bool { return sn.Phase == "ready" && sn.Summary == "Fresh summary." })

	// A second retry replaces again, never concatenates
	gen.mu.Lock()
	gen.reply = "Another take."
	gen.mu.Unlock()
	s.Retry()
	snap := waitSnapshot(t, s, func(sn Snapshot) bool { return sn.Phase == "ready" && sn.Summary == "Another take." })
	if strings.Contains(snap.Summary, "Fresh summary.") {
		t.Fatalf("retry concatenated summaries: %q", snap.Summary)
	}
	if got := atomic.LoadInt32(&gen.calls); got != 3 {
		t.Fatalf("expected 3 generation calls, got %d", got)
	}
}

func TestStaleResolveIsDropped(t *testing.T) {
	gate := make(chan struct{})
	det := &fakeDetails{
		records: map[string]catalog.Record{
			"Slow": {Title: "Slow", Authors: "A"},
			"Fast": {Title: "Fast", Authors: "B"},
		},
		gates: map[string]chan struct{}{"Slow": gate},
	}
	gen := &fakeGen{reply: "sum"}
	s := NewSession(&fakeSuggest{}, det, gen, nil)
	defer s.Close()

	s.Submit("Slow")
	waitPhase(t, s, PhaseResolving)
	s.Submit("Fast")
	waitSnapshot(t, s, func(sn Snapshot) bool {
		return sn.Phase == "ready" && sn.Record != nil && sn.Record.Title == "Fast"
	})

	close(gate) // the first resolve now completes, but it is stale
	time.Sleep(30 * time.Millisecond)
	snap := s.Snapshot()
	if snap.Record == nil || snap.Record.Title != "Fast" {
		t.Fatalf("stale resolve overwrote newer record: %+v", snap.Record)
	}
	if snap.Phase != "ready" {
		t.Fatalf("stale completion disturbed phase: %v", snap.Phase)
	}
}

func TestSuggestions_ThreeDistinctStates(t *testing.T) {
	s := NewSession(&fakeSuggest{}, &fakeDetails{}, &fakeGen{}, nil)
	defer s.Close()

	// Not yet searched
	snap := s.Snapshot()
	if snap.Searched || snap.SuggestLoading {
		t.Fatalf("fresh session must be un-searched: %+v", snap)
	}

	// Searched with zero matches: distinct from both of the above
	s.Type("nomatches")
	snap = waitSnapshot(t, s, func(sn Snapshot) bool { return sn.Searched })
	if len(snap.Candidates) != 0 || snap.SuggestLoading || snap.ShowSuggestions {
		t.Fatalf("expected settled no-matches state: %+v", snap)
	}
}

func TestSuggest_FailureSwallowed(t *testing.T) {
	sugg := &fakeSuggest{err: errors.New("socket closed")}
	s := NewSession(sugg, &fakeDetails{}, &fakeGen{}, nil)
	defer s.Close()

	s.Type("sapiens")
	snap := waitSnapshot(t, s, func(sn Snapshot) bool { return sn.Searched })
	if snap.Phase == "error" {
		t.Fatalf("suggestion failure must not produce an error phase")
	}
	if len(snap.Candidates) != 0 || snap.SuggestLoading {
		t.Fatalf("expected swallowed failure to look like no matches: %+v", snap)
	}
}

func TestThresholdGating_NoSearchBelowThreeChars(t *testing.T) {
	sugg := &fakeSuggest{candidates: []catalog.Candidate{{Title: "x"}}}
	s := NewSession(sugg, &fakeDetails{}, &fakeGen{}, nil)
	defer s.Close()

	s.Type("sa")
	time.Sleep(400 * time.Millisecond) // past the debounce interval
	if atomic.LoadInt32(&sugg.calls) != 0 {
		t.Fatalf("no search may fire below the threshold")
	}
	if snap := s.Snapshot(); snap.ShowSuggestions {
		t.Fatalf("suggestion list must stay hidden")
	}
}

func TestDismissKeepsQuery(t *testing.T) {
	sugg := &fakeSuggest{candidates: []catalog.Candidate{{Title: "Dune"}}}
	s := NewSession(sugg, &fakeDetails{}, &fakeGen{}, nil)
	defer s.Close()

	s.Type("Dune")
	waitSnapshot(t, s, func(sn Snapshot) bool { return sn.ShowSuggestions })
	s.DismissSuggestions()
	snap := s.Snapshot()
	if snap.ShowSuggestions {
		t.Fatalf("dropdown must be dismissed")
	}
	if snap.Query != "Dune" {
		t.Fatalf("query must survive dismissal, got %q", snap.Query)
	}
	if snap.Phase != "typing" {
		t.Fatalf("expected typing after dismiss, got %v", snap.Phase)
	}
}

func TestClose_DropsInFlightWork(t *testing.T) {
	gate := make(chan struct{})
	det := &fakeDetails{
		records: map[string]catalog.Record{"Slow": {Title: "Slow"}},
		gates:   map[string]chan struct{}{"Slow": gate},
	}
	s := NewSession(&fakeSuggest{}, det, &fakeGen{reply: "x"}, nil)
	s.Submit("Slow")
	waitPhase(t, s, PhaseResolving)
	done := make(chan struct{})
	go func() { s.Close(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("close blocked on in-flight lookup")
	}
}

func TestPopularBooks_FixedTiles(t *testing.T) {
	books := PopularBooks()
	if len(books) != 4 {
		t.Fatalf("expected 4 tiles, got %d", len(books))
	}
	if books[2].Title != "Sapiens" || books[2].Author != "Yuval Noah Harari" {
		t.Fatalf("unexpected tile: %+v", books[2])
	}
	books[0].Title = "mutated"
	if PopularBooks()[0].Title == "mutated" {
		t.Fatalf("PopularBooks must return a copy")
	}
}
