// Package viewer keeps the overlay of a displayed page in sync with the
// page's on-screen size.
//
// A Session owns one document and one visible page. While a page is shown a
// poll loop samples its rendered size and redraws the overlay whenever the
// size or the document's entities change. Showing another page, loading
// another document or clearing the session cancels the loop; once those calls
// return, nothing computed for the previous page reaches the Sink.
package viewer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/normalize"
	"github.com/MeKo-Tech/kyclens/internal/overlay"
)

// DefaultPollInterval is how often the rendered size is sampled.
const DefaultPollInterval = 250 * time.Millisecond

// SizeProbe reports the current on-screen size of a page's image. A zero
// size means the page has not been laid out yet.
type SizeProbe interface {
	PageSize(page int) overlay.RenderedSize
}

// Sink receives freshly projected rectangles. Draw is called with the session
// lock held and must not call back into the session.
type Sink interface {
	Draw(page int, rects []overlay.ScreenRect)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(page int, rects []overlay.ScreenRect)

// Draw implements Sink.
func (f SinkFunc) Draw(page int, rects []overlay.ScreenRect) { f(page, rects) }

// Fetcher retrieves a document's extraction result.
type Fetcher func(ctx context.Context) (*extraction.DocumentResult, error)

// Snapshot is an immutable view of a document's entities. A new snapshot is
// swapped in on every ingestion; readers never see a partial one.
type Snapshot struct {
	Entities   map[int][]normalize.Entity
	Dimensions map[int]*extraction.PageDimension
}

// NewSnapshot normalizes a document.
func NewSnapshot(doc *extraction.DocumentResult) *Snapshot {
	snap := &Snapshot{
		Entities:   normalize.Document(doc),
		Dimensions: make(map[int]*extraction.PageDimension),
	}
	if doc != nil {
		for _, p := range doc.Pages {
			if p.Dimension.Known() {
				snap.Dimensions[p.Index] = p.Dimension
			}
		}
	}
	return snap
}

// Project computes the rectangles of page at size.
func (s *Snapshot) Project(page int, size overlay.RenderedSize) []overlay.ScreenRect {
	if s == nil {
		return nil
	}
	return overlay.Project(s.Entities[page], page, size, s.Dimensions[page])
}

// Option configures a Session.
type Option func(*Session)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithErrorHandler receives fetch errors for the current document.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Session) { s.onError = fn }
}

// Session tracks one document and its visible page.
type Session struct {
	probe    SizeProbe
	sink     Sink
	interval time.Duration
	onError  func(error)

	snap atomic.Pointer[Snapshot]

	mu          sync.Mutex
	docGen      uint64
	viewGen     uint64
	page        int
	showing     bool
	stopPoll    context.CancelFunc
	cancelFetch context.CancelFunc
	closed      bool

	wg sync.WaitGroup
}

// NewSession creates an idle session.
func NewSession(probe SizeProbe, sink Sink, opts ...Option) *Session {
	s := &Session{
		probe:    probe,
		sink:     sink,
		interval: DefaultPollInterval,
		onError: func(err error) {
			slog.Warn("viewer: document fetch failed", "error", err)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load starts fetching a new document in the background and returns at once.
// The previous document is dropped immediately. The result is ingested only
// if no other Load or Clear happened in the meantime.
func (s *Session) Load(ctx context.Context, fetch Fetcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.resetDocumentLocked()
	s.restartPollLocked()

	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancelFetch = cancel
	gen := s.docGen

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		doc, err := fetch(fetchCtx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.docGen != gen {
			return
		}
		if err != nil {
			if fetchCtx.Err() == nil && s.onError != nil {
				s.onError(err)
			}
			return
		}
		s.snap.Store(NewSnapshot(doc))
	}()
}

// Ingest replaces the document with an already fetched result.
func (s *Session) Ingest(doc *extraction.DocumentResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.resetDocumentLocked()
	s.snap.Store(NewSnapshot(doc))
	s.restartPollLocked()
}

// ShowPage makes page the visible page and starts polling its size.
func (s *Session) ShowPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.page = page
	s.showing = true
	s.restartPollLocked()
}

// Clear drops the document and stops polling.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetDocumentLocked()
	s.showing = false
	s.viewGen++
	s.stopPollLocked()
}

// Page returns the visible page and whether one is shown.
func (s *Session) Page() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page, s.showing
}

// Snapshot returns the current document snapshot, or nil before ingestion.
func (s *Session) Snapshot() *Snapshot {
	return s.snap.Load()
}

// Close stops all background work and waits for it to finish.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.resetDocumentLocked()
	s.viewGen++
	s.stopPollLocked()
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Session) resetDocumentLocked() {
	s.docGen++
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	s.snap.Store(nil)
}

func (s *Session) stopPollLocked() {
	if s.stopPoll != nil {
		s.stopPoll()
		s.stopPoll = nil
	}
}

// restartPollLocked invalidates the running loop and, when a page is shown,
// starts a fresh one for it.
func (s *Session) restartPollLocked() {
	s.viewGen++
	s.stopPollLocked()
	if !s.showing || s.probe == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopPoll = cancel
	gen, page := s.viewGen, s.page

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.poll(ctx, gen, page)
	}()
}

func (s *Session) poll(ctx context.Context, gen uint64, page int) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var (
		lastSize overlay.RenderedSize
		lastSnap *Snapshot
		drawn    bool
	)
	for {
		size := s.probe.PageSize(page)
		snap := s.snap.Load()
		if !drawn || size != lastSize || snap != lastSnap {
			rects := snap.Project(page, size)
			if !s.deliver(gen, page, rects) {
				return
			}
			lastSize, lastSnap, drawn = size, snap, true
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// deliver hands rects to the sink unless the loop that computed them has been
// superseded. It reports whether the loop is still current.
func (s *Session) deliver(gen uint64, page int, rects []overlay.ScreenRect) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewGen != gen {
		return false
	}
	if s.sink != nil {
		s.sink.Draw(page, rects)
	}
	return true
}
