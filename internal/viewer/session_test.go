package viewer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/overlay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type draw struct {
	page  int
	rects []overlay.ScreenRect
	after bool
}

type recorder struct {
	mu       sync.Mutex
	draws    []draw
	switched bool
}

func (r *recorder) Draw(page int, rects []overlay.ScreenRect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draws = append(r.draws, draw{page: page, rects: rects, after: r.switched})
}

func (r *recorder) markSwitched() {
	r.mu.Lock()
	r.switched = true
	r.mu.Unlock()
}

func (r *recorder) snapshot() []draw {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]draw(nil), r.draws...)
}

func (r *recorder) last() (draw, bool) {
	d := r.snapshot()
	if len(d) == 0 {
		return draw{}, false
	}
	return d[len(d)-1], true
}

func twoPageDocument() *extraction.DocumentResult {
	return &extraction.DocumentResult{Pages: []extraction.PageResult{
		{Index: 0, Fields: []extraction.FieldResult{
			{Name: "FirstName", Value: "John", Page: 0, Box: extraction.PointRect(0.2, 0.3, 0.1, 0.05)},
		}},
		{Index: 1, Dimension: &extraction.PageDimension{Width: 1000, Height: 2000}, Fields: []extraction.FieldResult{
			{Name: "Employer", Value: "ACME", Page: 1, Box: extraction.PointRect(10, 10, 100, 50)},
		}},
	}}
}

func newTestSession(t *testing.T, vp *Viewport, rec *recorder, opts ...Option) *Session {
	t.Helper()
	s := NewSession(vp, rec, append([]Option{WithPollInterval(2 * time.Millisecond)}, opts...)...)
	t.Cleanup(s.Close)
	return s
}

func TestSessionRedrawsOnResize(t *testing.T) {
	vp := &Viewport{}
	rec := &recorder{}
	s := newTestSession(t, vp, rec)

	s.Ingest(twoPageDocument())
	s.ShowPage(0)

	// Not laid out yet: the overlay is empty.
	require.Eventually(t, func() bool {
		d, ok := rec.last()
		return ok && len(d.rects) == 0
	}, time.Second, time.Millisecond)

	vp.Set(overlay.RenderedSize{Width: 1000, Height: 2000})
	require.Eventually(t, func() bool {
		d, ok := rec.last()
		return ok && len(d.rects) == 1 && d.rects[0].X == 200
	}, time.Second, time.Millisecond)

	vp.Set(overlay.RenderedSize{Width: 500, Height: 1000})
	require.Eventually(t, func() bool {
		d, ok := rec.last()
		return ok && len(d.rects) == 1 && d.rects[0].X == 100 && d.rects[0].Width == 50
	}, time.Second, time.Millisecond)
}

func TestSessionDoesNotRedrawWhenNothingChanged(t *testing.T) {
	vp := &Viewport{}
	vp.Set(overlay.RenderedSize{Width: 100, Height: 100})
	rec := &recorder{}
	s := newTestSession(t, vp, rec)

	s.Ingest(twoPageDocument())
	s.ShowPage(0)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
}

func TestSessionStalePageGuard(t *testing.T) {
	vp := &Viewport{}
	vp.Set(overlay.RenderedSize{Width: 500, Height: 1000})
	rec := &recorder{}
	s := newTestSession(t, vp, rec)

	s.Ingest(twoPageDocument())
	s.ShowPage(0)
	require.Eventually(t, func() bool {
		d, ok := rec.last()
		return ok && d.page == 0 && len(d.rects) == 1
	}, time.Second, time.Millisecond)

	s.ShowPage(1)
	rec.markSwitched()

	require.Eventually(t, func() bool {
		d, ok := rec.last()
		return ok && d.page == 1 && len(d.rects) == 1
	}, time.Second, time.Millisecond)

	// Keep resizing so the old loop would have had plenty of chances.
	for i := range 10 {
		vp.Set(overlay.RenderedSize{Width: float64(400 + i), Height: 800})
		time.Sleep(time.Millisecond)
	}

	for _, d := range rec.snapshot() {
		if !d.after {
			continue
		}
		assert.Equal(t, 1, d.page)
		for _, r := range d.rects {
			assert.Equal(t, 1, r.Page)
			assert.Equal(t, "Employer", r.Key)
		}
	}

	require.Eventually(t, func() bool {
		d, ok := rec.last()
		return ok && len(d.rects) == 1 && d.rects[0].X == 4.09
	}, time.Second, time.Millisecond)
}

func TestSessionAsyncLoad(t *testing.T) {
	vp := &Viewport{}
	vp.Set(overlay.RenderedSize{Width: 1000, Height: 2000})
	rec := &recorder{}
	s := newTestSession(t, vp, rec)
	s.ShowPage(0)

	release := make(chan struct{})
	s.Load(context.Background(), func(ctx context.Context) (*extraction.DocumentResult, error) {
		select {
		case <-release:
			return twoPageDocument(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	// Load returned while the fetch is still blocked.
	assert.Nil(t, s.Snapshot())
	close(release)

	require.Eventually(t, func() bool {
		d, ok := rec.last()
		return ok && len(d.rects) == 1 && d.rects[0].Key == "FirstName"
	}, time.Second, time.Millisecond)
}

func TestSessionDiscardsSupersededLoad(t *testing.T) {
	vp := &Viewport{}
	vp.Set(overlay.RenderedSize{Width: 100, Height: 100})
	rec := &recorder{}
	s := newTestSession(t, vp, rec)
	s.ShowPage(0)

	slowStarted := make(chan struct{})
	s.Load(context.Background(), func(ctx context.Context) (*extraction.DocumentResult, error) {
		close(slowStarted)
		<-ctx.Done()
		// Even if a result arrives late it must not be ingested.
		return twoPageDocument(), nil
	})
	<-slowStarted

	second := &extraction.DocumentResult{Pages: []extraction.PageResult{{Index: 0, Fields: []extraction.FieldResult{
		{Name: "CIF", Value: "42", Page: 0, Box: extraction.PointRect(0.1, 0.1, 0.1, 0.1)},
	}}}}
	s.Load(context.Background(), func(context.Context) (*extraction.DocumentResult, error) {
		return second, nil
	})

	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap != nil && len(snap.Entities[0]) == 1 && snap.Entities[0][0].Key == "CIF"
	}, time.Second, time.Millisecond)

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, "CIF", s.Snapshot().Entities[0][0].Key)
}

func TestSessionPageSwitchKeepsFetch(t *testing.T) {
	vp := &Viewport{}
	vp.Set(overlay.RenderedSize{Width: 1000, Height: 2000})
	rec := &recorder{}
	s := newTestSession(t, vp, rec)
	s.ShowPage(0)

	release := make(chan struct{})
	s.Load(context.Background(), func(context.Context) (*extraction.DocumentResult, error) {
		<-release
		return twoPageDocument(), nil
	})
	s.ShowPage(1)
	close(release)

	require.Eventually(t, func() bool {
		d, ok := rec.last()
		return ok && d.page == 1 && len(d.rects) == 1
	}, time.Second, time.Millisecond)
}

func TestSessionClear(t *testing.T) {
	vp := &Viewport{}
	vp.Set(overlay.RenderedSize{Width: 100, Height: 100})
	rec := &recorder{}
	s := newTestSession(t, vp, rec)

	s.Ingest(twoPageDocument())
	s.ShowPage(0)
	require.Eventually(t, func() bool { return len(rec.snapshot()) > 0 }, time.Second, time.Millisecond)

	s.Clear()
	n := len(rec.snapshot())
	vp.Set(overlay.RenderedSize{Width: 300, Height: 300})
	time.Sleep(20 * time.Millisecond)

	assert.Len(t, rec.snapshot(), n)
	assert.Nil(t, s.Snapshot())
	_, showing := s.Page()
	assert.False(t, showing)
}

func TestSessionReportsFetchErrors(t *testing.T) {
	errCh := make(chan error, 1)
	s := newTestSession(t, &Viewport{}, &recorder{}, WithErrorHandler(func(err error) { errCh <- err }))

	boom := errors.New("extractor unavailable")
	s.Load(context.Background(), func(context.Context) (*extraction.DocumentResult, error) {
		return nil, boom
	})

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("error handler was not called")
	}
}
