package analysis

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// chunkReader yields one scripted chunk per Read call, then err (io.EOF by
// default). It exercises the carry-over path by controlling chunk boundaries.
type chunkReader struct {
	chunks []string
	err    error
	idx    int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.idx >= len(r.chunks) {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.idx])
	r.idx++
	return n, nil
}

func (r *chunkReader) Close() error { return nil }

type fakeStreamClient struct {
	body   io.ReadCloser
	err    error
	opened chan struct{}
	once   sync.Once
}

func (f *fakeStreamClient) OpenStream(ctx context.Context, linkID string, req Request) (io.ReadCloser, error) {
	_ = ctx
	_ = linkID
	_ = req
	if f.opened != nil {
		f.once.Do(func() { close(f.opened) })
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func TestStartAccumulatesTextAndResult(t *testing.T) {
	// The result line is split across chunk boundaries on purpose.
	client := &fakeStreamClient{body: &chunkReader{chunks: []string{
		"data: {\"text\":\"Analyzing \"}\n",
		"data: {\"text\":\"control...\"}\ndata: {\"sugge",
		"sted_status\":\"Pass\",\"confidence\":0.9}\n",
	}}}
	svc := NewService(client, NewSessionStore())

	session, err := svc.Start(context.Background(), "ctl-1", "link-1", Request{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Analysing {
		t.Fatalf("expected session to be finished")
	}
	if session.Text != "Analyzing control..." {
		t.Fatalf("unexpected text: %q", session.Text)
	}
	if session.Result == nil {
		t.Fatalf("expected result")
	}
	if session.Result.SuggestedStatus != StatusPass {
		t.Fatalf("expected Pass, got %q", session.Result.SuggestedStatus)
	}
	if session.Result.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %v", session.Result.Confidence)
	}
	if session.Err != "" {
		t.Fatalf("unexpected session error: %q", session.Err)
	}
	if session.Persona != PersonaAuditor {
		t.Fatalf("expected default persona, got %q", session.Persona)
	}
}

func TestStartFinalLineWithoutNewline(t *testing.T) {
	client := &fakeStreamClient{body: &chunkReader{chunks: []string{
		"data: {\"text\":\"evidence reviewed\"}\ndata: {\"assessment\":\"ok\"}",
	}}}
	svc := NewService(client, NewSessionStore())

	session, err := svc.Start(context.Background(), "ctl-1", "link-1", Request{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Result == nil || session.Result.Assessment != "ok" {
		t.Fatalf("expected trailing result line to be flushed, got %#v", session.Result)
	}
}

func TestStartErrorEventDiscardsResult(t *testing.T) {
	client := &fakeStreamClient{body: &chunkReader{chunks: []string{
		"data: {\"text\":\"partial\"}\n",
		"data: {\"error\":\"rate limited\"}\n",
		"data: {\"suggested_status\":\"Pass\"}\ndata: {\"text\":\"late\"}\n",
	}}}
	svc := NewService(client, NewSessionStore())

	session, err := svc.Start(context.Background(), "ctl-1", "link-1", Request{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Err != "rate limited" {
		t.Fatalf("expected rate limited, got %q", session.Err)
	}
	if session.Result != nil {
		t.Fatalf("expected no result after error event")
	}
	// Text up to the error stays readable; events after it are ignored.
	if session.Text != "partial" {
		t.Fatalf("unexpected text: %q", session.Text)
	}
}

func TestStartResultThenMoreDeltas(t *testing.T) {
	// A result does not end the stream; trailing narrative still accumulates
	// and the first result is kept.
	client := &fakeStreamClient{body: &chunkReader{chunks: []string{
		"data: {\"suggested_status\":\"Fail\"}\n",
		"data: {\"text\":\"closing notes\"}\n",
		"data: {\"suggested_status\":\"Pass\"}\n",
	}}}
	svc := NewService(client, NewSessionStore())

	session, err := svc.Start(context.Background(), "ctl-1", "link-1", Request{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Result == nil || session.Result.SuggestedStatus != StatusFail {
		t.Fatalf("expected first result to win, got %#v", session.Result)
	}
	if session.Text != "closing notes" {
		t.Fatalf("unexpected text: %q", session.Text)
	}
}

func TestStartOpenStreamFailure(t *testing.T) {
	client := &fakeStreamClient{err: &RequestError{StatusCode: 429, Message: "quota exceeded"}}
	svc := NewService(client, NewSessionStore())

	session, err := svc.Start(context.Background(), "ctl-1", "link-1", Request{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Err != "quota exceeded" {
		t.Fatalf("expected request error message, got %q", session.Err)
	}
	if session.Analysing {
		t.Fatalf("expected finished session")
	}
	if session.Text != "" {
		t.Fatalf("expected no partial text, got %q", session.Text)
	}
}

func TestStartTransportInterruption(t *testing.T) {
	client := &fakeStreamClient{body: &chunkReader{
		chunks: []string{"data: {\"text\":\"par\"}\n"},
		err:    errors.New("connection reset"),
	}}
	svc := NewService(client, NewSessionStore())

	session, err := svc.Start(context.Background(), "ctl-1", "link-1", Request{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Err != "assessment stream interrupted" {
		t.Fatalf("unexpected error message: %q", session.Err)
	}
	if session.Text != "par" {
		t.Fatalf("partial text should survive, got %q", session.Text)
	}
}

func TestStartCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := &fakeStreamClient{body: io.NopCloser(strings.NewReader("data: {\"text\":\"x\"}\n"))}
	svc := NewService(client, NewSessionStore())

	session, err := svc.Start(ctx, "ctl-1", "link-1", Request{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Err != "analysis cancelled" {
		t.Fatalf("expected cancellation message, got %q", session.Err)
	}
}

// blockingReader holds the stream open until released.
type blockingReader struct {
	release chan struct{}
	once    sync.Once
}

func (r *blockingReader) Read(p []byte) (int, error) {
	<-r.release
	return 0, io.EOF
}

func (r *blockingReader) Close() error {
	r.once.Do(func() { close(r.release) })
	return nil
}

func TestStartRejectsConcurrentRunForSameLink(t *testing.T) {
	body := &blockingReader{release: make(chan struct{})}
	client := &fakeStreamClient{body: body, opened: make(chan struct{})}
	svc := NewService(client, NewSessionStore())

	done := make(chan struct{})
	go func() {
		_, _ = svc.Start(context.Background(), "ctl-1", "link-1", Request{}, nil)
		close(done)
	}()

	// OpenStream is only called once the run holds the per-link slot.
	select {
	case <-client.opened:
	case <-time.After(2 * time.Second):
		t.Fatalf("first run never opened its stream")
	}

	if _, err := svc.Start(context.Background(), "ctl-1", "link-1", Request{}, nil); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	body.Close()
	<-done

	// Slot is released after the first run completes.
	session, err := svc.Start(context.Background(), "ctl-1", "link-1", Request{}, nil)
	if err != nil {
		t.Fatalf("expected run after release, got %v", err)
	}
	if session.ID == "" {
		t.Fatalf("expected session id")
	}
}

func TestSessionStoreDiscardStopsUpdates(t *testing.T) {
	store := NewSessionStore()
	store.Begin("s1", "ctl-1", "link-1", PersonaAnalyst)
	store.Discard("s1")
	store.Apply("s1", TextDelta{Text: "late"})
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("expected session to be gone")
	}
}
