package matches

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type recordingViews struct {
	matchList      []string
	controlListing []string
	gaps           []string
}

func (v *recordingViews) InvalidateMatchList(controlID string) {
	v.matchList = append(v.matchList, controlID)
}

func (v *recordingViews) InvalidateControlListing(controlID string) {
	v.controlListing = append(v.controlListing, controlID)
}

func (v *recordingViews) InvalidateGaps(controlID string) {
	v.gaps = append(v.gaps, controlID)
}

type recordingResponder struct {
	questionIDs []string
	responses   []string
	err         error
}

func (r *recordingResponder) SetQuestionResponse(ctx context.Context, questionID, response string) error {
	_ = ctx
	if r.err != nil {
		return r.err
	}
	r.questionIDs = append(r.questionIDs, questionID)
	r.responses = append(r.responses, response)
	return nil
}

func seedPending(t *testing.T, repo *MemoryRepo) Match {
	t.Helper()
	m := Match{
		ID:                "m1",
		ControlID:         "ctl-1",
		QuestionID:        "q1",
		DocumentID:        "doc-1",
		CompositeScore:    0.8,
		Acceptance:        AcceptancePending,
		Active:            true,
		SuggestedResponse: "Access reviews run quarterly.",
	}
	if err := repo.CreateBatch(context.Background(), []Match{m}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return m
}

func TestAcceptWritesStoreAndPropagates(t *testing.T) {
	repo := NewMemoryRepo()
	views := &recordingViews{}
	responder := &recordingResponder{}
	svc := NewService(repo, views, responder)
	seedPending(t, repo)

	if err := svc.Accept(context.Background(), "m1", "reviewer@x"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	m, err := repo.Get(context.Background(), "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m.Acceptance != AcceptanceAccepted {
		t.Fatalf("expected accepted, got %q", m.Acceptance)
	}
	if m.AcceptedResponse != "Access reviews run quarterly." {
		t.Fatalf("expected suggested response carried over, got %q", m.AcceptedResponse)
	}
	if m.ResponseEdited {
		t.Fatalf("plain accept must not mark edited")
	}
	if m.ReviewedBy != "reviewer@x" || m.ReviewedAt == nil {
		t.Fatalf("expected reviewer fields, got %+v", m)
	}
	if len(responder.questionIDs) != 1 || responder.questionIDs[0] != "q1" {
		t.Fatalf("expected response propagated to q1, got %v", responder.questionIDs)
	}
	if len(views.matchList) != 1 || len(views.controlListing) != 1 || len(views.gaps) != 1 {
		t.Fatalf("expected all three views invalidated: %+v", views)
	}
}

func TestAcceptEdited(t *testing.T) {
	repo := NewMemoryRepo()
	responder := &recordingResponder{}
	svc := NewService(repo, &recordingViews{}, responder)
	seedPending(t, repo)

	if err := svc.AcceptEdited(context.Background(), "m1", "Reviews run monthly.", "reviewer@x"); err != nil {
		t.Fatalf("accept edited: %v", err)
	}

	m, _ := repo.Get(context.Background(), "m1")
	if m.AcceptedResponse != "Reviews run monthly." || !m.ResponseEdited {
		t.Fatalf("expected edited response, got %+v", m)
	}
	if responder.responses[0] != "Reviews run monthly." {
		t.Fatalf("expected edited text propagated, got %q", responder.responses[0])
	}
}

func TestAcceptSucceedsWhenResponderFails(t *testing.T) {
	repo := NewMemoryRepo()
	views := &recordingViews{}
	responder := &recordingResponder{err: errors.New("questions service down")}
	svc := NewService(repo, views, responder)
	seedPending(t, repo)

	// The acceptance is already durable by the time the response write-through
	// runs, so its failure must not be reported as a failed transition.
	if err := svc.Accept(context.Background(), "m1", "reviewer@x"); err != nil {
		t.Fatalf("accept must succeed despite responder failure, got %v", err)
	}

	m, _ := repo.Get(context.Background(), "m1")
	if m.Acceptance != AcceptanceAccepted {
		t.Fatalf("expected accepted, got %q", m.Acceptance)
	}
	if len(views.matchList) != 1 || len(views.controlListing) != 1 || len(views.gaps) != 1 {
		t.Fatalf("expected all three views invalidated: %+v", views)
	}
	if err := svc.Accept(context.Background(), "m1", "reviewer@x"); !errors.Is(err, ErrNotPending) {
		t.Fatalf("retry must see a settled match, got %v", err)
	}
}

func TestAcceptEditedRejectsEmptyText(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, &recordingViews{}, nil)
	seedPending(t, repo)

	for _, text := range []string{"", "   ", "\n\t"} {
		if err := svc.AcceptEdited(context.Background(), "m1", text, "reviewer@x"); !errors.Is(err, ErrEmptyResponse) {
			t.Fatalf("text %q: expected ErrEmptyResponse, got %v", text, err)
		}
	}

	m, _ := repo.Get(context.Background(), "m1")
	if !m.Pending() {
		t.Fatalf("match must stay pending after rejected edit")
	}
}

func TestDismissSkipsGapInvalidationAndResponder(t *testing.T) {
	repo := NewMemoryRepo()
	views := &recordingViews{}
	responder := &recordingResponder{}
	svc := NewService(repo, views, responder)
	seedPending(t, repo)

	if err := svc.Dismiss(context.Background(), "m1", "reviewer@x"); err != nil {
		t.Fatalf("dismiss: %v", err)
	}

	m, _ := repo.Get(context.Background(), "m1")
	if m.Acceptance != AcceptanceDismissed {
		t.Fatalf("expected dismissed, got %q", m.Acceptance)
	}
	if m.AcceptedResponse != "" {
		t.Fatalf("dismiss must not record a response, got %q", m.AcceptedResponse)
	}
	if len(responder.questionIDs) != 0 {
		t.Fatalf("dismiss must not touch question responses")
	}
	if len(views.gaps) != 0 {
		t.Fatalf("dismiss must not invalidate gaps")
	}
	if len(views.matchList) != 1 || len(views.controlListing) != 1 {
		t.Fatalf("dismiss still refreshes listings: %+v", views)
	}
}

func TestTransitionRejectsNonPending(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, &recordingViews{}, nil)
	seedPending(t, repo)

	if err := svc.Accept(context.Background(), "m1", "a"); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if err := svc.Accept(context.Background(), "m1", "b"); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
	if err := svc.Dismiss(context.Background(), "m1", "b"); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
}

func TestTransitionRejectsInactive(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, &recordingViews{}, nil)
	seedPending(t, repo)
	if err := repo.DeactivateForDocument(context.Background(), "ctl-1", "doc-1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if err := svc.Accept(context.Background(), "m1", "a"); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
}

func TestTransitionUnknownMatch(t *testing.T) {
	svc := NewService(NewMemoryRepo(), &recordingViews{}, nil)
	if err := svc.Accept(context.Background(), "nope", "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type failingRepo struct {
	*MemoryRepo
}

func (r *failingRepo) SetAcceptance(ctx context.Context, matchID string, verdict Acceptance, response string, edited bool, reviewedBy string) error {
	_ = ctx
	_ = matchID
	_ = verdict
	_ = response
	_ = edited
	_ = reviewedBy
	return errors.New("store down")
}

func TestStoreFailureLeavesMatchPending(t *testing.T) {
	mem := NewMemoryRepo()
	views := &recordingViews{}
	svc := NewService(&failingRepo{MemoryRepo: mem}, views, nil)
	seedPending(t, mem)

	if err := svc.Accept(context.Background(), "m1", "a"); err == nil {
		t.Fatalf("expected store error")
	}

	m, _ := mem.Get(context.Background(), "m1")
	if !m.Pending() {
		t.Fatalf("match must remain pending after store failure")
	}
	if len(views.matchList) != 0 || len(views.gaps) != 0 {
		t.Fatalf("no views may be invalidated on failure: %+v", views)
	}
}

// gateRepo blocks Get until released, simulating a slow store so a second
// transition arrives while the first is still outstanding.
type gateRepo struct {
	*MemoryRepo
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *gateRepo) Get(ctx context.Context, matchID string) (Match, error) {
	r.once.Do(func() { close(r.entered) })
	<-r.release
	return r.MemoryRepo.Get(ctx, matchID)
}

func TestConcurrentTransitionRejected(t *testing.T) {
	mem := NewMemoryRepo()
	repo := &gateRepo{MemoryRepo: mem, entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(repo, &recordingViews{}, nil)
	seedPending(t, mem)

	done := make(chan error, 1)
	go func() {
		done <- svc.Accept(context.Background(), "m1", "first")
	}()
	<-repo.entered

	if err := svc.Dismiss(context.Background(), "m1", "second"); !errors.Is(err, ErrTransitionInFlight) {
		t.Fatalf("expected ErrTransitionInFlight, got %v", err)
	}

	close(repo.release)
	if err := <-done; err != nil {
		t.Fatalf("first transition failed: %v", err)
	}

	m, _ := mem.Get(context.Background(), "m1")
	if m.Acceptance != AcceptanceAccepted {
		t.Fatalf("expected first transition to win, got %q", m.Acceptance)
	}
}
