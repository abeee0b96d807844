package matcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"compliance-backend/internal/controls"
	"compliance-backend/internal/documents"
	"compliance-backend/internal/extract"
	"compliance-backend/internal/matches"
	"compliance-backend/internal/queue"
	"compliance-backend/internal/shared/storage/object"
	"compliance-backend/internal/shared/telemetry"
)

// Service runs one match scan end to end: extract the document's text, ask the
// matching collaborator for candidates, and replace the link's active matches
// with the new batch. The link status mirrors each stage so the dashboard can
// show scan progress.
type Service struct {
	Docs     documents.Repo
	Controls controls.Repo
	Matches  matches.Repo
	Store    object.ObjectStore
	Finder   MatchFinder
	Views    matches.ViewInvalidator
}

// ProcessScan handles one queued scan job.
func (s *Service) ProcessScan(ctx context.Context, msg queue.Message) error {
	link, err := s.Docs.GetLink(ctx, msg.LinkID)
	if err != nil {
		return fmt.Errorf("load link %s: %w", msg.LinkID, err)
	}
	doc, err := s.Docs.GetDocument(ctx, link.DocumentID)
	if err != nil {
		return s.failLink(ctx, link.ID, fmt.Errorf("load document %s: %w", link.DocumentID, err))
	}

	if err := s.Docs.SetLinkStatus(ctx, link.ID, documents.StatusExtracting, ""); err != nil {
		return err
	}
	text, err := s.documentText(ctx, doc)
	if err != nil {
		return s.failLink(ctx, link.ID, fmt.Errorf("extract: %w", err))
	}

	if err := s.Docs.SetLinkStatus(ctx, link.ID, documents.StatusAnalysing, ""); err != nil {
		return err
	}
	questions, err := s.Controls.ListQuestions(ctx, link.ControlID)
	if err != nil {
		return s.failLink(ctx, link.ID, fmt.Errorf("load questions: %w", err))
	}
	inputs := make([]QuestionInput, 0, len(questions))
	for _, q := range questions {
		inputs = append(inputs, QuestionInput{ID: q.ID, Text: q.Text})
	}

	candidates, err := s.Finder.FindMatches(ctx, link.ControlID, text, inputs)
	if err != nil {
		return s.failLink(ctx, link.ID, fmt.Errorf("find matches: %w", err))
	}

	if err := s.storeMatches(ctx, link, candidates); err != nil {
		return s.failLink(ctx, link.ID, fmt.Errorf("store matches: %w", err))
	}

	if err := s.Docs.SetLinkStatus(ctx, link.ID, documents.StatusAnalysed, ""); err != nil {
		return err
	}

	telemetry.Info("matcher.scan_complete", map[string]any{
		"link_id":     link.ID,
		"document_id": link.DocumentID,
		"control_id":  link.ControlID,
		"candidates":  len(candidates),
	})
	return nil
}

func (s *Service) documentText(ctx context.Context, doc documents.Document) (string, error) {
	text, err := extract.ExtractText(ctx, s.Store, doc.StorageKey, doc.MimeType, doc.FileName)
	if err != nil {
		return "", err
	}
	if doc.ExtractedTextKey == "" {
		if err := s.Docs.SetExtractedText(ctx, doc.ID, doc.StorageKey+".extracted.txt"); err != nil {
			return "", err
		}
	}
	return text, nil
}

// storeMatches supersedes the document's previous matches inside the control:
// old rows are deactivated, never deleted, so review history survives a
// rescan.
func (s *Service) storeMatches(ctx context.Context, link documents.ControlLink, candidates []Candidate) error {
	if err := s.Matches.DeactivateForDocument(ctx, link.ControlID, link.DocumentID); err != nil {
		return err
	}

	now := time.Now().UTC()
	batch := make([]matches.Match, 0, len(candidates))
	for _, cand := range candidates {
		batch = append(batch, matches.Match{
			ID:                uuid.NewString(),
			ControlID:         link.ControlID,
			QuestionID:        cand.QuestionID,
			DocumentID:        link.DocumentID,
			CompositeScore:    cand.Score,
			Acceptance:        matches.AcceptancePending,
			Active:            true,
			CrossControl:      cand.CrossControl,
			SourceControlID:   cand.SourceControlID,
			SuggestedResponse: cand.SuggestedResponse,
			MatchedPassage:    cand.MatchedPassage,
			AISummary:         cand.Summary,
			CreatedAt:         now,
		})
	}
	if err := s.Matches.CreateBatch(ctx, batch); err != nil {
		return err
	}

	if s.Views != nil {
		s.Views.InvalidateMatchList(link.ControlID)
		s.Views.InvalidateControlListing(link.ControlID)
		s.Views.InvalidateGaps(link.ControlID)
	}
	return nil
}

func (s *Service) failLink(ctx context.Context, linkID string, cause error) error {
	telemetry.Error("matcher.scan_failed", map[string]any{
		"link_id": linkID,
		"err":     cause.Error(),
	})
	if err := s.Docs.SetLinkStatus(ctx, linkID, documents.StatusError, cause.Error()); err != nil {
		return err
	}
	return cause
}
