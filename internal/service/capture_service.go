package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/plutodesk/plutodesk/internal/adapter/outbound/screenshots"
	"github.com/plutodesk/plutodesk/internal/domain/catalog"
	"github.com/plutodesk/plutodesk/internal/domain/session"
	"github.com/plutodesk/plutodesk/internal/port/inbound"
	"github.com/plutodesk/plutodesk/internal/port/outbound"
)

// ImageStore writes screenshot files.
type ImageStore interface {
	Save(loc screenshots.Location, data []byte) (string, error)
	Remove(rel string) error
}

// ActiveContextReader reads the active session's context.
type ActiveContextReader interface {
	ActiveContext(ctx context.Context) (session.Context, bool)
}

// CaptureService files screenshots as problems under the active session's set.
type CaptureService struct {
	sessions ActiveContextReader
	catalog  catalog.Catalog
	images   ImageStore
	events   outbound.EventEmitter
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewCaptureService creates a CaptureService. events and metrics may be nil.
func NewCaptureService(sessions ActiveContextReader, cat catalog.Catalog, images ImageStore, events outbound.EventEmitter, metrics *Metrics, logger *slog.Logger) *CaptureService {
	return &CaptureService{
		sessions: sessions,
		catalog:  cat,
		images:   images,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// SaveScreenshot writes the image under the active session's
// folder/course/set directory and records it as a problem.
// Fails with session.ErrNoActiveSession when no session is active and with
// session.ErrRelatedNotFound when the session's set hierarchy is gone.
func (s *CaptureService) SaveScreenshot(ctx context.Context, req inbound.ScreenshotRequest) (*catalog.Problem, error) {
	ctx, span := tracer.Start(ctx, "CaptureService.SaveScreenshot")
	defer span.End()

	c, ok := s.sessions.ActiveContext(ctx)
	if !ok {
		return nil, endSpan(span, session.ErrNoActiveSession)
	}

	r := newResolver(s.catalog)
	folder, err := r.name(ctx, "folder", c.FolderID, s.catalog.Folder)
	if err != nil {
		return nil, endSpan(span, err)
	}
	course, err := r.name(ctx, "course", c.CourseID, s.catalog.Course)
	if err != nil {
		return nil, endSpan(span, err)
	}
	set, err := r.name(ctx, "set", c.SetID, s.catalog.Set)
	if err != nil {
		return nil, endSpan(span, err)
	}

	title := SuggestProblemName(req.ProblemName, s.now())
	rel, err := s.images.Save(screenshots.Location{Folder: folder, Course: course, Set: set, Problem: title}, req.Image)
	if err != nil {
		return nil, endSpan(span, fmt.Errorf("save screenshot: %w", err))
	}

	p, err := s.catalog.CreateProblem(ctx, c.SetID, title, rel)
	if err != nil {
		if rmErr := s.images.Remove(rel); rmErr != nil {
			s.logger.Warn("failed to remove orphaned screenshot", "path", rel, "error", rmErr)
		}
		if errors.Is(err, catalog.ErrNotFound) {
			err = fmt.Errorf("%w: set with id %s not found", session.ErrRelatedNotFound, c.SetID)
		}
		return nil, endSpan(span, fmt.Errorf("create problem: %w", err))
	}

	span.SetAttributes(attribute.String("problem.id", p.ID.String()))
	s.metrics.screenshotSaved()
	if s.events != nil {
		s.events.Emit(outbound.EventProblemSaved, p)
	}
	s.logger.Info("screenshot saved", "problem_id", p.ID, "title", title, "path", rel)
	return &p, nil
}

var _ inbound.ScreenshotSaver = (*CaptureService)(nil)
