package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/plutodesk/plutodesk/internal/domain/catalog"
	"github.com/plutodesk/plutodesk/internal/domain/session"
	"github.com/plutodesk/plutodesk/internal/port/inbound"
	"github.com/plutodesk/plutodesk/internal/port/outbound"
)

// ErrInvalidInput is returned when a request is missing required fields.
var ErrInvalidInput = errors.New("invalid input")

var tracer = otel.Tracer("github.com/plutodesk/plutodesk/internal/service")

// SessionService is the single shared entry point to the session store.
// A mutex serializes every read and mutation, and each mutation is written
// to the repository before the mutex is released. Catalog lookups and event
// emission happen outside the mutex.
//
// A failed write does not undo the in-memory change: the method returns an
// error wrapping session.ErrIO and the store keeps the new state.
type SessionService struct {
	mu    sync.Mutex
	store *session.Store

	repo    session.Repository
	catalog catalog.Catalog
	events  outbound.EventEmitter
	metrics *Metrics
	logger  *slog.Logger
}

// SessionServiceOption configures optional SessionService dependencies.
type SessionServiceOption func(*SessionService)

// WithEventEmitter sets where session-state-changed events are sent.
func WithEventEmitter(e outbound.EventEmitter) SessionServiceOption {
	return func(s *SessionService) { s.events = e }
}

// WithMetrics sets the metrics the service records to.
func WithMetrics(m *Metrics) SessionServiceOption {
	return func(s *SessionService) { s.metrics = m }
}

// NewSessionService wraps an already loaded store.
func NewSessionService(store *session.Store, repo session.Repository, cat catalog.Catalog, logger *slog.Logger, opts ...SessionServiceOption) *SessionService {
	s := &SessionService{
		store:   store,
		repo:    repo,
		catalog: cat,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics.setState(store.Len(), store.ActiveID().Valid)
	return s
}

// Sessions returns every session record in creation order.
func (s *SessionService) Sessions(ctx context.Context) []session.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.All()
}

// Count returns the number of sessions.
func (s *SessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Len()
}

// Get returns the session with the given id.
func (s *SessionService) Get(ctx context.Context, id uuid.UUID) (session.Record, error) {
	s.mu.Lock()
	r, ok := s.store.Get(id)
	s.mu.Unlock()
	if !ok {
		return session.Record{}, fmt.Errorf("%w: session with id %s", session.ErrNotFound, id)
	}
	return r, nil
}

// ExistsForContext reports whether a session targets exactly c.
func (s *SessionService) ExistsForContext(ctx context.Context, c session.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ExistsForContext(c)
}

// ActiveSession returns the active session record without resolving names.
func (s *SessionService) ActiveSession(ctx context.Context) (session.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Active()
}

// ActiveContext returns the active session's folder, course and set ids.
func (s *SessionService) ActiveContext(ctx context.Context) (session.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.store.Active()
	return r.Context, ok
}

// List returns every session with its folder, course and set names.
// Fails with session.ErrRelatedNotFound if any of them no longer exists.
func (s *SessionService) List(ctx context.Context) ([]inbound.SessionView, error) {
	ctx, span := tracer.Start(ctx, "SessionService.List")
	defer span.End()

	records := s.Sessions(ctx)

	r := newResolver(s.catalog)
	views := make([]inbound.SessionView, 0, len(records))
	for _, rec := range records {
		v, err := r.view(ctx, rec)
		if err != nil {
			return nil, endSpan(span, err)
		}
		views = append(views, v)
	}
	span.SetAttributes(attribute.Int("sessions.count", len(views)))
	return views, nil
}

// Active returns the active session with names resolved, or nil if none.
func (s *SessionService) Active(ctx context.Context) (*inbound.SessionView, error) {
	ctx, span := tracer.Start(ctx, "SessionService.Active")
	defer span.End()

	s.mu.Lock()
	rec, ok := s.store.Active()
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	v, err := newResolver(s.catalog).view(ctx, rec)
	if err != nil {
		return nil, endSpan(span, err)
	}
	return &v, nil
}

// CreateSession adds a session for c without checking for an existing one.
// If the write fails the record is still returned alongside the error.
func (s *SessionService) CreateSession(ctx context.Context, name string, c session.Context, startNow bool) (session.Record, error) {
	ctx, span := tracer.Start(ctx, "SessionService.CreateSession")
	defer span.End()

	var rec session.Record
	err := s.mutate(ctx, "create", func(st *session.Store) error {
		rec = st.Create(name, c, startNow)
		return nil
	})
	span.SetAttributes(attribute.String("session.id", rec.ID.String()))
	if err == nil {
		s.logger.Info("session created", "session_id", rec.ID, "name", rec.Name, "started", startNow)
	}
	return rec, endSpan(span, err)
}

// CreateAndStart finds or creates the named folder, course and set, then
// creates and starts a session for them. Fails with session.ErrContextExists
// if a session for that context already exists. If only the write fails, the
// view is returned alongside an error wrapping session.ErrIO.
func (s *SessionService) CreateAndStart(ctx context.Context, req inbound.CreateRequest) (*inbound.SessionView, error) {
	ctx, span := tracer.Start(ctx, "SessionService.CreateAndStart")
	defer span.End()

	folderName := strings.TrimSpace(req.FolderName)
	courseName := strings.TrimSpace(req.CourseName)
	setName := strings.TrimSpace(req.SetName)
	if folderName == "" || courseName == "" || setName == "" {
		return nil, endSpan(span, fmt.Errorf("%w: folder, course and set names are required", ErrInvalidInput))
	}

	userID, err := s.catalog.DefaultUser(ctx)
	if err != nil {
		return nil, endSpan(span, fmt.Errorf("get default user: %w", err))
	}
	folder, err := s.catalog.FindOrCreateFolder(ctx, userID, folderName)
	if err != nil {
		return nil, endSpan(span, fmt.Errorf("find or create folder: %w", err))
	}
	course, err := s.catalog.FindOrCreateCourse(ctx, folder.ID, courseName)
	if err != nil {
		return nil, endSpan(span, fmt.Errorf("find or create course: %w", err))
	}
	set, err := s.catalog.FindOrCreateSet(ctx, course.ID, setName)
	if err != nil {
		return nil, endSpan(span, fmt.Errorf("find or create set: %w", err))
	}

	c := session.Context{FolderID: folder.ID, CourseID: course.ID, SetID: set.ID}
	name := fmt.Sprintf("%s / %s / %s", folder.Name, course.Name, set.Name)

	var rec session.Record
	err = s.mutate(ctx, "create", func(st *session.Store) error {
		if st.ExistsForContext(c) {
			return fmt.Errorf("%w: a session for '%s' already exists, select it from the session list", session.ErrContextExists, name)
		}
		rec = st.Create(name, c, true)
		return nil
	})
	if rec.ID == uuid.Nil {
		return nil, endSpan(span, err)
	}

	span.SetAttributes(attribute.String("session.id", rec.ID.String()))
	s.logger.Info("session created and started", "session_id", rec.ID, "name", name)

	v := newView(rec, folder.Name, course.Name, set.Name)
	return &v, endSpan(span, err)
}

// Start makes the session with the given id active.
func (s *SessionService) Start(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "SessionService.Start",
		trace.WithAttributes(attribute.String("session.id", id.String())))
	defer span.End()

	err := s.mutate(ctx, "start", func(st *session.Store) error {
		return st.Start(id)
	})
	if err == nil {
		s.logger.Info("session started", "session_id", id)
	}
	return endSpan(span, err)
}

// End clears the active session and returns it, or nil if none was active.
func (s *SessionService) End(ctx context.Context) (*session.Record, error) {
	ctx, span := tracer.Start(ctx, "SessionService.End")
	defer span.End()

	var ended *session.Record
	err := s.mutate(ctx, "end", func(st *session.Store) error {
		if r, ok := st.End(); ok {
			ended = &r
		}
		return nil
	})
	if ended != nil {
		s.logger.Info("session ended", "session_id", ended.ID, "name", ended.Name)
	}
	return ended, endSpan(span, err)
}

// Delete removes a session, clearing the active session if it was this one.
func (s *SessionService) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "SessionService.Delete",
		trace.WithAttributes(attribute.String("session.id", id.String())))
	defer span.End()

	err := s.mutate(ctx, "delete", func(st *session.Store) error {
		return st.Delete(id)
	})
	if err == nil {
		s.logger.Info("session deleted", "session_id", id)
	}
	return endSpan(span, err)
}

// Reload replaces the in-memory store with the repository contents. On
// failure the current store is kept and the error returned.
func (s *SessionService) Reload(ctx context.Context) error {
	_, span := tracer.Start(ctx, "SessionService.Reload")
	defer span.End()

	s.mu.Lock()
	fresh, err := s.repo.Load()
	if err != nil {
		s.mu.Unlock()
		s.metrics.observe("reload", err)
		s.logger.Warn("reload sessions failed, keeping current sessions", "error", err)
		return endSpan(span, fmt.Errorf("reload sessions: %w", err))
	}
	s.store = fresh
	count, active := fresh.Len(), fresh.ActiveID().Valid
	s.mu.Unlock()

	s.metrics.observe("reload", nil)
	s.metrics.setState(count, active)
	s.emit(outbound.EventSessionStateChanged, nil)
	s.logger.Info("sessions reloaded from disk", "count", count)
	return nil
}

// mutate runs fn under the mutex and, if fn succeeds, saves the store before
// releasing it. An fn error leaves nothing to save and is returned as is.
//
// With a SharedRepository the cross-process lock is held for the whole
// cycle, and the store is first reloaded if another process changed it.
func (s *SessionService) mutate(ctx context.Context, op string, fn func(st *session.Store) error) error {
	s.mu.Lock()
	unlock, err := s.syncShared(op)
	if err != nil {
		s.mu.Unlock()
		s.metrics.observe(op, err)
		return err
	}
	if err := fn(s.store); err != nil {
		unlock()
		s.mu.Unlock()
		s.metrics.observe(op, err)
		return err
	}
	saveErr := s.repo.Save(s.store.Snapshot())
	unlock()
	count, active := s.store.Len(), s.store.ActiveID().Valid
	s.mu.Unlock()

	if saveErr != nil {
		s.metrics.persistFailed()
		s.logger.Error("session change kept in memory but not saved", "op", op, "error", saveErr)
		saveErr = fmt.Errorf("persist sessions after %s: %w", op, saveErr)
	}
	s.metrics.observe(op, saveErr)
	s.metrics.setState(count, active)
	s.emit(outbound.EventSessionStateChanged, nil)
	return saveErr
}

// syncShared takes the repository's cross-process lock, if it has one, and
// replaces the store with the persisted contents when another process has
// written since this one last loaded or saved. Called with s.mu held.
func (s *SessionService) syncShared(op string) (func(), error) {
	shared, ok := s.repo.(session.SharedRepository)
	if !ok {
		return func() {}, nil
	}
	unlock, err := shared.Lock()
	if err != nil {
		return nil, fmt.Errorf("lock sessions before %s: %w", op, err)
	}
	if !shared.Modified() {
		return unlock, nil
	}
	fresh, err := shared.Load()
	if err != nil {
		unlock()
		s.logger.Error("sessions changed on disk but could not be reloaded", "op", op, "error", err)
		return nil, fmt.Errorf("reload sessions before %s: %w", op, err)
	}
	s.store = fresh
	s.logger.Info("sessions reloaded from disk before change", "op", op, "count", fresh.Len())
	return unlock, nil
}

func (s *SessionService) emit(name string, payload any) {
	if s.events != nil {
		s.events.Emit(name, payload)
	}
}

// resolver looks up catalog names, caching by id for the duration of one call.
type resolver struct {
	catalog catalog.Catalog
	names   map[uuid.UUID]string
}

func newResolver(c catalog.Catalog) *resolver {
	return &resolver{catalog: c, names: make(map[uuid.UUID]string)}
}

func (r *resolver) view(ctx context.Context, rec session.Record) (inbound.SessionView, error) {
	folder, err := r.name(ctx, "folder", rec.FolderID, r.catalog.Folder)
	if err != nil {
		return inbound.SessionView{}, err
	}
	course, err := r.name(ctx, "course", rec.CourseID, r.catalog.Course)
	if err != nil {
		return inbound.SessionView{}, err
	}
	set, err := r.name(ctx, "set", rec.SetID, r.catalog.Set)
	if err != nil {
		return inbound.SessionView{}, err
	}
	return newView(rec, folder, course, set), nil
}

func (r *resolver) name(ctx context.Context, kind string, id uuid.UUID, get func(context.Context, uuid.UUID) (catalog.Entry, error)) (string, error) {
	if n, ok := r.names[id]; ok {
		return n, nil
	}
	e, err := get(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return "", fmt.Errorf("%w: %s with id %s not found", session.ErrRelatedNotFound, kind, id)
	}
	if err != nil {
		return "", fmt.Errorf("resolve %s %s: %w", kind, id, err)
	}
	r.names[id] = e.Name
	return e.Name, nil
}

func newView(r session.Record, folder, course, set string) inbound.SessionView {
	return inbound.SessionView{
		ID:         r.ID,
		Name:       r.Name,
		FolderID:   r.FolderID,
		CourseID:   r.CourseID,
		SetID:      r.SetID,
		FolderName: folder,
		CourseName: course,
		SetName:    set,
		CreatedAt:  r.CreatedAt,
		LastUsed:   r.LastUsed,
	}
}

// endSpan records err on span and returns it unchanged.
func endSpan(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

var _ inbound.SessionCommands = (*SessionService)(nil)
