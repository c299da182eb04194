package tray

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/plutodesk/plutodesk/internal/domain/session"
	"github.com/plutodesk/plutodesk/internal/port/inbound"
	"github.com/plutodesk/plutodesk/internal/port/outbound"
)

type fakeSessions struct {
	inbound.SessionCommands
	active *session.Record
	endErr error
	ends   int
}

func (f *fakeSessions) End(ctx context.Context) (*session.Record, error) {
	f.ends++
	ended := f.active
	f.active = nil
	return ended, f.endErr
}

type recorder struct {
	mu            sync.Mutex
	notifications [][2]string
	events        []string
	focused       int
}

func (r *recorder) Notify(title, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, [2]string{title, body})
}

func (r *recorder) Emit(name string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

func (r *recorder) AnyVisible() bool { return true }

func (r *recorder) FocusMain() error {
	r.focused++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestMenu(sessions *fakeSessions, quit func()) (*Menu, *recorder) {
	rec := &recorder{}
	return NewMenu(sessions, rec, rec, rec, quit, testLogger()), rec
}

func TestMenu_EndSession(t *testing.T) {
	tests := []struct {
		name      string
		active    *session.Record
		endErr    error
		wantTitle string
		wantBody  string
	}{
		{
			name:      "active session",
			active:    &session.Record{ID: uuid.New(), Name: "Math / Calculus / Integrals"},
			wantTitle: "Session Ended",
			wantBody:  "Ended: Math / Calculus / Integrals",
		},
		{
			name:      "no active session",
			wantTitle: "No Active Session",
			wantBody:  "There was no active session to end.",
		},
		{
			name:      "save failure still reports the end",
			active:    &session.Record{ID: uuid.New(), Name: "Physics"},
			endErr:    session.ErrIO,
			wantTitle: "Session Ended",
			wantBody:  "Ended: Physics",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &fakeSessions{active: tt.active, endErr: tt.endErr}
			m, rec := newTestMenu(sessions, nil)

			if err := m.HandleEvent(context.Background(), ItemEndSession); err != nil {
				t.Fatalf("HandleEvent() error = %v", err)
			}
			if sessions.ends != 1 {
				t.Errorf("End() called %d times, want 1", sessions.ends)
			}
			if len(rec.notifications) != 1 {
				t.Fatalf("notifications = %v", rec.notifications)
			}
			if got := rec.notifications[0]; got[0] != tt.wantTitle || got[1] != tt.wantBody {
				t.Errorf("notification = %q / %q, want %q / %q", got[0], got[1], tt.wantTitle, tt.wantBody)
			}
		})
	}
}

func TestMenu_StartSessionOpensModal(t *testing.T) {
	m, rec := newTestMenu(&fakeSessions{}, nil)

	if err := m.HandleEvent(context.Background(), ItemStartSession); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if rec.focused != 1 {
		t.Errorf("FocusMain() called %d times, want 1", rec.focused)
	}
	if len(rec.events) != 1 || rec.events[0] != outbound.EventOpenSessionModal {
		t.Errorf("events = %v", rec.events)
	}
}

func TestMenu_Quit(t *testing.T) {
	called := false
	m, _ := newTestMenu(&fakeSessions{}, func() { called = true })

	if err := m.HandleEvent(context.Background(), ItemQuit); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if !called {
		t.Error("quit callback not called")
	}
}

func TestMenu_UnknownItem(t *testing.T) {
	m, _ := newTestMenu(&fakeSessions{}, nil)

	if err := m.HandleEvent(context.Background(), "settings"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("HandleEvent() error = %v, want ErrUnknownItem", err)
	}
}

func TestMenu_Items(t *testing.T) {
	m, _ := newTestMenu(&fakeSessions{}, nil)
	items := m.Items()
	if len(items) != 3 || items[0] != ItemStartSession || items[2] != ItemQuit {
		t.Errorf("Items() = %v", items)
	}
}
