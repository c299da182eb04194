// Package inbound defines the inbound port interfaces for the session core.
// Inbound adapters (HTTP API, tray menu, hotkey, CLI) call these interfaces.
package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/plutodesk/plutodesk/internal/domain/catalog"
	"github.com/plutodesk/plutodesk/internal/domain/session"
)

// SessionView is a session with its folder, course and set names resolved.
type SessionView struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	FolderID   uuid.UUID `json:"folder_id"`
	CourseID   uuid.UUID `json:"course_id"`
	SetID      uuid.UUID `json:"set_id"`
	FolderName string    `json:"folder_name"`
	CourseName string    `json:"course_name"`
	SetName    string    `json:"set_name"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsed   time.Time `json:"last_used"`
}

// CreateRequest names the folder, course and set for a new session.
// Missing entries are created.
type CreateRequest struct {
	FolderName string `json:"folder_name"`
	CourseName string `json:"course_name"`
	SetName    string `json:"set_name"`
}

// SessionCommands is the session API shared by every call site.
// Implementations are safe for concurrent use.
type SessionCommands interface {
	// List returns every session with names resolved.
	List(ctx context.Context) ([]SessionView, error)

	// Active returns the active session, or nil if none.
	Active(ctx context.Context) (*SessionView, error)

	// CreateAndStart creates a session for the named context and makes it active.
	CreateAndStart(ctx context.Context, req CreateRequest) (*SessionView, error)

	// Start makes the session with the given id active.
	Start(ctx context.Context, id uuid.UUID) error

	// End clears the active session and returns it, or nil if none was active.
	End(ctx context.Context) (*session.Record, error)

	// Delete removes a session.
	Delete(ctx context.Context, id uuid.UUID) error
}

// ScreenshotRequest is an image to file under the active session.
type ScreenshotRequest struct {
	// ProblemName is optional; a timestamped name is used when blank.
	ProblemName string
	Image       []byte
}

// ScreenshotSaver files screenshots under the active session's set.
type ScreenshotSaver interface {
	SaveScreenshot(ctx context.Context, req ScreenshotRequest) (*catalog.Problem, error)
}
