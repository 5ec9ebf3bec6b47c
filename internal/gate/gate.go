// Package gate puts passphrase entry in front of a grid session.
//
// The gate holds no state of its own beyond which prompt is open. It
// resolves the grid, initializes the session, asks for a passphrase when
// the grid is protected, and asks for a new one when protecting a grid.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/guildgrid/internal/engine"
	"github.com/roach88/guildgrid/internal/model"
)

// ErrCancelled is returned when the user submits an empty passphrase.
var ErrCancelled = errors.New("passphrase entry cancelled")

// PromptKind identifies the open prompt.
type PromptKind int

const (
	PromptNone PromptKind = iota
	// PromptUnlock asks for the passphrase of a protected grid.
	PromptUnlock
	// PromptProtect asks for a new passphrase for an unprotected grid.
	PromptProtect
)

// String returns the prompt name.
func (k PromptKind) String() string {
	switch k {
	case PromptNone:
		return "none"
	case PromptUnlock:
		return "unlock"
	case PromptProtect:
		return "protect"
	default:
		return fmt.Sprintf("PromptKind(%d)", int(k))
	}
}

// Prompter asks the user for a passphrase.
// Implemented by the CLI's terminal prompter.
type Prompter interface {
	PromptPassphrase(ctx context.Context, kind PromptKind, doc model.GridDocument) (string, error)
}

// Resolver finds a grid by guild and slug.
type Resolver interface {
	Resolve(ctx context.Context, guildID, slug string) (model.GridDocument, error)
}

// Session is the part of *engine.Session the gate drives.
type Session interface {
	Initialize(ctx context.Context, doc model.GridDocument) error
	SuppliedPassword(ctx context.Context, passphrase string) error
	SetPassword(ctx context.Context, passphrase string) error
	State() engine.State
	Document() model.GridDocument
}

// Gate orchestrates passphrase prompts around one session.
type Gate struct {
	resolver Resolver
	session  Session
	prompter Prompter

	mu   sync.Mutex
	open PromptKind
}

// New creates a gate.
func New(resolver Resolver, session Session, prompter Prompter) *Gate {
	return &Gate{resolver: resolver, session: session, prompter: prompter}
}

// Open resolves the grid and brings the session to Ready, prompting for
// the passphrase if the grid is protected. A missing grid returns the
// resolver's not-found error untouched.
func (g *Gate) Open(ctx context.Context, guildID, slug string) (model.GridDocument, error) {
	doc, err := g.resolver.Resolve(ctx, guildID, slug)
	if err != nil {
		return model.GridDocument{}, err
	}

	if err := g.session.Initialize(ctx, doc); err != nil {
		return doc, fmt.Errorf("open grid: %w", err)
	}
	if g.session.State() != engine.StatePendingPassword {
		return doc, nil
	}

	pw, err := g.prompt(ctx, PromptUnlock, doc)
	if err != nil {
		return doc, err
	}
	if err := g.session.SuppliedPassword(ctx, pw); err != nil {
		return doc, fmt.Errorf("unlock grid: %w", err)
	}
	return doc, nil
}

// Protect prompts for a new passphrase and protects the session's grid.
func (g *Gate) Protect(ctx context.Context) error {
	if s := g.session.State(); s != engine.StateReady {
		return fmt.Errorf("protect grid: %w (state=%s)", engine.ErrInvalidState, s)
	}

	pw, err := g.prompt(ctx, PromptProtect, g.session.Document())
	if err != nil {
		return err
	}
	if err := g.session.SetPassword(ctx, pw); err != nil {
		return fmt.Errorf("protect grid: %w", err)
	}
	return nil
}

// CurrentPrompt returns the prompt that is open, or PromptNone.
func (g *Gate) CurrentPrompt() PromptKind {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

func (g *Gate) prompt(ctx context.Context, kind PromptKind, doc model.GridDocument) (string, error) {
	g.mu.Lock()
	if g.open != PromptNone {
		open := g.open
		g.mu.Unlock()
		return "", fmt.Errorf("%s prompt requested while %s prompt is open", kind, open)
	}
	g.open = kind
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.open = PromptNone
		g.mu.Unlock()
	}()

	slog.Debug("prompting for passphrase", "prompt", kind.String(), "grid_id", doc.ID)

	pw, err := g.prompter.PromptPassphrase(ctx, kind, doc)
	if err != nil {
		return "", fmt.Errorf("%s prompt: %w", kind, err)
	}
	if pw == "" {
		return "", ErrCancelled
	}
	return pw, nil
}
