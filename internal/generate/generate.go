// Package generate turns resolved prompts into artifacts. It wraps the
// external generative services behind one Client contract and fans out a
// creation request into a composite result.
package generate

import (
	"context"
	"fmt"

	"github.com/hearthlight/backend/internal/model/chronicle"
)

// ErrorKind tags the uniform failure classes of every job client.
type ErrorKind string

const (
	// ErrMissingOutput means the service reported success without a usable
	// result payload.
	ErrMissingOutput ErrorKind = "missing_output"
	// ErrRemoteFailure means the service failed the request or the job
	// reached a terminal non-success state.
	ErrRemoteFailure ErrorKind = "remote_failure"
	// ErrTimeout means a polling budget was exhausted before the job
	// reached any terminal state.
	ErrTimeout ErrorKind = "timeout"
)

// GenerationError is the only error type job clients return. Transport and
// vendor errors are folded into it; nothing opaque escapes to the
// orchestrator.
type GenerationError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func genErr(kind ErrorKind, detail string, err error) *GenerationError {
	return &GenerationError{Kind: kind, Detail: detail, Err: err}
}

// Request describes one artifact to produce.
type Request struct {
	Kind   chronicle.Kind
	Theme  chronicle.Theme
	Prompt string
	// ProseText carries the final prose for clients that narrate it.
	ProseText string
}

// Client produces one artifact URI (or, for prose, the text itself) from a
// request. Implementations block until the artifact is ready or failed and
// honor ctx cancellation at every network call and poll sleep.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}
