// Package oracle wraps the external language-model service behind a narrow
// completion interface.
package oracle

import (
	"context"
)

// Completer is the single call contract the core depends on. Implementations
// must honor ctx cancellation and bound their own network timeouts.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}
