package enhance

import (
	"context"

	"github.com/santara-labs/statuta/internal/domain"
)

// Completer produces chat completions.
type Completer interface {
	Complete(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error)
}
