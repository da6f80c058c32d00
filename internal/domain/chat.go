package domain

import "context"

// ChatCompleter is the shared chat completion contract between layers.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResult, error)
}

// ChatRequest is a single-turn chat completion request.
type ChatRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// ChatResult carries the completion text and token usage through the decorator chain.
type ChatResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
