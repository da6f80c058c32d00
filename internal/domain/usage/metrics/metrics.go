package metrics

// Metrics holds LLM API usage for a time period.
type Metrics struct {
	chatRequests      int
	embeddingRequests int
	tokens            int
}

// New creates a Metrics snapshot.
func New(chatRequests, embeddingRequests, tokens int) Metrics {
	return Metrics{
		chatRequests:      chatRequests,
		embeddingRequests: embeddingRequests,
		tokens:            tokens,
	}
}

// ChatRequests returns the number of chat completion calls.
func (m Metrics) ChatRequests() int { return m.chatRequests }

// EmbeddingRequests returns the number of embedding API calls.
func (m Metrics) EmbeddingRequests() int { return m.embeddingRequests }

// Tokens returns the total tokens consumed.
func (m Metrics) Tokens() int { return m.tokens }
