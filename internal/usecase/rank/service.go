// Package rank orders scraped candidates by relevance to the query.
// The semantic path embeds the query and each candidate with the
// configured model and scores by cosine similarity; when no model is
// available (or a call fails) every candidate keeps its scrape position
// and gets a lexical-overlap score instead. Ranking never fails a search.
package rank

import (
	"context"

	"go.uber.org/zap"

	"github.com/santara-labs/statuta/internal/domain"
	"github.com/santara-labs/statuta/internal/domain/document"
	"github.com/santara-labs/statuta/internal/domain/search/result"
	"github.com/santara-labs/statuta/internal/textproc"
)

// candidateChars bounds how much of a document body feeds its embedding.
// Regulation bodies run to hundreds of KB; the opening plus the title
// carries the subject matter.
const candidateChars = 1000

// Service scores and orders candidate documents.
type Service struct {
	queryEmbedder Embedder
	docEmbedder   Embedder
	logger        *zap.Logger
}

// New creates a ranking service. Both embedders may be nil, which
// disables semantic ranking entirely.
func New(queryEmbedder, docEmbedder Embedder, logger *zap.Logger) *Service {
	return &Service{
		queryEmbedder: queryEmbedder,
		docEmbedder:   docEmbedder,
		logger:        logger.Named("rank"),
	}
}

// Rank scores docs against queryText and returns them as results, best
// first, with stable ties (candidates with equal scores keep their
// scrape order). degraded reports that the embedding model was skipped
// or failed and the lexical fallback ran: fallback results stay in
// scrape order. Rank positions are not assigned here; the caller ranks
// after truncation.
func (s *Service) Rank(
	ctx context.Context, queryText string, docs []document.Document,
) (results []result.Result, degraded bool) {
	if len(docs) == 0 {
		return nil, false
	}

	if s.queryEmbedder == nil || s.docEmbedder == nil {
		return s.lexicalFallback(queryText, docs), true
	}

	results, err := s.semantic(ctx, queryText, docs)
	if err != nil {
		s.logger.Warn("Semantic ranking failed, using lexical fallback", zap.Error(err))
		return s.lexicalFallback(queryText, docs), true
	}

	result.SortByScore(results)
	return results, false
}

// semantic embeds the query and all candidates and scores by cosine
// similarity. Candidates are embedded in one batch call where the
// provider supports it.
func (s *Service) semantic(
	ctx context.Context, queryText string, docs []document.Document,
) ([]result.Result, error) {
	queryRes, err := s.queryEmbedder.Embed(ctx, queryText)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = candidateText(&docs[i])
	}

	batch, err := s.batchEmbed(ctx, texts)
	if err != nil {
		return nil, err
	}

	results := make([]result.Result, len(docs))
	for i := range docs {
		score := cosine(queryRes.Embedding, batch.Embeddings[i])
		results[i] = result.New(docs[i], score, 0)
	}

	s.logger.Debug("Semantic ranking complete",
		zap.Int("candidates", len(docs)),
		zap.Int("tokens", queryRes.TotalTokens+batch.TotalTokens),
	)
	return results, nil
}

func (s *Service) batchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := s.docEmbedder.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, s.docEmbedder, texts)
}

// lexicalFallback scores every candidate by query-word overlap and keeps
// the scrape order untouched.
func (s *Service) lexicalFallback(queryText string, docs []document.Document) []result.Result {
	results := make([]result.Result, len(docs))
	for i := range docs {
		score := textproc.LexicalOverlap(queryText, candidateText(&docs[i]))
		results[i] = result.New(docs[i], score, 0)
	}
	return results
}

// candidateText is what gets embedded (or matched) for one document:
// the title plus the opening of the body.
func candidateText(doc *document.Document) string {
	content := doc.Content()
	if len(content) > candidateChars {
		content = content[:candidateChars]
	}
	return doc.Title() + "\n" + content
}
