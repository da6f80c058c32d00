package enhance

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/santara-labs/statuta/internal/domain"
	"github.com/santara-labs/statuta/internal/domain/search/query"
	"github.com/santara-labs/statuta/internal/domain/search/result"
	"github.com/santara-labs/statuta/internal/textproc"
)

const (
	// defaultKeywords caps rule-based keyword extraction. The model may
	// return more; its output is not truncated.
	defaultKeywords = 5

	// synthesisDocs is how many retrieved documents feed the answer prompt.
	synthesisDocs = 5
	// previewLimit bounds per-document content inside the prompt.
	previewLimit = 1000

	// fallbackDocs and fallbackPreview shape the LLM-less answer digest.
	fallbackDocs    = 3
	fallbackPreview = 200
)

// Service enhances queries and synthesizes answers with the chat model.
// Every operation degrades to a deterministic rule-based fallback when the
// model is missing or failing: retrieval keeps working without the LLM.
type Service struct {
	chat    Completer
	topDocs int
	logger  *zap.Logger
}

// New creates an enhancement service. chat may be nil, which disables the
// model and runs the rule-based paths only.
func New(chat Completer, logger *zap.Logger) *Service {
	return &Service{
		chat:    chat,
		topDocs: synthesisDocs,
		logger:  logger.Named("enhance"),
	}
}

// WithTopDocs overrides how many ranked documents feed the answer prompt.
func (s *Service) WithTopDocs(n int) *Service {
	if n > 0 {
		s.topDocs = n
	}
	return s
}

// EnhanceQuery rewrites a user query with proper legal terminology.
// Falls back to dictionary-based term expansion.
func (s *Service) EnhanceQuery(ctx context.Context, text string) string {
	if s.chat == nil {
		return textproc.ExpandLegalQuery(text)
	}

	prompt := fmt.Sprintf(
		"As a legal expert in Indonesian law, enhance this query to include proper legal terminology and relevant legal concepts:\n\nQuery: %s\n\nEnhanced query:",
		text,
	)

	res, err := s.chat.Complete(ctx, domain.ChatRequest{User: prompt})
	if err != nil {
		s.logger.Warn("Query enhancement failed, using rule-based expansion", zap.Error(err))
		return textproc.ExpandLegalQuery(text)
	}

	enhanced := strings.TrimSpace(res.Text)
	if enhanced == "" {
		return textproc.ExpandLegalQuery(text)
	}
	return enhanced
}

// Keywords extracts search keywords from a query. Falls back to picking
// words longer than three characters.
func (s *Service) Keywords(ctx context.Context, text string) []string {
	if s.chat == nil {
		return textproc.Keywords(text, defaultKeywords)
	}

	prompt := fmt.Sprintf(
		"As a legal expert in Indonesian law, extract the most important keywords from this query that would be effective for searching on a legal document website.\n\nOriginal query: %s\n\nExtract %d specific keywords or phrases that are most relevant for searching legal documents. Focus on legal terminology, document types, or specific regulations.\n\nFormat your response as a comma-separated list of keywords only, without any additional text.",
		text, defaultKeywords,
	)

	res, err := s.chat.Complete(ctx, domain.ChatRequest{User: prompt})
	if err != nil {
		s.logger.Warn("Keyword extraction failed, using word split", zap.Error(err))
		return textproc.Keywords(text, defaultKeywords)
	}

	keywords := splitKeywords(res.Text)
	if len(keywords) == 0 {
		return textproc.Keywords(text, defaultKeywords)
	}
	return keywords
}

// Synthesize produces an answer to the query from the top retrieved
// documents, honoring the verbosity, format, and citation preferences.
// Falls back to a plain document digest. Citations are built mechanically
// from the documents fed to the prompt, not parsed from model output.
func (s *Service) Synthesize(
	ctx context.Context, q query.Query, results []result.Result,
) (string, []result.Citation) {
	if len(results) == 0 {
		return "", nil
	}

	top := results
	if len(top) > s.topDocs {
		top = top[:s.topDocs]
	}

	var citations []result.Citation
	if q.Preferences().Citations {
		citations = make([]result.Citation, 0, len(top))
		for _, r := range top {
			doc := r.Document()
			citations = append(citations, result.Citation{
				DocumentID: doc.ID(),
				Title:      doc.Title(),
				SourceURL:  doc.SourceURL(),
			})
		}
	}

	if s.chat == nil {
		return simpleAnswer(q.Text(), results), citations
	}

	res, err := s.chat.Complete(ctx, domain.ChatRequest{User: synthesisPrompt(q, top)})
	if err != nil {
		s.logger.Warn("Answer synthesis failed, using document digest", zap.Error(err))
		return simpleAnswer(q.Text(), results), citations
	}

	answer := strings.TrimSpace(res.Text)
	if answer == "" {
		return simpleAnswer(q.Text(), results), citations
	}
	return answer, citations
}

func splitKeywords(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if kw := strings.TrimSpace(part); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func synthesisPrompt(q query.Query, top []result.Result) string {
	var blocks strings.Builder
	for i, r := range top {
		doc := r.Document()
		fmt.Fprintf(&blocks, "Document %d: %s\nSource: %s\nPreview: %s\n",
			i+1, doc.Title(), doc.SourceURL(), textproc.Truncate(doc.Content(), previewLimit))
	}

	prefs := q.Preferences()
	return fmt.Sprintf(`As a legal expert in Indonesian law, answer the following query based on the provided legal documents.

Original query: %s

Retrieved documents:
%s
Instructions:
1. %s
2. %s
3. %s
4. Focus on directly answering the query based on the legal documents provided.
5. If the documents don't contain sufficient information to answer the query, acknowledge this limitation.
6. Include specific references to regulations and documents where relevant.

Your response:`,
		q.Text(), blocks.String(),
		verbosityInstruction(prefs.Verbosity),
		formatInstruction(prefs.Format),
		citationInstruction(prefs.Citations),
	)
}

func verbosityInstruction(v string) string {
	switch v {
	case query.VerbosityConcise:
		return "Keep your response concise and to the point, focusing only on the most relevant information."
	case query.VerbosityComprehensive:
		return "Provide a comprehensive response that thoroughly analyzes all relevant information from the documents."
	default:
		return "Provide a detailed response that covers the main points from the documents."
	}
}

func formatInstruction(f string) string {
	switch f {
	case query.FormatLegal:
		return "Use proper legal terminology and formatting appropriate for legal professionals."
	case query.FormatTechnical:
		return "Use technical language and provide specific details about legal mechanisms and procedures."
	default:
		return "Use simple, everyday language that a non-legal expert can understand."
	}
}

func citationInstruction(citations bool) string {
	if citations {
		return "Include citations to specific documents and sections when making claims."
	}
	return "Do not include formal citations in your response."
}

func simpleAnswer(queryText string, results []result.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the retrieved documents, the query about '%s' relates to the following legal information:\n\n", queryText)

	limit := len(results)
	if limit > fallbackDocs {
		limit = fallbackDocs
	}
	for _, r := range results[:limit] {
		doc := r.Document()
		fmt.Fprintf(&b, "- %s: %s\n\n", doc.Title(), textproc.Truncate(doc.Content(), fallbackPreview))
	}
	return b.String()
}
