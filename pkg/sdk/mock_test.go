package statuta

import (
	"context"

	domdoc "github.com/santara-labs/statuta/internal/domain/document"
	"github.com/santara-labs/statuta/internal/domain/search/query"
	"github.com/santara-labs/statuta/internal/domain/search/result"
	domusage "github.com/santara-labs/statuta/internal/domain/usage"
	healthuc "github.com/santara-labs/statuta/internal/usecase/health"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, q query.Query) (result.Response, error)
}

func (m *mockSearchUC) Search(ctx context.Context, q query.Query) (result.Response, error) {
	return m.searchFn(ctx, q)
}

// --- documentUseCase mock ---

type mockDocumentUC struct {
	getFn     func(ctx context.Context, id string) (domdoc.Document, error)
	extractFn func(ctx context.Context, pdfURL, title string) (domdoc.Document, error)
	uploadFn  func(ctx context.Context, filename, title string, data []byte) (domdoc.Document, error)
}

func (m *mockDocumentUC) Get(ctx context.Context, id string) (domdoc.Document, error) {
	return m.getFn(ctx, id)
}

func (m *mockDocumentUC) ExtractFromURL(ctx context.Context, pdfURL, title string) (domdoc.Document, error) {
	return m.extractFn(ctx, pdfURL, title)
}

func (m *mockDocumentUC) Upload(ctx context.Context, filename, title string, data []byte) (domdoc.Document, error) {
	return m.uploadFn(ctx, filename, title, data)
}

// --- usageUseCase mock ---

type mockUsageUC struct {
	reportFn func(ctx context.Context, period domusage.Period) domusage.Report
}

func (m *mockUsageUC) GetReport(ctx context.Context, period domusage.Period) domusage.Report {
	return m.reportFn(ctx, period)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	checkFn func(ctx context.Context) healthuc.Report
}

func (m *mockHealthUC) Check(ctx context.Context) healthuc.Report {
	return m.checkFn(ctx)
}

// --- helpers ---

func testClient(
	searchSvc searchUseCase,
	docSvc documentUseCase,
	usageSvc usageUseCase,
	healthSvc healthUseCase,
) *Client {
	return &Client{
		searchSvc: searchSvc,
		docSvc:    docSvc,
		usageSvc:  usageSvc,
		healthSvc: healthSvc,
	}
}
