package usage

import (
	"context"
	"time"

	domusage "github.com/santara-labs/statuta/internal/domain/usage"
	"github.com/santara-labs/statuta/internal/domain/usage/budget"
	"github.com/santara-labs/statuta/internal/domain/usage/metrics"
)

// Service handles usage reporting.
type Service struct {
	provider string
	br       BudgetReader
}

// New creates a Service. br can be nil (unlimited mode).
func New(provider string, br BudgetReader) *Service {
	return &Service{provider: provider, br: br}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := time.Now().UTC()
	var start, end int64
	var limit, remaining int64

	switch period {
	case domusage.PeriodDay:
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		dayEnd := dayStart.Add(24 * time.Hour)
		start = dayStart.UnixMilli()
		end = dayEnd.UnixMilli()
		if s.br != nil {
			limit = s.br.DailyLimit()
			remaining = s.br.RemainingDaily()
		}
	case domusage.PeriodMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		monthEnd := monthStart.AddDate(0, 1, 0)
		start = monthStart.UnixMilli()
		end = monthEnd.UnixMilli()
		if s.br != nil {
			limit = s.br.MonthlyLimit()
			remaining = s.br.RemainingMonthly()
		}
	default:
		// total — no period boundaries, the monthly cap is the operative budget
		if s.br != nil {
			limit = s.br.MonthlyLimit()
			remaining = s.br.RemainingMonthly()
		}
	}

	var tokens, chatReqs, embReqs int64
	if s.br != nil {
		tokens, chatReqs, embReqs = s.br.Usage(period)
	}

	exhausted := limit > 0 && remaining <= 0
	resetsAt := end

	b := budget.New(int(limit), int(remaining), exhausted, resetsAt)
	m := metrics.New(int(chatReqs), int(embReqs), int(tokens))

	return domusage.NewReport(period, start, end, s.provider, m, b)
}
