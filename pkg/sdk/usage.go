package statuta

import (
	"context"
	"time"

	domusage "github.com/santara-labs/statuta/internal/domain/usage"
)

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
	PeriodTotal UsagePeriod = "total"
)

// UsageReport contains LLM usage statistics for a time period.
type UsageReport struct {
	Period      UsagePeriod
	Provider    string
	PeriodStart time.Time // zero for PeriodTotal
	PeriodEnd   time.Time
	Metrics     UsageMetrics
	Budget      BudgetStatus
}

// UsageMetrics tracks chat and embedding consumption.
type UsageMetrics struct {
	ChatRequests      int
	EmbeddingRequests int
	Tokens            int
}

// BudgetStatus tracks token quota state. The SDK runs without budget
// enforcement, so limits are zero and the budget is never exhausted.
type BudgetStatus struct {
	TokensLimit     int
	TokensRemaining int
	IsExhausted     bool
	ResetsAt        time.Time
}

// Usage returns an LLM usage report for the given period. Observer
// always records success: the underlying use-case is in-memory and
// does not produce errors.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) UsageReport {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, nil) }()

	report := c.usageSvc.GetReport(ctx, domusage.Period(period))
	m := report.Metrics()
	b := report.Budget()

	out := UsageReport{
		Period:   UsagePeriod(report.Period()),
		Provider: report.Provider(),
		Metrics: UsageMetrics{
			ChatRequests:      m.ChatRequests(),
			EmbeddingRequests: m.EmbeddingRequests(),
			Tokens:            m.Tokens(),
		},
		Budget: BudgetStatus{
			TokensLimit:     b.TokensLimit(),
			TokensRemaining: b.TokensRemaining(),
			IsExhausted:     b.IsExhausted(),
		},
	}
	if report.PeriodStart() > 0 {
		out.PeriodStart = time.UnixMilli(report.PeriodStart()).UTC()
		out.PeriodEnd = time.UnixMilli(report.PeriodEnd()).UTC()
	}
	if b.ResetsAt() > 0 {
		out.Budget.ResetsAt = time.UnixMilli(b.ResetsAt()).UTC()
	}
	return out
}

// usageUseCase is the internal interface for usage reports.
type usageUseCase interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}
