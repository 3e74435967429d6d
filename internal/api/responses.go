package api

import (
	"time"

	"github.com/shopspring/decimal"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/liquidation"
)

// PayoutResponse is the JSON rendering of a stored payout.
type PayoutResponse struct {
	ID                          string              `json:"id"`
	CompanyInvestorID           int64               `json:"company_investor_id"`
	SecurityType                domain.SecurityType `json:"security_type"`
	SecurityID                  int64               `json:"security_id"`
	ShareClassName              string              `json:"share_class_name,omitempty"`
	NumberOfShares              int64               `json:"number_of_shares"`
	PayoutAmountCents           int64               `json:"payout_amount_cents"`
	PayoutAmount                decimal.Decimal     `json:"payout_amount"`
	LiquidationPreferenceAmount int64               `json:"liquidation_preference_amount"`
	ParticipationAmount         int64               `json:"participation_amount"`
	CommonProceedsAmount        int64               `json:"common_proceeds_amount"`
}

func newPayoutResponses(payouts []*domain.LiquidationPayout) []PayoutResponse {
	out := make([]PayoutResponse, 0, len(payouts))
	for _, p := range payouts {
		out = append(out, PayoutResponse{
			ID:                          p.ID,
			CompanyInvestorID:           p.CompanyInvestorID,
			SecurityType:                p.SecurityType,
			SecurityID:                  p.SecurityID,
			ShareClassName:              p.ShareClassName,
			NumberOfShares:              p.NumberOfShares,
			PayoutAmountCents:           p.PayoutAmountCents,
			PayoutAmount:                domain.CentsToDollars(p.PayoutAmountCents),
			LiquidationPreferenceAmount: p.LiquidationPreferenceAmount,
			ParticipationAmount:         p.ParticipationAmount,
			CommonProceedsAmount:        p.CommonProceedsAmount,
		})
	}
	return out
}

// RunResponse is returned by POST /scenarios/:id/run.
type RunResponse struct {
	RunID        string                        `json:"run_id"`
	ScenarioID   int64                         `json:"scenario_id"`
	CompanyID    int64                         `json:"company_id"`
	Payouts      []PayoutResponse              `json:"payouts"`
	Distribution *liquidation.DistributionView `json:"distribution"`
}

func newRunResponse(res *liquidation.RunResult) RunResponse {
	return RunResponse{
		RunID:        res.RunID,
		ScenarioID:   res.Scenario.ID,
		CompanyID:    res.Scenario.CompanyID,
		Payouts:      newPayoutResponses(res.Payouts),
		Distribution: liquidation.NewDistributionView(res.Distribution),
	}
}

// BatchResponse is returned by POST /companies/:id/run.
type BatchResponse struct {
	CompanyID int64           `json:"company_id"`
	Runs      []BatchRunEntry `json:"runs"`
	Skipped   []int64         `json:"skipped"`
	Failures  []BatchFailure  `json:"failures"`
}

// BatchRunEntry summarizes one successful run of a batch.
type BatchRunEntry struct {
	RunID            string `json:"run_id"`
	ScenarioID       int64  `json:"scenario_id"`
	Payouts          int    `json:"payouts"`
	DistributedCents int64  `json:"distributed_cents"`
}

// BatchFailure is one failed scenario of a batch.
type BatchFailure struct {
	ScenarioID int64  `json:"scenario_id"`
	Error      string `json:"error"`
	Status     int    `json:"status"`
}

func newBatchResponse(companyID int64, res *liquidation.BatchResult) BatchResponse {
	out := BatchResponse{
		CompanyID: companyID,
		Runs:      make([]BatchRunEntry, 0, len(res.Runs)),
		Skipped:   make([]int64, 0, len(res.Skipped)),
		Failures:  make([]BatchFailure, 0, len(res.Failures)),
	}
	for _, r := range res.Runs {
		out.Runs = append(out.Runs, BatchRunEntry{
			RunID:            r.RunID,
			ScenarioID:       r.Scenario.ID,
			Payouts:          len(r.Payouts),
			DistributedCents: r.Distribution.DistributedCents,
		})
	}
	out.Skipped = append(out.Skipped, res.Skipped...)
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, BatchFailure{
			ScenarioID: f.ScenarioID,
			Error:      f.Err.Error(),
			Status:     StatusFor(f.Err),
		})
	}
	return out
}

// RunStatsResponse is returned by GET /companies/:id/runs.
type RunStatsResponse struct {
	CompanyID          int64           `json:"company_id"`
	Runs               int             `json:"runs"`
	Scenarios          int             `json:"scenarios"`
	NonConverged       int             `json:"non_converged"`
	TotalDistributed   int64           `json:"total_distributed_cents"`
	TotalUndistributed int64           `json:"total_undistributed_cents"`
	MeanDurationMs     float64         `json:"mean_duration_ms"`
	MaxDurationMs      int64           `json:"max_duration_ms"`
	Latest             []LatestRunView `json:"latest"`
}

// LatestRunView is the most recent run of one scenario.
type LatestRunView struct {
	RunID            string    `json:"run_id"`
	ScenarioID       int64     `json:"scenario_id"`
	ExitAmountCents  int64     `json:"exit_amount_cents"`
	DistributedCents int64     `json:"distributed_cents"`
	PayoutCount      int       `json:"payout_count"`
	ComputedAt       time.Time `json:"computed_at"`
}

func newRunStatsResponse(s *liquidation.RunStats) RunStatsResponse {
	out := RunStatsResponse{
		CompanyID:          s.CompanyID,
		Runs:               s.Runs,
		Scenarios:          s.Scenarios,
		NonConverged:       s.NonConverged,
		TotalDistributed:   s.TotalDistributed,
		TotalUndistributed: s.TotalUndistributed,
		MeanDurationMs:     s.MeanDurationMs,
		MaxDurationMs:      s.MaxDurationMs,
		Latest:             make([]LatestRunView, 0, len(s.LatestByScenario)),
	}
	for _, r := range s.LatestByScenario {
		out.Latest = append(out.Latest, LatestRunView{
			RunID:            r.RunID,
			ScenarioID:       r.ScenarioID,
			ExitAmountCents:  r.ExitAmountCents,
			DistributedCents: r.DistributedCents,
			PayoutCount:      r.PayoutCount,
			ComputedAt:       r.ComputedAt,
		})
	}
	return out
}
