package pipeline

import "math"

// CostEstimate is a heuristic monthly storage cost. Mock pricing, not based
// on real backend rates.
type CostEstimate struct {
	EstimatedCost float64 `json:"estimated_cost"`
	Currency      string  `json:"currency"`
	Period        string  `json:"period"`
	Disclaimer    string  `json:"disclaimer"`
}

// costPerKBMonth is the mock rate per kilobyte per month per replica.
const costPerKBMonth = 0.00003

// EstimateCost estimates monthly storage cost for a blob of the given size
// at the given replication factor (default 3).
func EstimateCost(bytes int64, redundancy int) CostEstimate {
	if redundancy <= 0 {
		redundancy = 3
	}
	kb := float64(bytes) / 1024
	cost := kb * costPerKBMonth * float64(redundancy)
	return CostEstimate{
		EstimatedCost: math.Round(cost*1e6) / 1e6,
		Currency:      "USD",
		Period:        "monthly",
		Disclaimer:    "heuristic estimate, not based on real storage pricing",
	}
}
