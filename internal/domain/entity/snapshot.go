package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Progress is the campaign progress derived from the aggregated total
type Progress struct {
	TotalUSD    decimal.Decimal `json:"total_usd"`
	GoalUSD     decimal.Decimal `json:"goal_usd"`
	Percent     float64         `json:"percent"`
	RaisedText  string          `json:"raised_text"`
	PercentText string          `json:"percent_text"`
	FillWidth   string          `json:"fill_width"`
}

// Snapshot is the result of one aggregation cycle. It is built once per
// cycle and never mutated after being published.
type Snapshot struct {
	TotalUSD     decimal.Decimal   `json:"total_usd"`
	Prices       []AssetPrice      `json:"prices"`
	Balances     []AddressBalance  `json:"balances"`
	Transactions []Transaction     `json:"transactions"`
	Progress     Progress          `json:"progress"`
	Milestones   []MilestoneState  `json:"milestones"`
	Errors       map[string]string `json:"errors,omitempty"`
	Failed       bool              `json:"failed"`
	FetchedAt    time.Time         `json:"fetched_at"`
}

// EmptySnapshot is what readers see before the first cycle completes
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		TotalUSD:     decimal.Zero,
		Transactions: []Transaction{},
	}
}
