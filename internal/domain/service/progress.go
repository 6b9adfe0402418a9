package service

import (
	"fmt"
	"strconv"

	"crypto-donation-tracker/internal/domain/entity"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeProgress derives min(total/goal*100, 100), never below zero
func ComputeProgress(total, goal decimal.Decimal) entity.Progress {
	percent := decimal.Zero
	if goal.IsPositive() && total.IsPositive() {
		percent = decimal.Min(total.Div(goal).Mul(hundred), hundred)
	}
	if total.IsNegative() {
		total = decimal.Zero
	}

	p := percent.InexactFloat64()
	return entity.Progress{
		TotalUSD:    total,
		GoalUSD:     goal,
		Percent:     p,
		RaisedText:  total.StringFixed(0),
		PercentText: percent.StringFixed(1),
		FillWidth:   strconv.FormatFloat(p, 'f', -1, 64) + "%",
	}
}

// MilestoneStates marks each milestone unlocked iff percent >= its threshold
func MilestoneStates(milestones []entity.Milestone, percent float64) []entity.MilestoneState {
	states := make([]entity.MilestoneState, 0, len(milestones))
	for _, m := range milestones {
		state := entity.MilestoneState{Milestone: m}
		if percent >= float64(m.Percent) {
			state.Unlocked = true
			state.Class = "unlocked"
			state.Title = m.Label
		} else {
			state.Title = fmt.Sprintf("Unlock at %d%%: %s", m.Percent, m.Label)
		}
		states = append(states, state)
	}
	return states
}
