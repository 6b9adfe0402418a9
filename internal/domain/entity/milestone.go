package entity

import "fmt"

// Milestone is a fixed fundraising threshold with a one-time unlock message
type Milestone struct {
	Percent int    `json:"percent"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

// SeenKey is the persisted key marking the milestone notification as delivered
func (m Milestone) SeenKey() string {
	return fmt.Sprintf("milestone-%d-seen", m.Percent)
}

// MilestoneState is the derived render state of a milestone for one cycle
type MilestoneState struct {
	Milestone
	Unlocked bool   `json:"unlocked"`
	Class    string `json:"class"`
	Title    string `json:"title"`
}
