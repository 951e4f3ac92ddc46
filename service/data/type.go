package data

import "github.com/khaledhikmat/fire-go/model"

type IService interface {
	NewError(err interface{}) error
	NewDecision(decision model.Decision) error
	NewAgentStats(stats model.AgentStats) error
	NewFramerStats(stats model.FramerStats) error
	NewDetectorStats(stats model.DetectorStats) error
	NewAlerterStats(stats model.AlerterStats) error
	NewServerStats(stats model.ServerStats) error
	Finalize()
}
