package model

import (
	"slices"
	"time"
)

// Job is the estate-sale engagement that contains items.
type Job struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Stage            string    `json:"stage"`
	OnlineSaleActive bool      `json:"is_online_sale_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Job stages, in operational order.
const (
	StageIntake     = "intake"
	StageOnlineSale = "online_sale"
	StageEstateSale = "estate_sale"
	StageDonation   = "donation"
	StageHaul       = "haul"
	StageComplete   = "complete"
)

// Stages lists the job stages in order.
var Stages = []string{
	StageIntake,
	StageOnlineSale,
	StageEstateSale,
	StageDonation,
	StageHaul,
	StageComplete,
}

// StageOrder returns the position of stage in Stages, or -1 if unknown.
func StageOrder(stage string) int {
	return slices.Index(Stages, stage)
}

// IsTerminalStage reports whether stage is the last operational stage.
func IsTerminalStage(stage string) bool {
	return stage == StageComplete
}
