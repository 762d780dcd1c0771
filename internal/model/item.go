package model

import (
	"slices"
	"time"
)

// Item is one estate-sale intake unit: its photos and every listing derived
// from them.
type Item struct {
	ID             string         `json:"id"`
	JobID          string         `json:"job_id"`
	Status         string         `json:"status"`
	ReopenReason   string         `json:"reopen_reason,omitempty"`
	NextItemNumber int            `json:"next_item_number"`
	Photos         []Photo        `json:"photos"`
	PhotoGroups    []PhotoGroup   `json:"photo_groups"`
	AnalyzedGroups []int          `json:"analyzed_group_indices"`
	AI             []Proposal     `json:"ai"`
	ApprovedItems  []ApprovedItem `json:"approved_items"`

	SoldPhotoIndices    []int `json:"sold_photo_indices"`
	DonatedPhotoIndices []int `json:"donated_photo_indices"`
	HauledPhotoIndices  []int `json:"hauled_photo_indices"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item statuses.
const (
	ItemStatusDraft       = "draft"
	ItemStatusNeedsReview = "needs_review"
	ItemStatusApproved    = "approved"
)

// Photo is a stored photo reference. Index is its position in the item's
// photo sequence and never changes once assigned.
type Photo struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
	Key   string `json:"key"`
}

// PhotoGroup is a contiguous, inclusive range of photo indices treated as one
// physical object.
type PhotoGroup struct {
	ItemNumber int    `json:"item_number"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	Title      string `json:"title"`
	PhotoCount int    `json:"photo_count"`
}

// Indices returns every photo index covered by the group.
func (g PhotoGroup) Indices() []int {
	out := make([]int, 0, g.PhotoCount)
	for i := g.StartIndex; i <= g.EndIndex; i++ {
		out = append(out, i)
	}
	return out
}

// Dimensions of a physical object.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit"`
}

// Weight of a physical object.
type Weight struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Proposal is the machine-generated draft listing for one analyzed group.
type Proposal struct {
	ItemNumber   int        `json:"item_number"`
	PhotoIndices []int      `json:"photo_indices"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Price        float64    `json:"price"`
	PriceLow     float64    `json:"price_low"`
	PriceHigh    float64    `json:"price_high"`
	Dimensions   Dimensions `json:"dimensions"`
	Weight       Weight     `json:"weight"`
	Material     string     `json:"material"`
	Tags         []string   `json:"tags"`
	Confidence   float64    `json:"confidence"`
}

// ApprovedItem is an operator-committed, price-bearing listing.
type ApprovedItem struct {
	ItemNumber      int        `json:"item_number"`
	PhotoIndices    []int      `json:"photo_indices"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Price           float64    `json:"price"`
	Dimensions      Dimensions `json:"dimensions"`
	Weight          Weight     `json:"weight"`
	Material        string     `json:"material"`
	Tags            []string   `json:"tags"`
	EstateSalePrice *float64   `json:"estate_sale_price,omitempty"`
}

// Disposition kinds.
const (
	DispositionSold    = "sold"
	DispositionDonated = "donated"
	DispositionHauled  = "hauled"
)

// ValidDispositionKind reports whether kind is one of the disposition kinds.
func ValidDispositionKind(kind string) bool {
	switch kind {
	case DispositionSold, DispositionDonated, DispositionHauled:
		return true
	}
	return false
}

// IsAnalyzed reports whether an analysis pass completed for itemNumber.
func (it *Item) IsAnalyzed(itemNumber int) bool {
	return slices.Contains(it.AnalyzedGroups, itemNumber)
}

// Proposal returns the AI proposal for itemNumber.
func (it *Item) Proposal(itemNumber int) (Proposal, bool) {
	for _, p := range it.AI {
		if p.ItemNumber == itemNumber {
			return p, true
		}
	}
	return Proposal{}, false
}

// Approved returns the approved record for itemNumber.
func (it *Item) Approved(itemNumber int) (ApprovedItem, bool) {
	for _, a := range it.ApprovedItems {
		if a.ItemNumber == itemNumber {
			return a, true
		}
	}
	return ApprovedItem{}, false
}

// DispositionOf returns the disposition kind recorded for a photo index, or "".
func (it *Item) DispositionOf(photoIndex int) string {
	switch {
	case slices.Contains(it.SoldPhotoIndices, photoIndex):
		return DispositionSold
	case slices.Contains(it.DonatedPhotoIndices, photoIndex):
		return DispositionDonated
	case slices.Contains(it.HauledPhotoIndices, photoIndex):
		return DispositionHauled
	}
	return ""
}
