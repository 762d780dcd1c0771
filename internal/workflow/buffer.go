package workflow

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/erazemk/estatedesk/internal/model"
)

// Editable fields accepted by EditBuffer.SetField.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldMaterial    = "material"
	FieldPrice       = "price"
)

// Dimension axes accepted by EditBuffer.SetDimension.
const (
	AxisLength = "length"
	AxisWidth  = "width"
	AxisHeight = "height"
	AxisUnit   = "unit"
)

// Weight parts accepted by EditBuffer.SetWeight.
const (
	WeightValue = "value"
	WeightUnit  = "unit"
)

// Draft holds the operator's in-progress edits for one proposal. Values are
// kept as entered; they are parsed only when an approval is composed.
type Draft struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Material    string          `json:"material"`
	Price       string          `json:"price"`
	Dimensions  DraftDimensions `json:"dimensions"`
	Weight      DraftWeight     `json:"weight"`
	Tags        []string        `json:"tags"`
}

// DraftDimensions is the text form of model.Dimensions.
type DraftDimensions struct {
	Length string `json:"length"`
	Width  string `json:"width"`
	Height string `json:"height"`
	Unit   string `json:"unit"`
}

// DraftWeight is the text form of model.Weight.
type DraftWeight struct {
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

// DraftFromProposal copies a proposal's editable fields into a draft.
func DraftFromProposal(p model.Proposal) Draft {
	tags := slices.Clone(p.Tags)
	if tags == nil {
		tags = []string{}
	}
	return Draft{
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Material:    p.Material,
		Price:       formatNumber(p.Price),
		Dimensions: DraftDimensions{
			Length: formatNumber(p.Dimensions.Length),
			Width:  formatNumber(p.Dimensions.Width),
			Height: formatNumber(p.Dimensions.Height),
			Unit:   p.Dimensions.Unit,
		},
		Weight: DraftWeight{
			Value: formatNumber(p.Weight.Value),
			Unit:  p.Weight.Unit,
		},
		Tags: tags,
	}
}

func formatNumber(f float64) string {
	if f <= 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// EditBuffer stages operator edits keyed by item number. It never writes to
// proposals or approved items. Not safe for concurrent use; Session guards it.
type EditBuffer struct {
	drafts map[int]*Draft
}

// NewEditBuffer returns an empty buffer.
func NewEditBuffer() *EditBuffer {
	return &EditBuffer{drafts: make(map[int]*Draft)}
}

// Seed adds a draft for every proposal not yet buffered. Existing drafts are
// left as edited.
func (b *EditBuffer) Seed(proposals []model.Proposal) {
	for _, p := range proposals {
		if _, ok := b.drafts[p.ItemNumber]; !ok {
			d := DraftFromProposal(p)
			b.drafts[p.ItemNumber] = &d
		}
	}
}

// Sync seeds the pending proposals and drops drafts whose item is no longer
// pending.
func (b *EditBuffer) Sync(pending []model.Proposal) {
	b.Seed(pending)
	keep := make(map[int]bool, len(pending))
	for _, p := range pending {
		keep[p.ItemNumber] = true
	}
	for n := range b.drafts {
		if !keep[n] {
			delete(b.drafts, n)
		}
	}
}

// Reset discards every draft.
func (b *EditBuffer) Reset() {
	clear(b.drafts)
}

// Get returns a copy of the draft for itemNumber.
func (b *EditBuffer) Get(itemNumber int) (Draft, bool) {
	d, ok := b.drafts[itemNumber]
	if !ok {
		return Draft{}, false
	}
	cp := *d
	cp.Tags = slices.Clone(d.Tags)
	return cp, true
}

// Len returns the number of buffered drafts.
func (b *EditBuffer) Len() int {
	return len(b.drafts)
}

func (b *EditBuffer) draft(op string, itemNumber int) (*Draft, error) {
	d, ok := b.drafts[itemNumber]
	if !ok {
		return nil, Wrap(ErrNotFound, op, fmt.Sprintf("item #%d is not pending review", itemNumber), nil)
	}
	return d, nil
}

// SetField updates one text field of a draft.
func (b *EditBuffer) SetField(itemNumber int, field, value string) error {
	d, err := b.draft("edit field", itemNumber)
	if err != nil {
		return err
	}
	switch field {
	case FieldTitle:
		d.Title = value
	case FieldDescription:
		d.Description = value
	case FieldCategory:
		d.Category = value
	case FieldMaterial:
		d.Material = value
	case FieldPrice:
		d.Price = value
	default:
		return Validation("edit field", fmt.Sprintf("unknown field %q", field))
	}
	return nil
}

// SetDimension updates one dimension axis (or the unit) of a draft.
func (b *EditBuffer) SetDimension(itemNumber int, axis, value string) error {
	d, err := b.draft("edit dimension", itemNumber)
	if err != nil {
		return err
	}
	switch axis {
	case AxisLength:
		d.Dimensions.Length = value
	case AxisWidth:
		d.Dimensions.Width = value
	case AxisHeight:
		d.Dimensions.Height = value
	case AxisUnit:
		d.Dimensions.Unit = value
	default:
		return Validation("edit dimension", fmt.Sprintf("unknown dimension %q", axis))
	}
	return nil
}

// SetWeight updates the weight value or unit of a draft.
func (b *EditBuffer) SetWeight(itemNumber int, part, value string) error {
	d, err := b.draft("edit weight", itemNumber)
	if err != nil {
		return err
	}
	switch part {
	case WeightValue:
		d.Weight.Value = value
	case WeightUnit:
		d.Weight.Unit = value
	default:
		return Validation("edit weight", fmt.Sprintf("unknown weight part %q", part))
	}
	return nil
}

// SetTags replaces a draft's tags. Blank tags are dropped.
func (b *EditBuffer) SetTags(itemNumber int, tags []string) error {
	d, err := b.draft("edit tags", itemNumber)
	if err != nil {
		return err
	}
	clean := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			clean = append(clean, t)
		}
	}
	d.Tags = clean
	return nil
}

// ParsePrice parses a buffered price. It reports false for blank, malformed
// or non-positive values.
func ParsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
