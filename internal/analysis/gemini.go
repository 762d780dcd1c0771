package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/erazemk/estatedesk/internal/model"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

const systemPrompt = `You catalogue items for an estate sale. All photos show one physical object.
Reply with a single JSON object and nothing else, using these keys:
title, description, category, price, price_low, price_high (US dollars, numbers),
dimensions {length, width, height, unit}, weight {value, unit}, material,
tags (array of strings), confidence (0 to 1).
Use 0 or "" for anything you cannot determine.`

// generator is the part of *genai.Models that Gemini uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig configures the Gemini analyzer.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Gemini proposes listings with Google's Gemini API.
type Gemini struct {
	models  generator
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini analyzer.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return newGemini(client.Models, cfg), nil
}

func newGemini(models generator, cfg GeminiConfig) *Gemini {
	name := cfg.Model
	if name == "" {
		name = DefaultGeminiModel
	}
	return &Gemini{models: models, model: name, timeout: cfg.Timeout}
}

func (g *Gemini) Analyze(ctx context.Context, group Group) (model.Proposal, error) {
	if len(group.Photos) == 0 {
		return model.Proposal{}, errors.New("group has no photos")
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	parts := []*genai.Part{genai.NewPartFromText(fmt.Sprintf(
		"Item #%d (%q), %d photo(s).", group.ItemNumber, group.Title, len(group.Photos),
	))}
	for _, p := range group.Photos {
		parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIME))
	}

	resp, err := g.models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			Temperature:       genai.Ptr[float32](0.2),
		},
	)
	if err != nil {
		return model.Proposal{}, fmt.Errorf("calling gemini: %w", err)
	}
	if resp == nil {
		return model.Proposal{}, errors.New("gemini returned no response")
	}

	p, err := parseListing(resp.Text())
	if err != nil {
		return model.Proposal{}, err
	}
	p.ItemNumber = group.ItemNumber
	p.PhotoIndices = group.Indices()
	return p, nil
}

// listing is the JSON shape requested from the model.
type listing struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Price       float64          `json:"price"`
	PriceLow    float64          `json:"price_low"`
	PriceHigh   float64          `json:"price_high"`
	Dimensions  model.Dimensions `json:"dimensions"`
	Weight      model.Weight     `json:"weight"`
	Material    string           `json:"material"`
	Tags        []string         `json:"tags"`
	Confidence  float64          `json:"confidence"`
}

// parseListing decodes a model reply, tolerating a Markdown code fence.
func parseListing(text string) (model.Proposal, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	if text == "" {
		return model.Proposal{}, errors.New("gemini returned an empty reply")
	}

	var l listing
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&l); err != nil {
		return model.Proposal{}, fmt.Errorf("malformed gemini reply: %w", err)
	}
	if l.Tags == nil {
		l.Tags = []string{}
	}
	return model.Proposal{
		Title:       strings.TrimSpace(l.Title),
		Description: l.Description,
		Category:    l.Category,
		Price:       max(l.Price, 0),
		PriceLow:    max(l.PriceLow, 0),
		PriceHigh:   max(l.PriceHigh, 0),
		Dimensions:  l.Dimensions,
		Weight:      l.Weight,
		Material:    l.Material,
		Tags:        l.Tags,
		Confidence:  min(max(l.Confidence, 0), 1),
	}, nil
}
