package dto

import "stock-insight-agent/internal/entity"

// GeminiAPIRequest is the request payload for the Gemini API.
type GeminiAPIRequest struct {
	Contents []Content `json:"contents"`
}

// Content represents the content of a request or response.
type Content struct {
	Parts []Part `json:"parts"`
}

// Part is a part of the content.
type Part struct {
	Text string `json:"text"`
}

// GeminiAPIResponse is the response from the Gemini API.
type GeminiAPIResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate is a candidate response from the Gemini API.
type Candidate struct {
	Content Content `json:"content"`
}

// RecommendationResult is the expected JSON structure for a period
// recommendation.
type RecommendationResult struct {
	MarketOutlook string                `json:"market_outlook,omitempty"`
	Reasoning     string                `json:"reasoning,omitempty"`
	Sells         []entity.SellDecision `json:"sells"`
	Trims         []entity.TrimDecision `json:"trims"`
	Adds          []entity.AddDecision  `json:"adds"`
	Holds         []entity.HoldDecision `json:"holds"`
	NewBuys       []entity.BuyDecision  `json:"new_buys"`
}

// Decisions returns the result's actions as a DecisionSet.
func (r *RecommendationResult) Decisions() entity.DecisionSet {
	return entity.DecisionSet{
		Sells:   r.Sells,
		Trims:   r.Trims,
		Adds:    r.Adds,
		Holds:   r.Holds,
		NewBuys: r.NewBuys,
	}
}
