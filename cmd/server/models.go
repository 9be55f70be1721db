package main

import (
	"time"

	"github.com/liamcoop/challenges/challenges"
)

// API request and response models

// ProfileRequest is the body of the suggestion and evaluation endpoints
type ProfileRequest struct {
	MonthlyIncome *float64 `json:"monthlyIncome" example:"30000"`
	TotalExpenses *float64 `json:"totalExpenses" example:"10000"`
	Profession    string   `json:"profession" example:"employee"`
	IncomeType    string   `json:"incomeType" example:"fixed"`
}

// SuggestionsResponse is the response for the suggestion endpoint
type SuggestionsResponse struct {
	Suggestions    []challenges.ChallengeSuggestion `json:"suggestions"`
	EvaluationTime string                           `json:"evaluationTime" example:"85µs"`
}

// EvaluationResultResponse represents a single rule gate evaluation
type EvaluationResultResponse struct {
	RuleID   string  `json:"ruleId" example:"penny-pincher"`
	RuleName string  `json:"ruleName" example:"Penny Pincher"`
	Matched  bool    `json:"matched" example:"true"`
	Error    *string `json:"error,omitempty"`
}

// EvaluateResponse represents the response for rule evaluation
type EvaluateResponse struct {
	Results        []EvaluationResultResponse `json:"results"`
	EvaluationTime string                     `json:"evaluationTime" example:"2.3ms"`
}

// RuleRequest is the body for creating or replacing a rule
type RuleRequest struct {
	ID           string             `json:"id,omitempty" example:"bonus-month"`
	Position     int                `json:"position" example:"75"`
	Title        string             `json:"title" example:"Bonus Month"`
	Description  string             `json:"description" example:"Put ₹{{inr .PerPeriod}} aside every week."`
	Gate         string             `json:"gate,omitempty" example:"Profile.MonthlyIncome >= 100000.0"`
	Frequency    string             `json:"frequency" example:"weekly"`
	DurationDays int                `json:"durationDays" example:"28"`
	Contribution *challenges.Amount `json:"contribution,omitempty"`
	Target       *challenges.Amount `json:"target,omitempty"`
	Split        int                `json:"split,omitempty"`
	Active       *bool              `json:"active,omitempty" example:"true"`
}

// RuleResponse represents a rule in API responses
type RuleResponse struct {
	ID           string             `json:"id"`
	Position     int                `json:"position"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Gate         string             `json:"gate,omitempty"`
	Frequency    string             `json:"frequency"`
	DurationDays int                `json:"durationDays"`
	Contribution *challenges.Amount `json:"contribution,omitempty"`
	Target       *challenges.Amount `json:"target,omitempty"`
	Split        int                `json:"split,omitempty"`
	Active       bool               `json:"active"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// RulesListResponse represents the response for listing rules
type RulesListResponse struct {
	Rules []RuleResponse `json:"rules"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"invalid profile"`
	Details string `json:"details,omitempty" example:"monthlyIncome must be a non-negative number"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string           `json:"status" example:"healthy"`
	Store       string           `json:"store" example:"postgres"`
	RulesLoaded int              `json:"rulesLoaded" example:"17"`
	Counters    map[string]int64 `json:"counters"`
	Error       string           `json:"error,omitempty"`
}

func newRuleResponse(r *challenges.ChallengeRule) RuleResponse {
	return RuleResponse{
		ID:           r.ID,
		Position:     r.Position,
		Title:        r.Title,
		Description:  r.Description,
		Gate:         r.Gate,
		Frequency:    string(r.Frequency),
		DurationDays: r.DurationDays,
		Contribution: r.Contribution,
		Target:       r.Target,
		Split:        r.Split,
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (req RuleRequest) toRule(id string) *challenges.ChallengeRule {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return &challenges.ChallengeRule{
		ID:           id,
		Position:     req.Position,
		Title:        req.Title,
		Description:  req.Description,
		Gate:         req.Gate,
		Frequency:    challenges.Frequency(req.Frequency),
		DurationDays: req.DurationDays,
		Contribution: req.Contribution,
		Target:       req.Target,
		Split:        req.Split,
		Active:       active,
	}
}
