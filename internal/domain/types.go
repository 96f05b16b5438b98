// Package domain defines the core data types shared across cryptodash:
// price observations, forecast points, and the authenticated session.
package domain

import "time"

// PricePoint is a single price observation for a symbol. The snapshot
// endpoint populates every field; historical points are guaranteed to carry
// at least Symbol, Timestamp, and Price.
type PricePoint struct {
	Symbol                string    `json:"symbol"`
	Price                 float64   `json:"price"`
	Volume24h             float64   `json:"volume24h"`
	MarketCap             float64   `json:"marketCap"`
	High24h               float64   `json:"high24h"`
	Low24h                float64   `json:"low24h"`
	PriceChangePercent24h float64   `json:"priceChangePercent24h"`
	Timestamp             time.Time `json:"timestamp"`
}

// PredictionPoint is a single forecast for a future date, with a symmetric
// confidence interval around the predicted price. Model and Accuracy
// describe the ML model that produced it and may be empty.
type PredictionPoint struct {
	Symbol             string    `json:"symbol"`
	PredictedPrice     float64   `json:"predictedPrice"`
	ConfidenceInterval float64   `json:"confidenceInterval"`
	TargetDate         time.Time `json:"targetDate"`
	CreatedAt          time.Time `json:"createdAt"`
	Model              string    `json:"model,omitempty"`
	Accuracy           float64   `json:"accuracy,omitempty"`
}

// User identifies the logged-in account.
type User struct {
	Username string
}

// Session is a read-only snapshot of the client's authentication state.
// Invariant: Token != "" iff Authenticated iff User != nil. Loading is true
// only during the one-time startup restoration and settles to false exactly
// once for the lifetime of the process.
type Session struct {
	Authenticated bool
	Token         string
	User          *User
	Loading       bool
}
