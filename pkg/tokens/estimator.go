// Package tokens estimates prompt sizes for logging and budget checks.
package tokens

import (
	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Estimator counts the approximate tokens in a piece of text.
type Estimator func(text string) int

// NewTikTokenEstimator returns an Estimator backed by tiktoken-go for the
// given model. Unknown models make EncodingForModel return an error; callers
// typically fall back to the heuristic estimator.
func NewTikTokenEstimator(model string) (Estimator, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, err
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}, nil
}

// Heuristic approximates tokens as characters divided by four. Good enough
// for log lines when no encoding is available.
func Heuristic() Estimator {
	return func(text string) int {
		return (len(text) + 3) / 4
	}
}
