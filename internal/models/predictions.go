// Package models holds the request and response bodies of the HTTP API.
package models

import "github.com/formbricks/zeroshot/internal/classifier"

// PredictResponse is returned by POST /predict, best label first.
type PredictResponse struct {
	Predictions []classifier.Prediction `json:"predictions"`
}
