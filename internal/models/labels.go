package models

import "encoding/json"

// UpdateLabelsRequest is the body of POST /update_labels. Labels is kept raw
// so that element types can be checked before anything is merged.
type UpdateLabelsRequest struct {
	Labels json.RawMessage `json:"labels"`
}

// LabelList is a parsed list of labels ready for validation.
type LabelList struct {
	Labels []string `json:"labels" validate:"dive,no_null_bytes"`
}

// UpdateLabelsResponse is returned after a successful merge.
type UpdateLabelsResponse struct {
	Message string   `json:"message"`
	Labels  []string `json:"labels"`
}

// ListLabelsResponse is returned by GET /labels.
type ListLabelsResponse struct {
	Labels []string `json:"labels"`
}
