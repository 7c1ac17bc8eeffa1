// Package observability provides OpenTelemetry metrics (Prometheus exporter), tracing and log correlation.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameRequestCount           = "http.server.request_count"
	MetricNameRequestDuration        = "http.server.duration"
	MetricNameRequestBodyTooLarge    = "zeroshot_request_body_too_large_total"
	MetricNameClassifications        = "zeroshot_classifications_total"
	MetricNameClassificationDuration = "zeroshot_classification_duration_seconds"
	MetricNameVocabularySize         = "zeroshot_classification_vocabulary_size"
	MetricNameEmbeddingDuration      = "zeroshot_embedding_duration_seconds"
	MetricNameLabelMerges            = "zeroshot_label_merges_total"
	MetricNameLabelVocabularySize    = "zeroshot_label_vocabulary_size"
)

// Attribute keys.
const (
	AttrOutcome   = "outcome"
	AttrOperation = "operation"
)

// Outcomes shared by classification and label merge metrics.
const (
	OutcomeSuccess                = "success"
	OutcomeImageDecode            = "image_decode"
	OutcomeEmptyVocabulary        = "empty_vocabulary"
	OutcomeInvalidLabelFormat     = "invalid_label_format"
	OutcomeProviderError          = "provider_error"
	OutcomePersistenceUnavailable = "persistence_unavailable"
	OutcomeCanceled               = "canceled"
	OutcomeOther                  = "other"
)

// Provider operations for zeroshot_embedding_duration_seconds.
const (
	OperationEmbedImage = "embed_image"
	OperationEmbedTexts = "embed_texts"
)

var allowedOutcomes = map[string]bool{
	OutcomeSuccess:                true,
	OutcomeImageDecode:            true,
	OutcomeEmptyVocabulary:        true,
	OutcomeInvalidLabelFormat:     true,
	OutcomeProviderError:          true,
	OutcomePersistenceUnavailable: true,
	OutcomeCanceled:               true,
}

var allowedOperations = map[string]bool{
	OperationEmbedImage: true,
	OperationEmbedTexts: true,
}

// NormalizeOutcome returns outcome if known, otherwise "other".
func NormalizeOutcome(outcome string) string {
	if allowedOutcomes[outcome] {
		return outcome
	}

	return OutcomeOther
}

// normalizeOperation maps a provider operation to a bounded set.
func normalizeOperation(op string) string {
	if allowedOperations[op] {
		return op
	}

	return "unknown"
}
