// Package errors provides the research error taxonomy and its mapping onto BPMN job errors.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Response parsing
	ErrCodeFieldNotFound    ErrorCode = "FIELD_NOT_FOUND"
	ErrCodeMalformedPayload ErrorCode = "MALFORMED_PAYLOAD"

	// Retrieval
	ErrCodeRetrievalGap      ErrorCode = "RETRIEVAL_GAP"
	ErrCodeWebSearchTimeout  ErrorCode = "WEB_SEARCH_TIMEOUT"
	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeScrapeFailed      ErrorCode = "SCRAPE_FAILED"
	ErrCodeRateLimited       ErrorCode = "RATE_LIMITED"

	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeIndexNotFound                 ErrorCode = "INDEX_NOT_FOUND"

	// Generation
	ErrCodeSummarizationFailed   ErrorCode = "SUMMARIZATION_FAILED"
	ErrCodeGenerationUnavailable ErrorCode = "GENERATION_UNAVAILABLE"
	ErrCodeLLMTimeout            ErrorCode = "LLM_TIMEOUT"

	// Job input
	ErrCodeInvalidJobVariables ErrorCode = "INVALID_JOB_VARIABLES"
	ErrCodeBriefingFailed      ErrorCode = "BRIEFING_FAILED"

	// Workflow engine
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeServiceTimeout  ErrorCode = "SERVICE_TIMEOUT"
	ErrCodeNotFound        ErrorCode = "RESOURCE_NOT_FOUND"
)

// Sentinels for errors.Is checks at package boundaries.
var (
	ErrFieldNotFound         = stderrors.New(string(ErrCodeFieldNotFound))
	ErrMalformedPayload      = stderrors.New(string(ErrCodeMalformedPayload))
	ErrRetrievalGap          = stderrors.New(string(ErrCodeRetrievalGap))
	ErrSummarizationFailed   = stderrors.New(string(ErrCodeSummarizationFailed))
	ErrGenerationUnavailable = stderrors.New(string(ErrCodeGenerationUnavailable))
	ErrWebSearchTimeout      = stderrors.New(string(ErrCodeWebSearchTimeout))
	ErrSearchQueryFailed     = stderrors.New(string(ErrCodeSearchQueryFailed))
	ErrScrapeFailed          = stderrors.New(string(ErrCodeScrapeFailed))
	ErrRateLimited           = stderrors.New(string(ErrCodeRateLimited))
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newStandard(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidJobVariablesError creates a non-retryable input error.
func NewInvalidJobVariablesError(details string) *StandardError {
	return newStandard(ErrCodeInvalidJobVariables, "Job variables failed validation", details, false)
}

// NewMalformedPayloadError creates a non-retryable parse error.
func NewMalformedPayloadError(field string, err error) *StandardError {
	return newStandard(ErrCodeMalformedPayload, "Model response payload is malformed",
		fmt.Sprintf("field: %s: %v", field, err), false)
}

// NewGenerationUnavailableError creates a retryable generation error.
func NewGenerationUnavailableError(err error) *StandardError {
	return newStandard(ErrCodeGenerationUnavailable, "Generation backend unavailable", err.Error(), true)
}

// NewSummarizationFailedError creates a retryable summarization error.
func NewSummarizationFailedError(query string, err error) *StandardError {
	e := newStandard(ErrCodeSummarizationFailed, "Chunk summarization failed", err.Error(), true)
	e.Metadata = map[string]interface{}{"query": query}
	return e
}

// NewSearchQueryFailedError creates a retryable search error.
func NewSearchQueryFailedError(provider string, err error) *StandardError {
	return newStandard(ErrCodeSearchQueryFailed, "Search query failed",
		fmt.Sprintf("provider: %s, error: %v", provider, err), true)
}

// NewWebSearchTimeoutError creates a non-retryable web search timeout error; the query yields the sentinel.
func NewWebSearchTimeoutError() *StandardError {
	return newStandard(ErrCodeWebSearchTimeout, "Web search timed out", "", false)
}

// NewElasticsearchConnectionFailedError creates a retryable Elasticsearch connection error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return newStandard(ErrCodeElasticsearchConnectionFailed, "Failed to connect to Elasticsearch", err.Error(), true)
}

// NewIndexNotFoundError creates a non-retryable index not found error.
func NewIndexNotFoundError(indexName string) *StandardError {
	return newStandard(ErrCodeIndexNotFound, "Elasticsearch index not found", "index: "+indexName, false)
}

// NewBriefingFailedError wraps an icebreak stage failure.
func NewBriefingFailedError(stage string, err error) *StandardError {
	return newStandard(ErrCodeBriefingFailed, "Icebreak briefing failed",
		fmt.Sprintf("stage: %s, error: %v", stage, err), false)
}

// NewExternalServiceError creates a retryable dependency error.
func NewExternalServiceError(service string, err error) *StandardError {
	return newStandard(ErrCodeExternalService, fmt.Sprintf("%s request failed", service), err.Error(), true)
}

// NewTimeoutError creates a retryable timeout error.
func NewTimeoutError(service string, err error) *StandardError {
	return newStandard(ErrCodeServiceTimeout, fmt.Sprintf("%s request timed out", service), err.Error(), true)
}

// NewResourceNotFoundError creates a non-retryable lookup error.
func NewResourceNotFoundError(service, details string) *StandardError {
	return newStandard(ErrCodeNotFound, fmt.Sprintf("%s resource not found", service), details, false)
}

// FromError classifies a wrapped sentinel into a StandardError.
func FromError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	switch {
	case stderrors.Is(err, ErrGenerationUnavailable):
		return NewGenerationUnavailableError(err)
	case stderrors.Is(err, ErrSummarizationFailed):
		return newStandard(ErrCodeSummarizationFailed, "Chunk summarization failed", err.Error(), true)
	case stderrors.Is(err, ErrWebSearchTimeout):
		return NewWebSearchTimeoutError()
	case stderrors.Is(err, ErrSearchQueryFailed):
		return newStandard(ErrCodeSearchQueryFailed, "Search query failed", err.Error(), true)
	case stderrors.Is(err, ErrMalformedPayload):
		return newStandard(ErrCodeMalformedPayload, "Model response payload is malformed", err.Error(), false)
	case stderrors.Is(err, ErrFieldNotFound):
		return newStandard(ErrCodeFieldNotFound, "Expected field missing from model response", err.Error(), false)
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeGenerationUnavailable,
		ErrCodeSummarizationFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeRateLimited, ErrCodeServiceTimeout:
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0 // business and parse errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "FIELD") || strings.Contains(codeStr, "PAYLOAD"):
		return "PARSE"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "INDEX") ||
		strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "SCRAPE") ||
		strings.Contains(codeStr, "RETRIEVAL") || strings.Contains(codeStr, "RATE"):
		return "RETRIEVAL"
	case strings.Contains(codeStr, "GENERATION") || strings.Contains(codeStr, "SUMMARIZATION") ||
		strings.Contains(codeStr, "LLM"):
		return "AI"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "BRIEFING"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
