package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeStorageError       ErrorCode = "COMMON_017"
	ErrCodeMessagingError     ErrorCode = "COMMON_018"
)

// Aliases used by the factory helpers.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeRateLimit    = ErrCodeTooManyRequests
	CodeValidation   = ErrCodeValidation
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Sequence encoding error codes
const (
	ErrCodeUnknownPolymerType     ErrorCode = "SEQ_001"
	ErrCodeUnknownStrategy        ErrorCode = "SEQ_002"
	ErrCodeMonomerConflict        ErrorCode = "SEQ_003"
	ErrCodeMalformedStructure     ErrorCode = "SEQ_004"
	ErrCodeSequenceTooLong        ErrorCode = "SEQ_005"
	ErrCodeUnknownMonomer         ErrorCode = "SEQ_006"
	ErrCodeBatchTooLarge          ErrorCode = "SEQ_007"
	ErrCodeDimensionMismatch      ErrorCode = "SEQ_008"
	ErrCodeInvalidMonomerName     ErrorCode = "SEQ_009"
	ErrCodeInferenceFailed        ErrorCode = "SEQ_010"
	ErrCodeEncoderNotLoaded       ErrorCode = "SEQ_011"
	ErrCodeArtifactInvalid        ErrorCode = "SEQ_012"
	ErrCodeTensorShapeMismatch    ErrorCode = "SEQ_013"
	ErrCodeEmptyInferenceBatch    ErrorCode = "SEQ_014"
	ErrCodeScalerDimensionInvalid ErrorCode = "SEQ_015"
)

// ErrorCodeHTTPStatus maps each code to the HTTP status returned by the API.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusBadRequest,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusInternalServerError,

	ErrCodeUnknownPolymerType:     http.StatusBadRequest,
	ErrCodeUnknownStrategy:        http.StatusBadRequest,
	ErrCodeMonomerConflict:        http.StatusUnprocessableEntity,
	ErrCodeMalformedStructure:     http.StatusUnprocessableEntity,
	ErrCodeSequenceTooLong:        http.StatusUnprocessableEntity,
	ErrCodeUnknownMonomer:         http.StatusUnprocessableEntity,
	ErrCodeBatchTooLarge:          http.StatusUnprocessableEntity,
	ErrCodeDimensionMismatch:      http.StatusUnprocessableEntity,
	ErrCodeInvalidMonomerName:     http.StatusUnprocessableEntity,
	ErrCodeInferenceFailed:        http.StatusInternalServerError,
	ErrCodeEncoderNotLoaded:       http.StatusServiceUnavailable,
	ErrCodeArtifactInvalid:        http.StatusInternalServerError,
	ErrCodeTensorShapeMismatch:    http.StatusInternalServerError,
	ErrCodeEmptyInferenceBatch:    http.StatusInternalServerError,
	ErrCodeScalerDimensionInvalid: http.StatusInternalServerError,
}

// ErrorCodeMessage holds the default message for each code.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeStorageError:       "object storage error",
	ErrCodeMessagingError:     "messaging error",

	ErrCodeUnknownPolymerType:     "unknown polymer type",
	ErrCodeUnknownStrategy:        "unknown encoding strategy",
	ErrCodeMonomerConflict:        "monomer already exists in kernel",
	ErrCodeMalformedStructure:     "malformed chemical structure",
	ErrCodeSequenceTooLong:        "sequence exceeds the maximum length",
	ErrCodeUnknownMonomer:         "sequence contains unknown monomers",
	ErrCodeBatchTooLarge:          "too many sequences in request",
	ErrCodeDimensionMismatch:      "descriptor dimensionality mismatch",
	ErrCodeInvalidMonomerName:     "monomer name must be a single character",
	ErrCodeInferenceFailed:        "latent inference failed",
	ErrCodeEncoderNotLoaded:       "latent encoder not loaded",
	ErrCodeArtifactInvalid:        "invalid model artifact",
	ErrCodeTensorShapeMismatch:    "tensor shape does not match encoder input",
	ErrCodeEmptyInferenceBatch:    "inference batch is empty",
	ErrCodeScalerDimensionInvalid: "scaler input dimensionality mismatch",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
