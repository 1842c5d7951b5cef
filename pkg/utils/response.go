package utils

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"oms-backend/pkg/models"
	"oms-backend/pkg/storage"
	"oms-backend/pkg/workflow"
)

// APIResponse 标准API响应结构
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// APIError 错误信息结构
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Meta 列表元数据
type Meta struct {
	Total  int `json:"total"`
	Unread int `json:"unread,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, statusCode int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("failed to encode response", "module", "utils.response", "error", err)
	}
}

// WriteJSONResponse 写入JSON响应
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	writeEnvelope(w, statusCode, APIResponse{
		Success: statusCode >= 200 && statusCode < 300,
		Data:    data,
	})
}

func WriteSuccessResponse(w http.ResponseWriter, data interface{}) {
	WriteJSONResponse(w, http.StatusOK, data)
}

func WriteCreatedResponse(w http.ResponseWriter, data interface{}) {
	WriteJSONResponse(w, http.StatusCreated, data)
}

// WriteListResponse 写入列表响应, meta.total 为条目数
func WriteListResponse[T any](w http.ResponseWriter, items []T, meta *Meta) {
	if items == nil {
		items = []T{}
	}
	if meta == nil {
		meta = &Meta{}
	}
	meta.Total = len(items)
	writeEnvelope(w, http.StatusOK, APIResponse{Success: true, Data: items, Meta: meta})
}

// WriteErrorResponseWithCode 写入带错误代码的错误响应
func WriteErrorResponseWithCode(w http.ResponseWriter, statusCode int, code, message string, details interface{}) {
	writeEnvelope(w, statusCode, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message, Details: details},
	})
}

func WriteBadRequestResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusBadRequest, "BAD_REQUEST", message, nil)
}

func WriteUnauthorizedResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func WriteForbiddenResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusForbidden, "FORBIDDEN", message, nil)
}

func WriteNotFoundResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusNotFound, "NOT_FOUND", message, nil)
}

func WriteConflictResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusConflict, "CONFLICT", message, nil)
}

func WriteInternalServerErrorResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", message, nil)
}

func WriteValidationErrorResponse(w http.ResponseWriter, message string, details interface{}) {
	WriteErrorResponseWithCode(w, http.StatusBadRequest, "VALIDATION_ERROR", message, details)
}

// WriteTooManyRequestsResponse 写入429响应
func WriteTooManyRequestsResponse(w http.ResponseWriter, retryAfterSeconds int) {
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	WriteErrorResponseWithCode(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests", nil)
}

// WriteDomainError 把领域错误映射为HTTP响应; 未识别的错误记录日志并返回500
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		WriteErrorResponseWithCode(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, workflow.ErrAlreadyDecided):
		WriteErrorResponseWithCode(w, http.StatusConflict, "ALREADY_DECIDED", err.Error(), nil)
	case errors.Is(err, models.ErrConflict):
		WriteErrorResponseWithCode(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, workflow.ErrReasonRequired):
		WriteErrorResponseWithCode(w, http.StatusBadRequest, "REASON_REQUIRED", err.Error(), nil)
	case errors.Is(err, workflow.ErrInvalidDecision):
		WriteErrorResponseWithCode(w, http.StatusBadRequest, "INVALID_DECISION", err.Error(), nil)
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, storage.ErrInvalidUpload):
		WriteErrorResponseWithCode(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, models.ErrForbidden):
		WriteErrorResponseWithCode(w, http.StatusForbidden, "FORBIDDEN", "You do not have permission to perform this action", nil)
	case errors.Is(err, storage.ErrTooLarge):
		WriteErrorResponseWithCode(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", err.Error(), nil)
	case errors.Is(err, storage.ErrUnsupportedType):
		WriteErrorResponseWithCode(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", err.Error(), nil)
	case errors.Is(err, storage.ErrNotConfigured):
		WriteErrorResponseWithCode(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", err.Error(), nil)
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"module", "http",
			"operation", r.Method+" "+r.URL.Path,
			"outcome", "failure",
			"error", err,
		)
		WriteInternalServerErrorResponse(w, "Internal server error")
	}
}

// ParseJSONBody 解析JSON请求体
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// GetQueryParam 获取查询参数，如果不存在则返回默认值
func GetQueryParam(r *http.Request, key, defaultValue string) string {
	if value := r.URL.Query().Get(key); value != "" {
		return value
	}
	return defaultValue
}
