// Пакет errors — конструкторы ошибок Moderation Dashboard.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // конфликт имени со stdlib, пакет импортируется с алиасом

import (
	"encoding/json"
	"net/http"
)

// Коды ошибок.
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeReasonRequired      = "REASON_REQUIRED"
	CodeSubmissionInFlight  = "SUBMISSION_IN_FLIGHT"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeUnexpectedContent   = "UNEXPECTED_CONTENT"
	CodeDecisionFailed      = "DECISION_FAILED"
	CodeInternalError       = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// ReasonRequired — 422 решение требует причину (запрос в API не отправлялся).
func ReasonRequired(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnprocessableEntity, CodeReasonRequired, message)
}

// SubmissionInFlight — 409 по объявлению уже отправляется решение.
func SubmissionInFlight(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeSubmissionInFlight, message)
}

// UpstreamUnavailable — 502 внешний API недоступен или вернул ошибку.
func UpstreamUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeUpstreamUnavailable, message)
}

// UnexpectedContent — 502 ответ API не JSON или не соответствует контракту.
func UnexpectedContent(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeUnexpectedContent, message)
}

// DecisionFailed — 502 API не принял решение модератора.
func DecisionFailed(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeDecisionFailed, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
