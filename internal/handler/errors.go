package handler

import (
	"errors"
	"net/http"

	"github.com/SergeiKhy/link-shortener/internal/apperror"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details []apperror.Detail `json:"details,omitempty"`
}

// statusFor маппинг вида доменной ошибки в HTTP-статус и код ответа
func statusFor(kind apperror.Kind) (int, string) {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest, "invalid_request"
	case apperror.KindAliasConflict:
		return http.StatusConflict, "alias_conflict"
	case apperror.KindLinkNotFound:
		return http.StatusNotFound, "not_found"
	case apperror.KindAliasGenerationExhausted:
		return http.StatusInternalServerError, "alias_generation_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError отвечает клиенту по виду ошибки; причина сбоя только логируется
func (h *LinkHandler) writeError(c *gin.Context, err error) {
	appErr := apperror.From(err)
	status, code := statusFor(appErr.Kind)

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("kind", appErr.Kind.String()),
			zap.Error(err),
		)
	}

	c.JSON(status, ErrorResponse{
		Error:   code,
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

// bindingError преобразует ошибку биндинга gin в ошибку валидации с деталями по полям
func bindingError(err error) *apperror.Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.Validation("Invalid request body", apperror.Detail{Path: "body", Message: err.Error()})
	}

	details := make([]apperror.Detail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apperror.Detail{
			Path:    fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return apperror.Validation("Validation failed", details...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "url":
		return "must be a valid URL"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "alias":
		return "may contain only letters, digits, '-' and '_'"
	case "notreserved":
		return "is reserved for a service route"
	default:
		return "failed on '" + fe.Tag() + "' rule"
	}
}
