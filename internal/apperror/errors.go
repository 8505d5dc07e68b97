// Package apperror описывает закрытый набор доменных ошибок сервиса.
// Маппинг в HTTP-статусы выполняется только в слое handler.
package apperror

import (
	"errors"
	"fmt"
)

// Kind вид доменной ошибки
type Kind int

const (
	KindStoreFailure Kind = iota
	KindValidation
	KindAliasConflict
	KindAliasGenerationExhausted
	KindLinkNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindAliasConflict:
		return "alias_conflict"
	case KindAliasGenerationExhausted:
		return "alias_generation_exhausted"
	case KindLinkNotFound:
		return "link_not_found"
	default:
		return "store_failure"
	}
}

// Detail уточнение к ошибке валидации
type Detail struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error доменная ошибка: вид, сообщение для клиента, детали и исходная причина.
// Причина (Err) клиенту не показывается.
type Error struct {
	Kind    Kind
	Message string
	Details []Detail
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по виду, чтобы errors.Is(err, ErrLinkNotFound)
// срабатывал для любого сообщения
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Эталонные ошибки для errors.Is
var (
	ErrValidation               = &Error{Kind: KindValidation, Message: "Validation failed"}
	ErrAliasConflict            = &Error{Kind: KindAliasConflict, Message: "Alias is already in use."}
	ErrAliasGenerationExhausted = &Error{Kind: KindAliasGenerationExhausted, Message: "Failed to generate a unique short alias after multiple attempts."}
	ErrLinkNotFound             = &Error{Kind: KindLinkNotFound, Message: "Short URL not found."}
	ErrStoreFailure             = &Error{Kind: KindStoreFailure, Message: "Internal Server Error"}
)

func Validation(message string, details ...Detail) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

func AliasConflict(alias string, cause error) *Error {
	return &Error{
		Kind:    KindAliasConflict,
		Message: fmt.Sprintf("The alias '%s' is already in use.", alias),
		Err:     cause,
	}
}

func AliasGenerationExhausted(attempts int) *Error {
	return &Error{
		Kind:    KindAliasGenerationExhausted,
		Message: ErrAliasGenerationExhausted.Message,
		Err:     fmt.Errorf("all %d candidates collided", attempts),
	}
}

func LinkNotFound() *Error {
	return &Error{Kind: KindLinkNotFound, Message: ErrLinkNotFound.Message}
}

func StoreFailure(cause error) *Error {
	return &Error{Kind: KindStoreFailure, Message: ErrStoreFailure.Message, Err: cause}
}

// KindOf возвращает вид ошибки; всё, что не *Error, считается сбоем хранилища
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStoreFailure
}

// From приводит произвольную ошибку к *Error
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return StoreFailure(err)
}
