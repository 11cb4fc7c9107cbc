package agent

import (
	"errors"
	"fmt"

	"punchAgent/internal/page"
)

var (
	ErrLaunch            = errors.New("браузер не запустился")
	ErrAuthentication    = errors.New("ошибка входа")
	ErrUnreachableState  = errors.New("страница не пришла в состояние для отметки")
	ErrButtonNotFound    = page.ErrButtonNotFound
	ErrAttemptsExhausted = errors.New("все попытки исчерпаны")
	ErrBusy              = errors.New("отметка уже выполняется")
)

// ActionError - ошибка шага сценария. Kind - один из сентинелов выше,
// поэтому errors.Is(err, ErrAuthentication) работает и для обернутых ошибок.
type ActionError struct {
	Kind    error
	Action  string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Action, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Action, msg)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func (e *ActionError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

func newActionError(kind error, action, message string, err error) *ActionError {
	return &ActionError{Kind: kind, Action: action, Message: message, Err: err}
}
