package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-blog/internal/posts"
)

const (
	commandValidationCode   = "COMMAND_VALIDATION_FAILED"
	commandContextCanceled  = "COMMAND_CONTEXT_CANCELED"
	commandContextTimeout   = "COMMAND_CONTEXT_TIMEOUT"
	commandContextErrorCode = "COMMAND_CONTEXT_ERROR"
	commandExecuteFailed    = "COMMAND_EXECUTION_FAILED"
	commandPostNotFound     = "POST_NOT_FOUND"
	commandPostInvalid      = "POST_INVALID"
)

// errorClass maps sentinels onto a go-errors wrapper with a text code.
type errorClass struct {
	targets []error
	wrap    func(err error) error
}

func commandClass(message, code string, targets ...error) errorClass {
	return errorClass{targets: targets, wrap: func(err error) error {
		return goerrors.Wrap(err, goerrors.CategoryCommand, message).WithTextCode(code)
	}}
}

func validationClass(message, code string, targets ...error) errorClass {
	return errorClass{targets: targets, wrap: func(err error) error {
		return goerrors.Wrap(err, goerrors.CategoryValidation, message).WithTextCode(code)
	}}
}

func (c errorClass) matches(err error) bool {
	for _, target := range c.targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var (
	contextClasses = []errorClass{
		commandClass("command execution cancelled", commandContextCanceled, context.Canceled),
		commandClass("command execution deadline exceeded", commandContextTimeout, context.DeadlineExceeded),
	}
	contextFallback = commandClass("command context error", commandContextErrorCode)

	executeClasses = []errorClass{
		commandClass("post not found", commandPostNotFound, posts.ErrNotFound),
		validationClass("post is invalid", commandPostInvalid, posts.ErrDuplicatePath, posts.ErrMissingRoute),
	}
	executeFallback = commandClass("command execution failed", commandExecuteFailed)

	validationFallback = validationClass("command validation failed", commandValidationCode)
)

// classify wraps err with the first matching class, or fallback. Errors that
// are already go-errors values pass through.
func classify(err error, classes []errorClass, fallback errorClass) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	class := fallback
	for _, candidate := range classes {
		if candidate.matches(err) {
			class = candidate
			break
		}
	}
	return class.wrap(err)
}

func wrapValidationError(err error) error {
	return classify(err, nil, validationFallback)
}

func wrapContextError(err error) error {
	return classify(err, contextClasses, contextFallback)
}

func wrapExecuteError(err error) error {
	return classify(err, executeClasses, executeFallback)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
