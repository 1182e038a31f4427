package domain

import (
	"errors"
	"fmt"
)

// 错误分类：HTTP 层据此映射响应码，内部存储细节不外泄
var (
	ErrUnauthenticated        = errors.New("no resolvable identity")
	ErrAccountDeactivated     = errors.New("account deactivated")
	ErrConcurrentModification = errors.New("paper was modified concurrently")
	ErrAllocationFailure      = errors.New("doi allocation failed")
	ErrAuditWriteFailure      = errors.New("audit write failed")
	ErrMalformedDOI           = errors.New("malformed doi")
	ErrNotFound               = errors.New("record not found")
	ErrValidation             = errors.New("invalid input")
)

// InsufficientRoleError carries the role set that would have been
// sufficient, so the caller can render it.
type InsufficientRoleError struct {
	Actual   Role
	Required []Role
}

func (e *InsufficientRoleError) Error() string {
	return fmt.Sprintf("role %s not in allowed set %v", e.Actual, e.Required)
}

type InvalidTransitionError struct {
	From PaperStatus
	To   PaperStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s is not allowed", e.From, e.To)
}
