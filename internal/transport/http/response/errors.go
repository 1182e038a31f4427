package response

import (
	"errors"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

// FromError 把领域错误映射成响应封套。对外只给 reason code，
// 存储层细节留给内部日志；角色不足时附上足够的角色集合（UX 契约）。
func FromError(err error) Resp {
	var roleErr *domain.InsufficientRoleError
	var transErr *domain.InvalidTransitionError

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return Error(CodeUnauthorized, "no account")
	case errors.Is(err, domain.ErrAccountDeactivated):
		return Error(CodeUnauthorized, "account deactivated")
	case errors.As(err, &roleErr):
		return New(CodeForbidden, "insufficient role", map[string]any{"required": roleErr.Required})
	case errors.As(err, &transErr):
		return Error(CodeBadRequest, transErr.Error())
	case errors.Is(err, domain.ErrMalformedDOI), errors.Is(err, domain.ErrValidation):
		return Error(CodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrConcurrentModification):
		return Error(CodeConflict, "paper was modified concurrently, please retry")
	case errors.Is(err, domain.ErrNotFound):
		return Error(CodeNotFound, "not found")
	default:
		// AllocationFailure / AuditWriteFailure / 其它：整个操作已中止
		return Error(CodeServerError, "temporary failure, please try again")
	}
}
