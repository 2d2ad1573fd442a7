package service

import (
	"errors"
	"fmt"
)

// 业务错误分类。调用层（HTTP/WS）用 errors.Is 区分后映射状态码。
//
// - ErrValidation: 入参不合法，落库前拒绝
// - ErrNotFound: 请求/台账行不存在
// - ErrStateConflict: 目标不在期望状态（输掉抢单竞争的正常结果，不重试）
// - ErrAuthorization: 调用者没有该请求的台账行，或不是请求发起人
// - ErrDependency: 存储/传输不可用；事务整体回滚，由调用方决定重试
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrStateConflict = errors.New("state conflict")
	ErrAuthorization = errors.New("not authorized")
	ErrDependency    = errors.New("dependency unavailable")

	// ErrNoEligibleResponders 创建广播时没有任何可分发的 teacher
	ErrNoEligibleResponders = errors.New("no eligible responders")
)

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func notFoundErr(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

func conflictErr(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrStateConflict}, args...)...)
}

func authErr(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrAuthorization}, args...)...)
}

func dependencyErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrDependency, err)
}
