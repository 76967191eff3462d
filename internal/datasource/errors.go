package datasource

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrDataUnavailable 表示所有数据源与兜底手段均已耗尽，调用方不应重试。
var ErrDataUnavailable = errors.New("行情数据不可用")

// TransientError 表示超时/连接类故障，同一数据源内可重试。
type TransientError struct {
	Source string
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s 暂时性故障: %v", e.Source, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// StructuralError 表示响应结构异常（空载荷/非 2xx/日期不可解析），
// 重试同一数据源无意义，应立即切换下一个。
type StructuralError struct {
	Source string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s 结构性故障: %s", e.Source, e.Reason)
}

// IsTransient 判断是否为可重试故障。
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// classifyFetchErr 把底层 HTTP 错误归入重试分类。
func classifyFetchErr(source string, err error) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) {
		return &TransientError{Source: source, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return &TransientError{Source: source, Err: err}
	}
	return &StructuralError{Source: source, Reason: err.Error()}
}
