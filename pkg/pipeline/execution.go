// Package pipeline 执行一次服务调用并把指标挂到该次执行上.
//
// 每次 Do 调用创建一个 Execution：按配置选择真实或空指标注册表，
// 登记服务名、操作名与负载大小等常量 gauge，在重试、限流、熔断与追踪包裹下发送请求，
// 结束时把注册表快照汇总为 metrics.Record 交给 Publisher.
package pipeline

import (
	"net/http"
	"time"

	"github.com/yeisme/sdkcore/pkg/metrics"
)

// Operation 标识一次服务调用.
type Operation struct {
	Service string
	Name    string
}

func (o Operation) String() string {
	return o.Service + "." + o.Name
}

// Execution 单次调用的执行上下文，注册表只属于这一次执行.
type Execution struct {
	ID        string
	Operation Operation
	Registry  metrics.Registry
	StartedAt time.Time
}

// Request 可重放的请求描述，每次尝试都会重新构造 *http.Request.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// ExpiresAt 预签名请求的失效时间，零值表示不过期.
	ExpiresAt time.Time
}

// PayloadSize 请求体大小，Body 为 nil 时返回 -1.
func (r Request) PayloadSize() int64 {
	if r.Body == nil {
		return -1
	}

	return int64(len(r.Body))
}

func (r Request) expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}
