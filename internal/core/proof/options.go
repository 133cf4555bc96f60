package proof

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dep2p/go-exitmarker/internal/core/metrics"
)

// DefaultMaxClockSkew 默认允许的 created 超前量
const DefaultMaxClockSkew = 5 * time.Minute

type options struct {
	clock   clock.Clock
	verbose bool
	skew    time.Duration
	metrics *metrics.Metrics
}

func defaultOptions() *options {
	return &options{
		clock: clock.New(),
		skew:  DefaultMaxClockSkew,
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option 签名与验证选项
type Option func(*options)

// WithClock 设置时钟，用于 created 的生成与检查
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithVerbose 验证失败时返回底层密码学原因
func WithVerbose(verbose bool) Option {
	return func(o *options) {
		o.verbose = verbose
	}
}

// WithMaxClockSkew 设置 created 允许超前当前时间的最大值
//
// 0 表示不检查。
func WithMaxClockSkew(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.skew = d
		}
	}
}

// WithMetrics 记录签名与验证指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
