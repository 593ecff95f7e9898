// Package session 保存一次调试会话的配置和日志，显式传给需要它们的组件
package session

import (
	"github.com/hitzhangjie/procdbg/pkg/config"
	"github.com/hitzhangjie/procdbg/pkg/logflags"
)

// Session 调试会话
type Session struct {
	Config *config.Config
	Logs   *logflags.Flags
}

// New 创建调试会话，logs为nil时不输出日志
func New(cfg *config.Config, logs *logflags.Flags) *Session {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Session{Config: cfg, Logs: logs}
}

// Default 默认配置、关闭日志的会话
func Default() *Session {
	return New(nil, nil)
}
