//go:build !linux

package trace

import (
	"context"

	"github.com/hitzhangjie/procdbg/pkg/session"
	"github.com/hitzhangjie/procdbg/pkg/target"
)

// PtraceHandler 只在linux上可用
type PtraceHandler struct{}

func NewPtraceHandler(sess *session.Session, p *target.Process) *PtraceHandler {
	return &PtraceHandler{}
}

func (h *PtraceHandler) Start() error { return target.ErrUnsupported }

func (h *PtraceHandler) Fetch(ctx context.Context, tc *Context) bool { return false }

func (h *PtraceHandler) Handle(tc *Context) (Resume, bool) { return Resume{}, false }

func (h *PtraceHandler) Cont(res Resume, tc *Context) error { return target.ErrUnsupported }
