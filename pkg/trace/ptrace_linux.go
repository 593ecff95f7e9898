package trace

import (
	"context"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/procdbg/pkg/session"
	"github.com/hitzhangjie/procdbg/pkg/target"
)

// pollInterval 没有事件时两次wait4之间的间隔
const pollInterval = 10 * time.Millisecond

// PtraceHandler 基于ptrace和wait4的EventHandler
//
// 进程必须已经通过Attach或Launch被跟踪。
type PtraceHandler struct {
	proc        *target.Process
	followClone bool
	log         *logrus.Entry

	status unix.WaitStatus

	// threads 已知的被跟踪线程，starting 已收到clone事件、尚未收到首次停止的线程
	threads  map[int]struct{}
	starting map[int]struct{}
}

// NewPtraceHandler 创建跟踪p的事件源，是否跟踪新线程由trace.follow_clone决定
func NewPtraceHandler(sess *session.Session, p *target.Process) *PtraceHandler {
	if sess == nil {
		sess = session.Default()
	}
	h := &PtraceHandler{
		proc:        p,
		followClone: sess.Config.Trace.FollowClone,
		log:         sess.Logs.TraceLogger().WithField("pid", p.Pid()),
		threads:     map[int]struct{}{},
		starting:    map[int]struct{}{},
	}
	for tid := range p.Threads() {
		h.threads[tid] = struct{}{}
	}
	return h
}

// Start 为所有已知线程设置ptrace选项并恢复执行，Attach或Launch之后、Run之前调用
func (h *PtraceHandler) Start() error {
	for tid := range h.threads {
		if err := h.proc.SetOptions(tid, h.followClone); err != nil {
			return err
		}
	}
	for tid := range h.threads {
		if err := h.proc.Cont(tid, 0); err != nil {
			return err
		}
	}
	return nil
}

// Fetch 轮询wait4直到有线程状态变化或ctx被取消
func (h *PtraceHandler) Fetch(ctx context.Context, tc *Context) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		wpid, status, err := h.proc.Wait(-1, unix.WNOHANG)
		if err != nil {
			// ECHILD: no traced thread left
			h.log.Debugf("wait: %v", err)
			return false
		}
		if wpid == 0 || status == nil {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(pollInterval):
			}
			continue
		}

		tc.Reset()
		tc.Proc = h.proc
		tc.Tid = wpid
		tc.Status = uint32(*status)
		h.status = *status

		if status.Stopped() {
			if r, ok := h.proc.Registers(wpid); ok {
				tc.Regs = r
			}
			tc.SigInfo, tc.HasSigInfo = h.proc.SignalInfo(wpid)
		}
		return true
	}
}

// Handle 将wait状态翻译为Event并调用回调
func (h *PtraceHandler) Handle(tc *Context) (Resume, bool) {
	s := h.status
	leader := tc.Tid == h.proc.Pid()
	ev := Event{Tid: tc.Tid}

	switch {
	case s.Exited():
		ev.Kind = ThreadExited
		if leader {
			ev.Kind = ProcessExited
		}
		ev.ExitCode = s.ExitStatus()
		delete(h.threads, tc.Tid)
	case s.Signaled():
		ev.Kind = ThreadExited
		if leader {
			ev.Kind = Killed
		}
		ev.Signal = s.Signal()
		delete(h.threads, tc.Tid)
	case s.Stopped():
		sig := s.StopSignal()
		if h.initialStop(tc.Tid, sig) {
			h.log.Debugf("thread %d started", tc.Tid)
			tc.Event = Event{Kind: Stopped, Tid: tc.Tid, Signal: sig}
			return Resume{}, true
		}
		switch {
		case sig == syscall.SIGTRAP && s.TrapCause() == unix.PTRACE_EVENT_CLONE:
			ev.Kind = ThreadCreated
			child, err := h.proc.EventMsg(tc.Tid)
			if err != nil {
				h.log.Debugf("clone event: %v", err)
			}
			ev.Child = int(child)
			if _, ok := h.threads[ev.Child]; !ok && ev.Child > 0 {
				h.starting[ev.Child] = struct{}{}
			}
		case sig == syscall.SIGTRAP:
			ev.Kind = Breakpoint
			ev.Signal = sig
		default:
			ev.Kind = Stopped
			ev.Signal = sig
		}
	default:
		return Resume{}, false
	}

	tc.Event = ev
	reply, err := tc.Call(ev)
	if err != nil {
		h.log.Debugf("callback: %v", err)
	}
	if ev.Kind.Terminal() || ev.Kind == ThreadExited || reply == ReplyStop {
		return Resume{}, false
	}
	return resumeFor(ev, reply), true
}

// initialStop 新线程被自动跟踪后会先以SIGSTOP停止一次，这次停止不交给回调
//
// 新线程的SIGSTOP和父线程的clone事件到达顺序不确定，未知线程的SIGSTOP也按
// 新线程处理。
func (h *PtraceHandler) initialStop(tid int, sig syscall.Signal) bool {
	if _, ok := h.starting[tid]; ok {
		delete(h.starting, tid)
		h.threads[tid] = struct{}{}
		return sig == syscall.SIGSTOP
	}
	if _, ok := h.threads[tid]; !ok {
		h.threads[tid] = struct{}{}
		return sig == syscall.SIGSTOP
	}
	return false
}

// Cont 快照被修改过时先写回寄存器，再恢复线程执行
func (h *PtraceHandler) Cont(res Resume, tc *Context) error {
	if tc.Regs != nil && tc.Regs.Dirty() {
		if err := h.proc.SetRegisters(tc.Tid, tc.Regs); err != nil {
			return err
		}
		tc.Regs.Clean()
	}
	return h.proc.Cont(tc.Tid, res.Signal)
}
