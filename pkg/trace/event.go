// Package trace 驱动单个被跟踪线程的 等待事件->处理->恢复执行 循环
package trace

import (
	"fmt"
	"syscall"
)

// State 事件循环的状态
type State int

const (
	WaitingForEvent State = iota
	EventReceived
	Handling
	Continuing
	Exited
)

func (s State) String() string {
	switch s {
	case WaitingForEvent:
		return "waiting"
	case EventReceived:
		return "received"
	case Handling:
		return "handling"
	case Continuing:
		return "continuing"
	case Exited:
		return "exited"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// EventKind 事件类型
type EventKind int

const (
	// Stopped 线程因信号停止
	Stopped EventKind = iota
	// Breakpoint 线程因SIGTRAP停止
	Breakpoint
	// ThreadCreated 被跟踪进程创建了新线程，新线程ID见Event.Child
	ThreadCreated
	// ThreadExited 非主线程退出
	ThreadExited
	// ProcessExited 主线程正常退出，退出码见Event.ExitCode
	ProcessExited
	// Killed 主线程被信号杀死
	Killed
)

func (k EventKind) String() string {
	switch k {
	case Stopped:
		return "stopped"
	case Breakpoint:
		return "breakpoint"
	case ThreadCreated:
		return "thread-created"
	case ThreadExited:
		return "thread-exited"
	case ProcessExited:
		return "process-exited"
	case Killed:
		return "killed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Terminal 进程已经不存在，循环结束
func (k EventKind) Terminal() bool {
	return k == ProcessExited || k == Killed
}

// Event 交给回调的事件描述
type Event struct {
	Kind     EventKind
	Tid      int
	Signal   syscall.Signal
	ExitCode int
	Child    int
}

func (e Event) String() string {
	switch e.Kind {
	case Stopped, Breakpoint, Killed:
		return fmt.Sprintf("%v tid=%d signal=%v", e.Kind, e.Tid, e.Signal)
	case ThreadCreated:
		return fmt.Sprintf("%v tid=%d child=%d", e.Kind, e.Tid, e.Child)
	case ProcessExited, ThreadExited:
		return fmt.Sprintf("%v tid=%d code=%d", e.Kind, e.Tid, e.ExitCode)
	default:
		return fmt.Sprintf("%v tid=%d", e.Kind, e.Tid)
	}
}

// Reply 回调对事件的处理决定
type Reply int

const (
	// ReplyRun 按默认方式恢复执行：SIGTRAP不投递，其他信号原样投递
	ReplyRun Reply = iota
	// ReplyPass 恢复执行并投递停止信号
	ReplyPass
	// ReplySuppress 恢复执行但不投递信号
	ReplySuppress
	// ReplyStop 不再恢复执行，结束循环，线程保持停止状态
	ReplyStop
)

func (r Reply) String() string {
	switch r {
	case ReplyRun:
		return "run"
	case ReplyPass:
		return "pass"
	case ReplySuppress:
		return "suppress"
	case ReplyStop:
		return "stop"
	default:
		return fmt.Sprintf("Reply(%d)", int(r))
	}
}

// Resume Cont的参数，Signal为0时不投递信号
type Resume struct {
	Signal syscall.Signal
}

// resumeFor 根据回调的决定计算恢复执行时投递的信号
func resumeFor(ev Event, reply Reply) Resume {
	switch ev.Kind {
	case Stopped, Breakpoint:
	default:
		return Resume{}
	}
	switch reply {
	case ReplyPass:
		return Resume{Signal: ev.Signal}
	case ReplySuppress:
		return Resume{}
	default:
		if ev.Kind == Breakpoint {
			return Resume{}
		}
		return Resume{Signal: ev.Signal}
	}
}
