package trace

import (
	"github.com/pkg/errors"

	"github.com/hitzhangjie/procdbg/pkg/regs"
	"github.com/hitzhangjie/procdbg/pkg/target"
)

// ErrCallbackExpired 在Handle之外调用了Context.Call
var ErrCallbackExpired = errors.New("callback is only valid during Handle")

// Callback 处理事件的回调，由调试会话提供
type Callback func(tc *Context, ev Event) Reply

// Context 一次停止的上下文
//
// Context只能由运行Run的goroutine使用。回调只在Handle执行期间绑定到Context上，
// Handle返回后再调用Call会得到ErrCallbackExpired。
type Context struct {
	Proc *target.Process

	Tid     int
	Regs    *regs.Snapshot
	SigInfo target.SigInfo
	// HasSigInfo 只有信号停止才有siginfo
	HasSigInfo bool
	// Status wait4返回的原始状态
	Status uint32
	Event  Event

	cb    Callback
	reply Reply
	stop  bool
}

// NewContext 创建跟踪进程p的上下文
func NewContext(p *target.Process) *Context {
	return &Context{Proc: p}
}

// Call 调用当前绑定的回调并记录其决定
func (c *Context) Call(ev Event) (Reply, error) {
	if c.cb == nil {
		return ReplyRun, ErrCallbackExpired
	}
	c.reply = c.cb(c, ev)
	if c.reply == ReplyStop {
		c.stop = true
	}
	return c.reply, nil
}

// LastReply 最近一次回调的决定
func (c *Context) LastReply() Reply {
	return c.reply
}

// Reset 清空上一次停止的状态，Fetch在填充新事件之前调用
func (c *Context) Reset() {
	c.Tid = 0
	c.Regs = nil
	c.SigInfo = target.SigInfo{}
	c.HasSigInfo = false
	c.Status = 0
	c.Event = Event{}
	c.reply = ReplyRun
	c.stop = false
}

func (c *Context) bind(cb Callback) {
	c.cb = cb
}

func (c *Context) unbind() {
	c.cb = nil
}
