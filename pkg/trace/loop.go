package trace

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hitzhangjie/procdbg/pkg/logflags"
)

// EventHandler 具体的事件来源，例如ptrace
type EventHandler interface {
	// Fetch 阻塞等待下一个事件并填充tc，没有事件可取时返回false
	Fetch(ctx context.Context, tc *Context) bool
	// Handle 将tc中的事件交给回调，返回false表示不需要恢复执行
	Handle(tc *Context) (Resume, bool)
	// Cont 恢复执行，快照被修改过时先写回寄存器
	Cont(res Resume, tc *Context) error
}

// Observer 状态变化的观察者
type Observer func(from, to State, tc *Context)

type options struct {
	observer Observer
	log      *logrus.Entry
}

// Option Run的可选参数
type Option func(*options)

// WithObserver 每次状态变化时调用fn
func WithObserver(fn Observer) Option {
	return func(o *options) { o.observer = fn }
}

// WithLogger 使用log记录状态变化
func WithLogger(log *logrus.Entry) Option {
	return func(o *options) { o.log = log }
}

// Run 驱动事件循环直到进程退出
//
// 以下情况循环结束：
//   - 进程退出或被杀死，返回nil；
//   - Fetch返回false，ctx已取消时返回ctx.Err()，否则返回nil；
//   - 回调返回ReplyStop，返回nil，线程保持停止；
//   - Cont失败，返回错误。
//
// 每次调用Handle前将cb绑定到tc上，Handle返回后立即解绑。cb为nil时所有事件按
// ReplyRun处理。
func Run(ctx context.Context, h EventHandler, tc *Context, cb Callback, opts ...Option) error {
	o := options{log: logflags.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if cb == nil {
		cb = func(*Context, Event) Reply { return ReplyRun }
	}

	state := WaitingForEvent
	move := func(to State) {
		o.log.Debugf("%v -> %v", state, to)
		if o.observer != nil {
			o.observer(state, to, tc)
		}
		state = to
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !h.Fetch(ctx, tc) {
			return ctx.Err()
		}
		move(EventReceived)

		move(Handling)
		tc.bind(cb)
		res, ok := h.Handle(tc)
		tc.unbind()

		if tc.Event.Kind.Terminal() {
			move(Exited)
			return nil
		}
		if tc.stop {
			o.log.Debugf("stopped by callback at %v", tc.Event)
			return nil
		}
		if !ok {
			move(WaitingForEvent)
			continue
		}

		move(Continuing)
		if err := h.Cont(res, tc); err != nil {
			return errors.Wrapf(err, "resume after %v", tc.Event)
		}
		move(WaitingForEvent)
	}
}
