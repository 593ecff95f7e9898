package target

import (
	"runtime"
	"sync"
)

// ptracer 所有ptrace请求都通过同一个锁定了OS线程的goroutine发出
//
// issue: https://github.com/golang/go/issues/7699
//
// ptrace请求必须来自attach时的tracer线程，否则内核返回ESRCH。
type ptracer struct {
	once     sync.Once
	stopOnce sync.Once
	reqCh    chan func()
	doneCh   chan struct{}
	stopCh   chan struct{}
}

func newPtracer() *ptracer {
	return &ptracer{
		reqCh:  make(chan func()),
		doneCh: make(chan struct{}),
		stopCh: make(chan struct{}),
	}
}

// ExecPtrace 在tracer线程上执行fn，执行完成后返回；executor停止后fn不会被执行
func (p *Process) ExecPtrace(fn func()) bool {
	t := p.tracer
	t.once.Do(func() {
		go func() {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			for {
				select {
				case reqFn := <-t.reqCh:
					reqFn()
					t.doneCh <- struct{}{}
				case <-t.stopCh:
					return
				}
			}
		}()
	})

	select {
	case t.reqCh <- fn:
	case <-t.stopCh:
		return false
	}
	<-t.doneCh
	return true
}

func (t *ptracer) stop() {
	t.stopOnce.Do(func() {
		close(t.stopCh)
	})
}
