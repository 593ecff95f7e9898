package target

import (
	"os"
	"os/exec"
	"syscall"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/procdbg/pkg/regs"
)

// Registers 读取线程tid的寄存器，线程未处于ptrace-stop时返回false
func (p *Process) Registers(tid int) (*regs.Snapshot, bool) {
	var (
		r   regs.Registers
		err error
	)
	if !p.ExecPtrace(func() { r, err = ptraceGetRegs(tid) }) {
		return nil, false
	}
	if err != nil {
		p.log.Debugf("get registers of thread %d: %v", tid, err)
		return nil, false
	}
	return regs.NewSnapshot(r), true
}

// SetRegisters 将快照写回线程tid，不修改快照的dirty标记
func (p *Process) SetRegisters(tid int, s *regs.Snapshot) error {
	var err error
	if !p.ExecPtrace(func() { err = ptraceSetRegs(tid, s.Raw()) }) {
		return ErrNotStopped
	}
	if err == unix.ESRCH {
		return errors.Wrapf(ErrNotStopped, "set registers of thread %d", tid)
	}
	return errors.Wrapf(err, "set registers of thread %d", tid)
}

// SignalInfo 读取线程tid当前的信号信息，线程未停止时返回false
func (p *Process) SignalInfo(tid int) (SigInfo, bool) {
	var (
		raw   [siginfoSize]byte
		errno syscall.Errno
	)
	ok := p.ExecPtrace(func() {
		_, _, errno = unix.Syscall6(unix.SYS_PTRACE, unix.PTRACE_GETSIGINFO, uintptr(tid), 0, uintptr(unsafe.Pointer(&raw[0])), 0, 0)
	})
	if !ok || errno != 0 {
		p.log.Debugf("get siginfo of thread %d: %v", tid, errno)
		return SigInfo{}, false
	}
	return decodeSigInfo(raw[:]), true
}

// Launch 以被跟踪的方式启动argv，返回时进程停在exec之后的第一条指令
//
// 为了让tracer自动跟踪新创建的线程，需要在返回后调用SetOptions设置
// PTRACE_O_TRACECLONE，见`man 2 ptrace`。
func (fs FS) Launch(argv []string) (*Process, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command line")
	}

	p := fs.newProcess(0)
	var (
		cmd *exec.Cmd
		err error
	)
	p.ExecPtrace(func() {
		cmd = exec.Command(argv[0], argv[1:]...)
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.SysProcAttr = &syscall.SysProcAttr{
			Ptrace:  true, // implies PTRACE_TRACEME
			Setpgid: true,
		}
		err = cmd.Start()
	})
	if err != nil {
		p.tracer.stop()
		return nil, errors.Wrapf(err, "start %s", argv[0])
	}
	p.pid = cmd.Process.Pid
	p.log = fs.logger().WithField("pid", p.pid)

	_, status, err := p.Wait(p.pid, 0)
	if err != nil {
		p.tracer.stop()
		return nil, errors.Wrapf(err, "wait process %d", p.pid)
	}
	if status == nil || !status.Stopped() {
		p.tracer.stop()
		return nil, errors.Errorf("process %d exited before the first stop", p.pid)
	}
	p.log.Debugf("launched %v, stopped: %v", argv, status.StopSignal())
	return p, nil
}

// Launch 见FS.Launch
func Launch(argv []string) (*Process, error) { return defaultFS.Launch(argv) }

// Attach attach到进程的所有线程，并等待它们停止
func (p *Process) Attach() error {
	var err error
	p.ExecPtrace(func() { err = unix.PtraceAttach(p.pid) })
	if err != nil {
		return errors.Wrapf(err, "attach process %d", p.pid)
	}
	if _, _, err = p.Wait(p.pid, 0); err != nil {
		return errors.Wrapf(err, "wait process %d", p.pid)
	}

	for tid := range p.Threads() {
		if tid == p.pid {
			continue
		}
		p.ExecPtrace(func() { err = unix.PtraceAttach(tid) })
		switch err {
		case nil:
		case unix.EPERM:
			// Maybe we have traced tid via PTRACE_O_TRACECLONE.
			// If we try to attach to it again, it will fail.
			continue
		case unix.ESRCH:
			// thread exited
			continue
		default:
			return errors.Wrapf(err, "attach thread %d", tid)
		}
		if _, _, err = p.Wait(tid, 0); err != nil {
			p.log.Debugf("wait thread %d: %v", tid, err)
		}
	}
	return nil
}

// SetOptions 设置ptrace选项，followClone时自动跟踪新创建的线程
func (p *Process) SetOptions(tid int, followClone bool) error {
	opts := 0
	if followClone {
		opts |= unix.PTRACE_O_TRACECLONE
	}
	var err error
	p.ExecPtrace(func() { err = unix.PtraceSetOptions(tid, opts) })
	return errors.Wrapf(err, "set options of thread %d", tid)
}

// Cont 恢复线程tid的执行，sig非0时向线程投递该信号
func (p *Process) Cont(tid int, sig syscall.Signal) error {
	var err error
	p.ExecPtrace(func() { err = unix.PtraceCont(tid, int(sig)) })
	if err == unix.ESRCH {
		return errors.Wrapf(ErrNotStopped, "continue thread %d", tid)
	}
	return errors.Wrapf(err, "continue thread %d", tid)
}

// EventMsg PTRACE_GETEVENTMSG，例如PTRACE_EVENT_CLONE时的新线程ID
func (p *Process) EventMsg(tid int) (uint, error) {
	var (
		msg uint
		err error
	)
	p.ExecPtrace(func() { msg, err = unix.PtraceGetEventMsg(tid) })
	return msg, errors.Wrapf(err, "get event message of thread %d", tid)
}

// Detach 从所有线程detach
//
// 正在运行的线程无法直接detach，先用SIGSTOP让它停下，detach时不投递信号，
// 从而吞掉这个SIGSTOP。
func (p *Process) Detach() error {
	var first error
	for tid := range p.Threads() {
		var err error
		p.ExecPtrace(func() { err = unix.PtraceDetach(tid) })
		if err == unix.ESRCH {
			if err = unix.Tgkill(p.pid, tid, unix.SIGSTOP); err == nil {
				if _, _, err = p.Wait(tid, 0); err == nil {
					p.ExecPtrace(func() { err = unix.PtraceDetach(tid) })
				}
			}
		}
		if err != nil && err != unix.ESRCH {
			p.log.Debugf("detach thread %d: %v", tid, err)
			if first == nil {
				first = errors.Wrapf(err, "detach thread %d", tid)
			}
		}
	}
	return first
}

// Wait 等待线程pid的状态变化，pid为-1时等待任意被跟踪的线程
func (p *Process) Wait(pid, options int) (int, *unix.WaitStatus, error) {
	var s unix.WaitStatus
	if (p.pid != pid) || (options != 0) {
		wpid, err := unix.Wait4(pid, &s, unix.WALL|options, nil)
		return wpid, &s, err
	}
	// If we call wait4/waitpid on a thread that is the leader of its group,
	// with options == 0, while ptracing and the thread leader has exited leaving
	// zombies of its own then waitpid hangs forever this is apparently intended
	// behaviour in the linux kernel because it's just so convenient.
	// Therefore we call wait4 in a loop with WNOHANG, sleeping a while between
	// calls and exiting when either wait4 succeeds or we find out that the thread
	// has become a zombie.
	// References:
	// https://sourceware.org/bugzilla/show_bug.cgi?id=12702
	// https://sourceware.org/bugzilla/show_bug.cgi?id=10095
	for {
		wpid, err := unix.Wait4(pid, &s, unix.WNOHANG|unix.WALL|options, nil)
		if err != nil {
			return 0, nil, err
		}
		if wpid != 0 {
			return wpid, &s, nil
		}
		if st := p.status(pid); st == statusZombie || st == statusDead {
			return pid, nil, nil
		}
		time.Sleep(20 * time.Millisecond)
	}
}
