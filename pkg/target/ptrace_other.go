//go:build !linux

package target

import (
	"syscall"

	"github.com/hitzhangjie/procdbg/pkg/regs"
)

func (p *Process) Registers(tid int) (*regs.Snapshot, bool) { return nil, false }

func (p *Process) SetRegisters(tid int, s *regs.Snapshot) error { return ErrUnsupported }

func (p *Process) SignalInfo(tid int) (SigInfo, bool) { return SigInfo{}, false }

func (fs FS) Launch(argv []string) (*Process, error) { return nil, ErrUnsupported }

func Launch(argv []string) (*Process, error) { return nil, ErrUnsupported }

func (p *Process) Attach() error { return ErrUnsupported }

func (p *Process) SetOptions(tid int, followClone bool) error { return ErrUnsupported }

func (p *Process) Cont(tid int, sig syscall.Signal) error { return ErrUnsupported }

func (p *Process) EventMsg(tid int) (uint, error) { return 0, ErrUnsupported }

func (p *Process) Detach() error { return ErrUnsupported }
