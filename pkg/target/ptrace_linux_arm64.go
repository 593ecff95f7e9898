package target

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/procdbg/pkg/regs"
)

// _NT_PRSTATUS 通用寄存器的regset
const _NT_PRSTATUS = 1

// arm64没有PTRACE_GETREGS，通过PTRACE_GETREGSET读写user_pt_regs
func ptraceRegset(req int, tid int, r *regs.ARM64PtraceRegs) error {
	iov := unix.Iovec{Base: (*byte)(unsafe.Pointer(r))}
	iov.SetLen(int(unsafe.Sizeof(*r)))
	_, _, errno := unix.Syscall6(unix.SYS_PTRACE, uintptr(req), uintptr(tid), _NT_PRSTATUS, uintptr(unsafe.Pointer(&iov)), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func ptraceGetRegs(tid int) (regs.Registers, error) {
	var r regs.ARM64Registers
	if err := ptraceRegset(unix.PTRACE_GETREGSET, tid, &r.Regs); err != nil {
		return nil, err
	}
	return &r, nil
}

func ptraceSetRegs(tid int, r regs.Registers) error {
	ar, ok := r.(*regs.ARM64Registers)
	if !ok {
		return errors.Wrapf(ErrUnsupported, "write %v registers", r.Arch())
	}
	return ptraceRegset(unix.PTRACE_SETREGSET, tid, &ar.Regs)
}
