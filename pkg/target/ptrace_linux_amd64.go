package target

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/procdbg/pkg/regs"
)

func ptraceGetRegs(tid int) (regs.Registers, error) {
	var r regs.AMD64Registers
	if err := unix.PtraceGetRegs(tid, (*unix.PtraceRegs)(&r.Regs)); err != nil {
		return nil, err
	}
	return &r, nil
}

func ptraceSetRegs(tid int, r regs.Registers) error {
	ar, ok := r.(*regs.AMD64Registers)
	if !ok {
		return errors.Wrapf(ErrUnsupported, "write %v registers", r.Arch())
	}
	return unix.PtraceSetRegs(tid, (*unix.PtraceRegs)(&ar.Regs))
}
