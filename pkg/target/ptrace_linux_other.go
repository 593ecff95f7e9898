//go:build linux && !386 && !amd64 && !arm && !arm64

package target

import (
	"github.com/hitzhangjie/procdbg/pkg/regs"
)

func ptraceGetRegs(tid int) (regs.Registers, error) {
	return nil, ErrUnsupported
}

func ptraceSetRegs(tid int, r regs.Registers) error {
	return ErrUnsupported
}
