package regs

import (
	"fmt"

	"golang.org/x/arch/arm64/arm64asm"
)

// ARM64PtraceRegs linux/arm64的user_pt_regs，通过PTRACE_GETREGSET(NT_PRSTATUS)读写
type ARM64PtraceRegs struct {
	Regs   [31]uint64
	Sp     uint64
	Pc     uint64
	Pstate uint64
}

// ARM64Registers arm64寄存器快照
type ARM64Registers struct {
	Regs ARM64PtraceRegs
}

func (r *ARM64Registers) Arch() Arch { return ARM64 }

func (r *ARM64Registers) PC() uint64 { return r.Regs.Pc }

func (r *ARM64Registers) SetPC(v uint64) { r.Regs.Pc = v }

func (r *ARM64Registers) SP() uint64 { return r.Regs.Sp }

func (r *ARM64Registers) SetSP(v uint64) { r.Regs.Sp = v }

// LR 链接寄存器x30
func (r *ARM64Registers) LR() uint64 { return r.Regs.Regs[30] }

// FP 帧指针x29
func (r *ARM64Registers) FP() uint64 { return r.Regs.Regs[29] }

// Get n为arm64asm.Reg
func (r *ARM64Registers) Get(n int) (uint64, error) {
	reg := arm64asm.Reg(n)
	if reg >= arm64asm.X0 && reg <= arm64asm.X30 {
		return r.Regs.Regs[reg-arm64asm.X0], nil
	}
	return 0, ErrUnknownRegister
}

func (r *ARM64Registers) Slice() []Register {
	out := make([]Register, 0, len(r.Regs.Regs)+3)
	for i, v := range r.Regs.Regs {
		out = append(out, Register{fmt.Sprintf("x%d", i), v})
	}
	return append(out,
		Register{"sp", r.Regs.Sp},
		Register{"pc", r.Regs.Pc},
		Register{"pstate", r.Regs.Pstate},
	)
}

func (r *ARM64Registers) Copy() Registers {
	rr := *r
	return &rr
}
