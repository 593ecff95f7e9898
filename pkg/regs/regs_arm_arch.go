package regs

import (
	"fmt"

	"golang.org/x/arch/arm/armasm"
)

// ARM寄存器在Uregs中的下标
const (
	armFP     = 11
	armSP     = 13
	armLR     = 14
	armPC     = 15
	armCPSR   = 16
	armOrigR0 = 17
)

// ARMPtraceRegs linux/arm的user_regs，r0-r15、cpsr、orig_r0
type ARMPtraceRegs struct {
	Uregs [18]uint32
}

// ARMRegisters arm寄存器快照
type ARMRegisters struct {
	Regs ARMPtraceRegs
}

func (r *ARMRegisters) Arch() Arch { return ARM }

func (r *ARMRegisters) PC() uint64 { return uint64(r.Regs.Uregs[armPC]) }

func (r *ARMRegisters) SetPC(v uint64) { r.Regs.Uregs[armPC] = uint32(v) }

func (r *ARMRegisters) SP() uint64 { return uint64(r.Regs.Uregs[armSP]) }

func (r *ARMRegisters) SetSP(v uint64) { r.Regs.Uregs[armSP] = uint32(v) }

// LR 链接寄存器r14
func (r *ARMRegisters) LR() uint64 { return uint64(r.Regs.Uregs[armLR]) }

// FP 帧指针r11
func (r *ARMRegisters) FP() uint64 { return uint64(r.Regs.Uregs[armFP]) }

// CPSR 程序状态寄存器
func (r *ARMRegisters) CPSR() uint32 { return r.Regs.Uregs[armCPSR] }

// Get n为armasm.Reg
func (r *ARMRegisters) Get(n int) (uint64, error) {
	reg := armasm.Reg(n)
	if reg >= armasm.R0 && reg <= armasm.R15 {
		return uint64(r.Regs.Uregs[reg-armasm.R0]), nil
	}
	return 0, ErrUnknownRegister
}

func (r *ARMRegisters) Slice() []Register {
	out := make([]Register, 0, len(r.Regs.Uregs))
	for i := 0; i < armSP; i++ {
		out = append(out, Register{fmt.Sprintf("r%d", i), uint64(r.Regs.Uregs[i])})
	}
	return append(out,
		Register{"sp", uint64(r.Regs.Uregs[armSP])},
		Register{"lr", uint64(r.Regs.Uregs[armLR])},
		Register{"pc", uint64(r.Regs.Uregs[armPC])},
		Register{"cpsr", uint64(r.Regs.Uregs[armCPSR])},
		Register{"orig_r0", uint64(r.Regs.Uregs[armOrigR0])},
	)
}

func (r *ARMRegisters) Copy() Registers {
	rr := *r
	return &rr
}
