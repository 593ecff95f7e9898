package regs

import (
	"golang.org/x/arch/x86/x86asm"
)

// AMD64PtraceRegs linux/amd64的user_regs_struct，字段与unix.PtraceRegs一致
type AMD64PtraceRegs struct {
	R15      uint64
	R14      uint64
	R13      uint64
	R12      uint64
	Rbp      uint64
	Rbx      uint64
	R11      uint64
	R10      uint64
	R9       uint64
	R8       uint64
	Rax      uint64
	Rcx      uint64
	Rdx      uint64
	Rsi      uint64
	Rdi      uint64
	Orig_rax uint64
	Rip      uint64
	Cs       uint64
	Eflags   uint64
	Rsp      uint64
	Ss       uint64
	Fs_base  uint64
	Gs_base  uint64
	Ds       uint64
	Es       uint64
	Fs       uint64
	Gs       uint64
}

// AMD64Registers x86_64寄存器快照
type AMD64Registers struct {
	Regs AMD64PtraceRegs
}

func (r *AMD64Registers) Arch() Arch { return AMD64 }

func (r *AMD64Registers) PC() uint64 { return r.Regs.Rip }

func (r *AMD64Registers) SetPC(v uint64) { r.Regs.Rip = v }

func (r *AMD64Registers) SP() uint64 { return r.Regs.Rsp }

func (r *AMD64Registers) SetSP(v uint64) { r.Regs.Rsp = v }

// BP 帧指针
func (r *AMD64Registers) BP() uint64 { return r.Regs.Rbp }

// Get n为x86asm.Reg
func (r *AMD64Registers) Get(n int) (uint64, error) {
	switch x86asm.Reg(n) {
	case x86asm.RAX:
		return r.Regs.Rax, nil
	case x86asm.RCX:
		return r.Regs.Rcx, nil
	case x86asm.RDX:
		return r.Regs.Rdx, nil
	case x86asm.RBX:
		return r.Regs.Rbx, nil
	case x86asm.RSP:
		return r.Regs.Rsp, nil
	case x86asm.RBP:
		return r.Regs.Rbp, nil
	case x86asm.RSI:
		return r.Regs.Rsi, nil
	case x86asm.RDI:
		return r.Regs.Rdi, nil
	case x86asm.R8:
		return r.Regs.R8, nil
	case x86asm.R9:
		return r.Regs.R9, nil
	case x86asm.R10:
		return r.Regs.R10, nil
	case x86asm.R11:
		return r.Regs.R11, nil
	case x86asm.R12:
		return r.Regs.R12, nil
	case x86asm.R13:
		return r.Regs.R13, nil
	case x86asm.R14:
		return r.Regs.R14, nil
	case x86asm.R15:
		return r.Regs.R15, nil
	case x86asm.RIP:
		return r.Regs.Rip, nil
	case x86asm.CS:
		return r.Regs.Cs, nil
	case x86asm.SS:
		return r.Regs.Ss, nil
	case x86asm.DS:
		return r.Regs.Ds, nil
	case x86asm.ES:
		return r.Regs.Es, nil
	case x86asm.FS:
		return r.Regs.Fs, nil
	case x86asm.GS:
		return r.Regs.Gs, nil
	}
	return 0, ErrUnknownRegister
}

func (r *AMD64Registers) Slice() []Register {
	return []Register{
		{"rip", r.Regs.Rip},
		{"rsp", r.Regs.Rsp},
		{"rax", r.Regs.Rax},
		{"rbx", r.Regs.Rbx},
		{"rcx", r.Regs.Rcx},
		{"rdx", r.Regs.Rdx},
		{"rdi", r.Regs.Rdi},
		{"rsi", r.Regs.Rsi},
		{"rbp", r.Regs.Rbp},
		{"r8", r.Regs.R8},
		{"r9", r.Regs.R9},
		{"r10", r.Regs.R10},
		{"r11", r.Regs.R11},
		{"r12", r.Regs.R12},
		{"r13", r.Regs.R13},
		{"r14", r.Regs.R14},
		{"r15", r.Regs.R15},
		{"orig_rax", r.Regs.Orig_rax},
		{"cs", r.Regs.Cs},
		{"eflags", r.Regs.Eflags},
		{"ss", r.Regs.Ss},
		{"fs_base", r.Regs.Fs_base},
		{"gs_base", r.Regs.Gs_base},
		{"ds", r.Regs.Ds},
		{"es", r.Regs.Es},
		{"fs", r.Regs.Fs},
		{"gs", r.Regs.Gs},
	}
}

func (r *AMD64Registers) Copy() Registers {
	rr := *r
	return &rr
}
