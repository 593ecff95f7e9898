package regs

import (
	"golang.org/x/arch/x86/x86asm"
)

// I386PtraceRegs linux/386的user_regs_struct，字段与unix.PtraceRegs一致
type I386PtraceRegs struct {
	Ebx      int32
	Ecx      int32
	Edx      int32
	Esi      int32
	Edi      int32
	Ebp      int32
	Eax      int32
	Xds      int32
	Xes      int32
	Xfs      int32
	Xgs      int32
	Orig_eax int32
	Eip      int32
	Xcs      int32
	Eflags   int32
	Esp      int32
	Xss      int32
}

// I386Registers x86寄存器快照
type I386Registers struct {
	Regs I386PtraceRegs
}

func (r *I386Registers) Arch() Arch { return X86 }

func (r *I386Registers) PC() uint64 { return uint64(uint32(r.Regs.Eip)) }

func (r *I386Registers) SetPC(v uint64) { r.Regs.Eip = int32(uint32(v)) }

func (r *I386Registers) SP() uint64 { return uint64(uint32(r.Regs.Esp)) }

func (r *I386Registers) SetSP(v uint64) { r.Regs.Esp = int32(uint32(v)) }

// BP 帧指针
func (r *I386Registers) BP() uint64 { return uint64(uint32(r.Regs.Ebp)) }

// Get n为x86asm.Reg
func (r *I386Registers) Get(n int) (uint64, error) {
	var v int32
	switch x86asm.Reg(n) {
	case x86asm.EAX:
		v = r.Regs.Eax
	case x86asm.ECX:
		v = r.Regs.Ecx
	case x86asm.EDX:
		v = r.Regs.Edx
	case x86asm.EBX:
		v = r.Regs.Ebx
	case x86asm.ESP:
		v = r.Regs.Esp
	case x86asm.EBP:
		v = r.Regs.Ebp
	case x86asm.ESI:
		v = r.Regs.Esi
	case x86asm.EDI:
		v = r.Regs.Edi
	case x86asm.EIP:
		v = r.Regs.Eip
	case x86asm.CS:
		v = r.Regs.Xcs
	case x86asm.SS:
		v = r.Regs.Xss
	case x86asm.DS:
		v = r.Regs.Xds
	case x86asm.ES:
		v = r.Regs.Xes
	case x86asm.FS:
		v = r.Regs.Xfs
	case x86asm.GS:
		v = r.Regs.Xgs
	default:
		return 0, ErrUnknownRegister
	}
	return uint64(uint32(v)), nil
}

func (r *I386Registers) Slice() []Register {
	u := func(v int32) uint64 { return uint64(uint32(v)) }
	return []Register{
		{"eip", u(r.Regs.Eip)},
		{"esp", u(r.Regs.Esp)},
		{"eax", u(r.Regs.Eax)},
		{"ebx", u(r.Regs.Ebx)},
		{"ecx", u(r.Regs.Ecx)},
		{"edx", u(r.Regs.Edx)},
		{"edi", u(r.Regs.Edi)},
		{"esi", u(r.Regs.Esi)},
		{"ebp", u(r.Regs.Ebp)},
		{"orig_eax", u(r.Regs.Orig_eax)},
		{"eflags", u(r.Regs.Eflags)},
		{"cs", u(r.Regs.Xcs)},
		{"ss", u(r.Regs.Xss)},
		{"ds", u(r.Regs.Xds)},
		{"es", u(r.Regs.Xes)},
		{"fs", u(r.Regs.Xfs)},
		{"gs", u(r.Regs.Xgs)},
	}
}

func (r *I386Registers) Copy() Registers {
	rr := *r
	return &rr
}
