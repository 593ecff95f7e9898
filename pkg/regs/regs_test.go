package regs

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/arch/arm/armasm"
	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

func TestLayoutSizes(t *testing.T) {
	assert.Equal(t, uintptr(27*8), unsafe.Sizeof(AMD64PtraceRegs{}))
	assert.Equal(t, uintptr(17*4), unsafe.Sizeof(I386PtraceRegs{}))
	assert.Equal(t, uintptr(18*4), unsafe.Sizeof(ARMPtraceRegs{}))
	assert.Equal(t, uintptr(34*8), unsafe.Sizeof(ARM64PtraceRegs{}))
}

func TestPCSP(t *testing.T) {
	tests := []struct {
		name string
		regs Registers
		arch Arch
	}{
		{"amd64", &AMD64Registers{}, AMD64},
		{"386", &I386Registers{}, X86},
		{"arm", &ARMRegisters{}, ARM},
		{"arm64", &ARM64Registers{}, ARM64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.regs
			assert.Equal(t, tt.arch, r.Arch())
			r.SetPC(0x1234)
			r.SetSP(0x7ff0)
			assert.Equal(t, uint64(0x1234), r.PC())
			assert.Equal(t, uint64(0x7ff0), r.SP())
		})
	}
}

func TestFieldMapping(t *testing.T) {
	amd64 := &AMD64Registers{}
	amd64.SetPC(1)
	amd64.SetSP(2)
	assert.Equal(t, uint64(1), amd64.Regs.Rip)
	assert.Equal(t, uint64(2), amd64.Regs.Rsp)

	arm := &ARMRegisters{}
	arm.SetPC(0x100)
	arm.SetSP(0x200)
	arm.Regs.Uregs[14] = 0x300
	assert.Equal(t, uint32(0x100), arm.Regs.Uregs[15])
	assert.Equal(t, uint32(0x200), arm.Regs.Uregs[13])
	assert.Equal(t, uint64(0x300), arm.LR())

	arm64 := &ARM64Registers{}
	arm64.SetPC(0x400)
	arm64.SetSP(0x500)
	arm64.Regs.Regs[30] = 0x600
	arm64.Regs.Regs[29] = 0x700
	assert.Equal(t, uint64(0x400), arm64.Regs.Pc)
	assert.Equal(t, uint64(0x500), arm64.Regs.Sp)
	assert.Equal(t, uint64(0x600), arm64.LR())
	assert.Equal(t, uint64(0x700), arm64.FP())

	i386 := &I386Registers{}
	i386.SetPC(0xfffffff0)
	assert.Equal(t, uint64(0xfffffff0), i386.PC())
	assert.Equal(t, int32(-16), i386.Regs.Eip)
}

func TestGet(t *testing.T) {
	amd64 := &AMD64Registers{Regs: AMD64PtraceRegs{Rax: 7, R15: 9}}
	v, err := amd64.Get(int(x86asm.RAX))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)
	v, err = amd64.Get(int(x86asm.R15))
	require.NoError(t, err)
	assert.Equal(t, uint64(9), v)
	_, err = amd64.Get(int(x86asm.X0))
	assert.Equal(t, ErrUnknownRegister, err)

	arm64 := &ARM64Registers{}
	arm64.Regs.Regs[3] = 33
	v, err = arm64.Get(int(arm64asm.X3))
	require.NoError(t, err)
	assert.Equal(t, uint64(33), v)
	_, err = arm64.Get(int(arm64asm.W0))
	assert.Equal(t, ErrUnknownRegister, err)

	arm := &ARMRegisters{}
	arm.Regs.Uregs[2] = 22
	v, err = arm.Get(int(armasm.R2))
	require.NoError(t, err)
	assert.Equal(t, uint64(22), v)
}

func TestSnapshotDirty(t *testing.T) {
	s := NewSnapshot(&AMD64Registers{Regs: AMD64PtraceRegs{Rip: 0x10, Rsp: 0x20}})
	assert.False(t, s.Dirty())
	assert.Equal(t, uint64(0x10), s.PC())
	assert.Equal(t, uint64(0x20), s.SP())
	assert.False(t, s.Dirty(), "reads keep the snapshot clean")

	s.SetPC(0x11)
	assert.True(t, s.Dirty())
	s.Clean()
	assert.False(t, s.Dirty())

	s.SetSP(0x30)
	assert.True(t, s.Dirty())
	s.Clean()

	s.Mutate(func(r Registers) {
		r.(*AMD64Registers).Regs.Rax = 5
	})
	assert.True(t, s.Dirty())
	v, err := s.Get(int(x86asm.RAX))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), v)
}

func TestSnapshotRawIsCopy(t *testing.T) {
	s := NewSnapshot(&ARM64Registers{})
	raw := s.Raw()
	raw.SetPC(0x99)
	assert.Equal(t, uint64(0), s.PC())
	assert.False(t, s.Dirty())
}

func TestArchString(t *testing.T) {
	assert.Equal(t, "x86", X86.String())
	assert.Equal(t, "x86_64", AMD64.String())
	assert.Equal(t, "arm", ARM.String())
	assert.Equal(t, "arm64", ARM64.String())
	assert.Equal(t, "unknown", ArchUnknown.String())
}

func TestSlice(t *testing.T) {
	arm := (&ARMRegisters{}).Slice()
	assert.Len(t, arm, 18)
	assert.Equal(t, "pc", arm[15].Name)

	arm64 := (&ARM64Registers{}).Slice()
	assert.Len(t, arm64, 34)
	assert.Equal(t, "pstate", arm64[33].Name)
}
