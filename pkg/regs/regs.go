// Package regs 提供与内核寄存器传输ABI布局一致的寄存器快照
//
// 每个架构一个类型，字段布局与PTRACE_GETREGS/PTRACE_GETREGSET(NT_PRSTATUS)
// 返回的结构完全一致，统一通过Registers接口访问PC/SP。Snapshot在此基础上
// 记录是否被修改过，写回内核由持有它的trace循环负责。
package regs

import (
	"github.com/pkg/errors"
)

// ErrUnknownRegister Get的参数不是该架构的通用寄存器
var ErrUnknownRegister = errors.New("unknown register")

// Arch 支持的指令集架构
type Arch uint8

const (
	ArchUnknown Arch = iota
	X86
	AMD64
	ARM
	ARM64
)

// String 与symbol.ArchitectureName返回的名字一致
func (a Arch) String() string {
	switch a {
	case X86:
		return "x86"
	case AMD64:
		return "x86_64"
	case ARM:
		return "arm"
	case ARM64:
		return "arm64"
	default:
		return "unknown"
	}
}

// Register 寄存器名和值，用于展示
type Register struct {
	Name  string `yaml:"name"`
	Value uint64 `yaml:"value"`
}

// Registers 各架构寄存器快照的统一访问接口
type Registers interface {
	Arch() Arch
	PC() uint64
	SetPC(uint64)
	SP() uint64
	SetSP(uint64)
	// Get 读取第n个通用寄存器，n按golang.org/x/arch中对应架构的寄存器编号
	Get(n int) (uint64, error)
	Slice() []Register
	Copy() Registers
}

// Snapshot 某个线程停止时的寄存器快照
//
// 所有修改都会设置dirty，Snapshot本身不做任何I/O。
type Snapshot struct {
	regs  Registers
	dirty bool
}

// NewSnapshot 创建一个干净的快照
func NewSnapshot(r Registers) *Snapshot {
	return &Snapshot{regs: r}
}

func (s *Snapshot) Arch() Arch {
	return s.regs.Arch()
}

func (s *Snapshot) PC() uint64 {
	return s.regs.PC()
}

func (s *Snapshot) SetPC(v uint64) {
	s.regs.SetPC(v)
	s.dirty = true
}

func (s *Snapshot) SP() uint64 {
	return s.regs.SP()
}

func (s *Snapshot) SetSP(v uint64) {
	s.regs.SetSP(v)
	s.dirty = true
}

func (s *Snapshot) Get(n int) (uint64, error) {
	return s.regs.Get(n)
}

func (s *Snapshot) Slice() []Register {
	return s.regs.Slice()
}

// Mutate 修改原始寄存器布局，例如设置某个通用寄存器
func (s *Snapshot) Mutate(fn func(Registers)) {
	fn(s.regs)
	s.dirty = true
}

// Raw 返回寄存器的副本，对副本的修改不会影响快照
func (s *Snapshot) Raw() Registers {
	return s.regs.Copy()
}

// Dirty 上次写回之后是否被修改过
func (s *Snapshot) Dirty() bool {
	return s.dirty
}

// Clean 写回内核之后调用
func (s *Snapshot) Clean() {
	s.dirty = false
}
