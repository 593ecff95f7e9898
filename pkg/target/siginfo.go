package target

import (
	"encoding/binary"
	"fmt"
	"syscall"
	"unsafe"
)

// siginfoSize sizeof(siginfo_t)
const siginfoSize = 128

// SigInfo PTRACE_GETSIGINFO返回的信号信息
//
// Addr只对SIGSEGV、SIGBUS、SIGILL、SIGFPE、SIGTRAP有意义。
type SigInfo struct {
	Signo int32
	Errno int32
	Code  int32
	Addr  uint64
}

// Signal 信号
func (si SigInfo) Signal() syscall.Signal {
	return syscall.Signal(si.Signo)
}

// Fault 是否为访存/指令类异常
func (si SigInfo) Fault() bool {
	switch si.Signal() {
	case syscall.SIGSEGV, syscall.SIGBUS, syscall.SIGILL, syscall.SIGFPE, syscall.SIGTRAP:
		return true
	}
	return false
}

func (si SigInfo) String() string {
	if si.Fault() {
		return fmt.Sprintf("%v (code %d) at %#x", si.Signal(), si.Code, si.Addr)
	}
	return fmt.Sprintf("%v (code %d)", si.Signal(), si.Code)
}

// decodeSigInfo 按本机字节序解析siginfo_t
//
// si_signo、si_errno、si_code之后是union，si_addr位于union起始处，64位平台上
// union按8字节对齐。
func decodeSigInfo(raw []byte) SigInfo {
	bo := binary.NativeEndian
	si := SigInfo{
		Signo: int32(bo.Uint32(raw[0:])),
		Errno: int32(bo.Uint32(raw[4:])),
		Code:  int32(bo.Uint32(raw[8:])),
	}
	if unsafe.Sizeof(uintptr(0)) == 8 {
		si.Addr = bo.Uint64(raw[16:])
	} else {
		si.Addr = uint64(bo.Uint32(raw[12:]))
	}
	return si
}
