package target

import (
	"io"
)

// memFile /proc/pid/mem的读写句柄
//
// addr按无符号数传给内核，高于2^63的地址同样可以访问。
type memFile interface {
	pread(buf []byte, addr uint64) (int, error)
	pwrite(buf []byte, addr uint64) (int, error)
	io.Closer
}

// memory 返回内存读写句柄，第一次调用时打开
//
// 读锁检查是否已打开，未打开时在写锁内再检查一次后打开，保证并发首次调用时只
// 打开一次。打开失败不缓存，下次调用会重试；Close之后不再打开。
func (p *Process) memory() (memFile, bool) {
	p.memMu.RLock()
	f, closed := p.mem, p.closed
	p.memMu.RUnlock()
	if closed {
		return nil, false
	}
	if f != nil {
		return f, true
	}

	p.memMu.Lock()
	defer p.memMu.Unlock()
	if p.closed {
		return nil, false
	}
	if p.mem != nil {
		return p.mem, true
	}
	f, err := p.openMem(p.procPath("mem"))
	if err != nil {
		p.log.Debugf("open mem: %v", err)
		return nil, false
	}
	p.mem = f
	return f, true
}

// Read 从地址addr读取数据到buf，返回实际读取到的buf前缀
//
// 读取0字节视为失败，此时无法区分地址边界和真正的错误。
func (p *Process) Read(addr uint64, buf []byte) ([]byte, bool) {
	f, ok := p.memory()
	if !ok {
		return nil, false
	}
	n, err := f.pread(buf, addr)
	if n <= 0 {
		p.log.Debugf("read %#x: %v", addr, err)
		return nil, false
	}
	return buf[:n], true
}

// Write 将buf写入地址addr，返回写入的字节数
func (p *Process) Write(addr uint64, buf []byte) (int, bool) {
	f, ok := p.memory()
	if !ok {
		return 0, false
	}
	n, err := f.pwrite(buf, addr)
	if err != nil && n <= 0 {
		p.log.Debugf("write %#x: %v", addr, err)
		return 0, false
	}
	return n, true
}
