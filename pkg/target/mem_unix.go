//go:build unix

package target

import (
	"os"

	"golang.org/x/sys/unix"
)

// procMem 直接pread/pwrite文件描述符，offset不经过os.File的非负检查
type procMem struct {
	f *os.File
}

func openMemFile(path string) (memFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return procMem{f: f}, nil
}

func (m procMem) pread(buf []byte, addr uint64) (int, error) {
	n, err := unix.Pread(int(m.f.Fd()), buf, int64(addr))
	if n < 0 {
		n = 0
	}
	return n, err
}

func (m procMem) pwrite(buf []byte, addr uint64) (int, error) {
	n, err := unix.Pwrite(int(m.f.Fd()), buf, int64(addr))
	if n < 0 {
		n = 0
	}
	return n, err
}

func (m procMem) Close() error {
	return m.f.Close()
}
