package target

import (
	"iter"
	"os"
	"strconv"
	"strings"
)

// Threads 遍历/proc/pid/task下的线程ID
func (p *Process) Threads() iter.Seq[int] {
	return numericEntries(p.procPath("task"))
}

// FileDescriptors 遍历打开的文件描述符及其指向的目标，readlink失败的描述符被跳过
func (p *Process) FileDescriptors() iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for fd := range numericEntries(p.procPath("fd")) {
			target, err := os.Readlink(p.procPath("fd", strconv.Itoa(fd)))
			if err != nil {
				continue
			}
			if !yield(fd, target) {
				return
			}
		}
	}
}

// 文件描述符类型
const (
	FDSocket    = "socket"
	FDPipe      = "pipe"
	FDAnonInode = "anon_inode"
	FDFile      = "file"
	FDOther     = "other"
)

// FDKind 根据readlink的结果判断描述符类型
func FDKind(target string) string {
	switch {
	case strings.HasPrefix(target, "socket:"):
		return FDSocket
	case strings.HasPrefix(target, "pipe:"):
		return FDPipe
	case strings.HasPrefix(target, "anon_inode:"):
		return FDAnonInode
	case strings.HasPrefix(target, "/"):
		return FDFile
	default:
		return FDOther
	}
}
