package target

import (
	"bufio"
	"bytes"
	"iter"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MemoryRegion /proc/pid/maps中的一行
type MemoryRegion struct {
	Start  uint64 `yaml:"start"`
	End    uint64 `yaml:"end"`
	Perms  string `yaml:"perms"`
	Offset uint64 `yaml:"offset"`
	Dev    string `yaml:"dev"`
	Inode  uint64 `yaml:"inode"`
	Path   string `yaml:"path,omitempty"`
}

// Size 区间长度
func (r MemoryRegion) Size() uint64 {
	return r.End - r.Start
}

func (r MemoryRegion) perm(i int, c byte) bool {
	return len(r.Perms) > i && r.Perms[i] == c
}

func (r MemoryRegion) Readable() bool   { return r.perm(0, 'r') }
func (r MemoryRegion) Writable() bool   { return r.perm(1, 'w') }
func (r MemoryRegion) Executable() bool { return r.perm(2, 'x') }
func (r MemoryRegion) Private() bool    { return r.perm(3, 'p') }

// Anonymous 没有映射文件
func (r MemoryRegion) Anonymous() bool {
	return r.Path == ""
}

// Pseudo [heap]、[stack]、[vdso]等内核命名的区间
func (r MemoryRegion) Pseudo() bool {
	return strings.HasPrefix(r.Path, "[") && strings.HasSuffix(r.Path, "]")
}

// ParseMapsLine 解析maps中的一行，格式：
//
//	address           perms offset  dev   inode       pathname
//	00400000-00452000 r-xp 00000000 08:02 173521      /usr/bin/dbus-daemon
func ParseMapsLine(line string) (MemoryRegion, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return MemoryRegion{}, false
	}

	var (
		r   MemoryRegion
		err error
	)
	start, end, ok := strings.Cut(fields[0], "-")
	if !ok {
		return MemoryRegion{}, false
	}
	if r.Start, err = strconv.ParseUint(start, 16, 64); err != nil {
		return MemoryRegion{}, false
	}
	if r.End, err = strconv.ParseUint(end, 16, 64); err != nil || r.End < r.Start {
		return MemoryRegion{}, false
	}
	r.Perms = fields[1]
	if r.Offset, err = strconv.ParseUint(fields[2], 16, 64); err != nil {
		return MemoryRegion{}, false
	}
	r.Dev = fields[3]
	if r.Inode, err = strconv.ParseUint(fields[4], 10, 64); err != nil {
		return MemoryRegion{}, false
	}
	if len(fields) > 5 {
		r.Path = strings.Join(fields[5:], " ")
	}
	return r, true
}

// MemoryRegions 遍历进程的内存映射
//
// maps文件在调用时一次性读取，读取失败返回错误；返回的序列按行解析，可以重复
// 遍历，无法解析的行会被跳过。
func (p *Process) MemoryRegions() (iter.Seq[MemoryRegion], error) {
	dat, err := os.ReadFile(p.procPath("maps"))
	if err != nil {
		return nil, errors.Wrapf(err, "read maps of process %d", p.pid)
	}
	return regionsFrom(dat), nil
}

func regionsFrom(dat []byte) iter.Seq[MemoryRegion] {
	return func(yield func(MemoryRegion) bool) {
		sc := bufio.NewScanner(bytes.NewReader(dat))
		sc.Buffer(make([]byte, 0, 4096), 1<<20)
		for sc.Scan() {
			r, ok := ParseMapsLine(sc.Text())
			if !ok {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}
