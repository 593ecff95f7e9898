package target

import (
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hitzhangjie/procdbg/pkg/logflags"
)

var (
	ErrUnsupported = errors.New("not supported on this platform")
	ErrNotStopped  = errors.New("thread is not stopped")
)

// DefaultRoot procfs挂载点
const DefaultRoot = "/proc"

// FS 某个procfs挂载点上的进程视图
type FS struct {
	Root string
	Log  *logrus.Entry
}

// NewFS root为空时使用/proc
func NewFS(root string, log *logrus.Entry) FS {
	if root == "" {
		root = DefaultRoot
	}
	return FS{Root: root, Log: log}
}

var defaultFS = NewFS(DefaultRoot, nil)

func (fs FS) logger() *logrus.Entry {
	if fs.Log == nil {
		return logflags.Nop()
	}
	return fs.Log
}

// Process 被调试进程
//
// 内存读写句柄在第一次使用时打开，之后一直复用；Process不持有任何ptrace状态，
// 丢弃它不会对目标进程产生影响。
type Process struct {
	pid  int
	root string
	log  *logrus.Entry

	memMu   sync.RWMutex
	mem     memFile
	closed  bool
	openMem func(path string) (memFile, error)

	tracer *ptracer
}

func (fs FS) newProcess(pid int) *Process {
	root := fs.Root
	if root == "" {
		root = DefaultRoot
	}
	return &Process{
		pid:     pid,
		root:    root,
		log:     fs.logger().WithField("pid", pid),
		openMem: openMemFile,
		tracer:  newPtracer(),
	}
}

// FromPid 进程存在时返回对应的Process
//
// 这里只检查<root>/<pid>/stat是否存在，返回之后进程仍可能退出，后续的读写需要
// 容忍失败。
func (fs FS) FromPid(pid int) (*Process, bool) {
	if pid <= 0 {
		return nil, false
	}
	if _, err := os.Stat(filepath.Join(fs.Root, strconv.Itoa(pid), "stat")); err != nil {
		return nil, false
	}
	return fs.newProcess(pid), true
}

// Pids 遍历procfs中所有数字目录，顺序为目录读取顺序，不保证有序
func (fs FS) Pids() iter.Seq[int] {
	return func(yield func(int) bool) {
		for pid := range numericEntries(fs.Root) {
			if pid == 0 {
				continue
			}
			if !yield(pid) {
				return
			}
		}
	}
}

// FromName 返回第一个comm与name完全相同的进程
//
// "第一个"取决于Pids的遍历顺序，多个同名进程时结果不确定。
func (fs FS) FromName(name string) (*Process, bool) {
	for pid := range fs.Pids() {
		p := fs.newProcess(pid)
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// FromArgv0 返回第一个argv[0]与argv0完全相同的进程，顺序同FromName
func (fs FS) FromArgv0(argv0 string) (*Process, bool) {
	for pid := range fs.Pids() {
		p := fs.newProcess(pid)
		if args := p.CommandLine(); len(args) > 0 && args[0] == argv0 {
			return p, true
		}
	}
	return nil, false
}

// Current 当前进程
func (fs FS) Current() *Process {
	return fs.newProcess(os.Getpid())
}

// FromPid 见FS.FromPid
func FromPid(pid int) (*Process, bool) { return defaultFS.FromPid(pid) }

// FromName 见FS.FromName
func FromName(name string) (*Process, bool) { return defaultFS.FromName(name) }

// FromArgv0 见FS.FromArgv0
func FromArgv0(argv0 string) (*Process, bool) { return defaultFS.FromArgv0(argv0) }

// EnumeratePids 见FS.Pids
func EnumeratePids() iter.Seq[int] { return defaultFS.Pids() }

// Current 见FS.Current
func Current() *Process { return defaultFS.Current() }

// Pid 进程ID
func (p *Process) Pid() int {
	return p.pid
}

func (p *Process) procPath(name ...string) string {
	return filepath.Join(append([]string{p.root, strconv.Itoa(p.pid)}, name...)...)
}

// Close 关闭内存读写句柄并停止ptrace executor
//
// Close之后内存读写和ptrace请求都返回失败，需要重新创建Process。
func (p *Process) Close() error {
	p.memMu.Lock()
	defer p.memMu.Unlock()
	p.closed = true
	p.tracer.stop()
	if p.mem == nil {
		return nil
	}
	err := p.mem.Close()
	p.mem = nil
	return err
}

// numericEntries 按目录读取顺序遍历dir下名字为非负整数的条目，读取失败时结束
func numericEntries(dir string) iter.Seq[int] {
	return func(yield func(int) bool) {
		f, err := os.Open(dir)
		if err != nil {
			return
		}
		defer f.Close()

		for {
			ents, err := f.ReadDir(64)
			for _, ent := range ents {
				n, err := strconv.Atoi(ent.Name())
				if err != nil || n < 0 {
					continue
				}
				if !yield(n) {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}
}
