// Package module 将进程的内存映射归并为模块，并按需解析模块的符号
package module

import (
	"iter"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/hitzhangjie/procdbg/pkg/logflags"
	"github.com/hitzhangjie/procdbg/pkg/symbol"
	"github.com/hitzhangjie/procdbg/pkg/target"
)

// vdsoPath 内核映射的vdso没有对应文件，需要从进程内存中读取
const vdsoPath = "[vdso]"

const deletedSuffix = " (deleted)"

// Module 一个映射到进程地址空间的镜像
type Module struct {
	Base  uint64 `yaml:"base"`
	Size  uint64 `yaml:"size"`
	Usage string `yaml:"usage"`
	Name  string `yaml:"name"`
	Path  string `yaml:"path"`

	end     uint64
	catalog *Catalog
	symbols atomic.Pointer[SymbolsData]
}

// Coalesce 按文件顺序归并内存区间
//
// 路径相同且地址递增的连续区间归为一个模块，Base取第一个区间的起始地址，Size为
// 各区间长度之和，Usage取第一个区间的权限。匿名区间和路径变化都会结束当前模块，
// [heap]、[stack]等伪路径不算模块，[vdso]除外。
func Coalesce(seq iter.Seq[target.MemoryRegion]) []*Module {
	var (
		mods []*Module
		cur  *Module
	)
	for r := range seq {
		if r.Anonymous() || (r.Pseudo() && r.Path != vdsoPath) {
			cur = nil
			continue
		}
		if cur != nil && cur.Path == r.Path && r.Start >= cur.end {
			cur.Size += r.Size()
			cur.end = r.End
			continue
		}
		cur = &Module{
			Base:  r.Start,
			Size:  r.Size(),
			Usage: r.Perms,
			Name:  filepath.Base(strings.TrimSuffix(r.Path, deletedSuffix)),
			Path:  r.Path,
			end:   r.End,
		}
		mods = append(mods, cur)
	}
	return mods
}

// FindByName 返回第一个名字为name的模块
func FindByName(mods []*Module, name string) (*Module, bool) {
	for _, m := range mods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Symbols 返回模块的符号，第一次调用时解析
//
// 解析结果构造完成后才通过CAS发布，并发调用者要么看到nil并各自解析，要么看到
// 完整的结果。解析失败发布的是Unloaded，之后不会重试，除非调用Reload。
func (m *Module) Symbols() *SymbolsData {
	if d := m.symbols.Load(); d != nil {
		return d
	}
	d := m.load()
	if m.symbols.CompareAndSwap(nil, d) {
		return d
	}
	return m.symbols.Load()
}

// Status 符号加载状态，尚未访问过符号时为Unloaded
func (m *Module) Status() Status {
	if d := m.symbols.Load(); d != nil {
		return d.Status
	}
	return Unloaded
}

// Reload 重新解析符号并整体替换
func (m *Module) Reload() *SymbolsData {
	if m.catalog != nil {
		m.catalog.cache.remove(m.Path)
	}
	d := m.load()
	m.symbols.Store(d)
	return d
}

func (m *Module) logger() *logrus.Entry {
	if m.catalog == nil {
		return logflags.Nop()
	}
	return m.catalog.log
}

func (m *Module) demangleFlags() symbol.DemangleFlags {
	if m.catalog == nil {
		return symbol.DefaultDemangleFlags
	}
	return m.catalog.sess.Config.DemangleFlags
}

func (m *Module) load() *SymbolsData {
	log := m.logger().WithField("module", m.Name)

	if m.Path == vdsoPath {
		return m.loadFromMemory(log)
	}

	key, cacheable := statImage(m.Path)
	cacheable = cacheable && m.catalog != nil
	if cacheable {
		if d, ok := m.catalog.cache.get(key); ok {
			log.Debug("symbols from cache")
			return d
		}
	}
	img, err := symbol.Open(m.Path)
	if err != nil {
		log.Debugf("parse image: %v", err)
		return unloaded
	}
	d := newSymbolsData(img, m.demangleFlags())
	if cacheable {
		m.catalog.cache.add(key, d)
	}
	log.Debugf("loaded %d exports, %d static symbols", len(d.Exports), len(d.Static))
	return d
}

func (m *Module) loadFromMemory(log *logrus.Entry) *SymbolsData {
	if m.catalog == nil || m.catalog.proc == nil {
		return unloaded
	}
	buf, ok := m.catalog.proc.Read(m.Base, make([]byte, m.Size))
	if !ok {
		log.Debug("read vdso failed")
		return unloaded
	}
	img, err := symbol.Parse(buf)
	if err != nil {
		log.Debugf("parse vdso: %v", err)
		return unloaded
	}
	return newSymbolsData(img, m.demangleFlags())
}
