package module

import (
	"sort"

	"github.com/derekparker/trie"

	"github.com/hitzhangjie/procdbg/pkg/symbol"
)

// Status 符号加载状态，只有Unloaded和Loaded两种
type Status int

const (
	Unloaded Status = iota
	Loaded
)

func (s Status) String() string {
	if s == Loaded {
		return "loaded"
	}
	return "unloaded"
}

// Symbol 带显示名的镜像符号
type Symbol struct {
	symbol.ImageSymbol
	Display string
}

// SymbolsData 一个模块解析后的符号，发布之后只读
type SymbolsData struct {
	Status  Status
	Arch    string
	Entry   uint64
	Exports []Symbol
	Dynamic []Symbol
	Static  []Symbol

	// exports按名字索引，值为Exports中第一个同名符号的下标
	index *trie.Trie
}

var unloaded = &SymbolsData{Status: Unloaded}

func newSymbolsData(img *symbol.Image, flags symbol.DemangleFlags) *SymbolsData {
	d := &SymbolsData{
		Status: Loaded,
		Entry:  img.Entry(),
		index:  trie.New(),
	}
	d.Arch, _ = img.Arch()

	for s := range img.DynamicSymbols() {
		sym := Symbol{ImageSymbol: s, Display: symbol.DisplayName(s.Name, flags)}
		d.Dynamic = append(d.Dynamic, sym)
		if !s.IsExport() {
			continue
		}
		d.Exports = append(d.Exports, sym)
		if _, ok := d.index.Find(s.Name); !ok {
			d.index.Add(s.Name, len(d.Exports)-1)
		}
	}
	for s := range img.AllSymbols() {
		d.Static = append(d.Static, Symbol{ImageSymbol: s, Display: symbol.DisplayName(s.Name, flags)})
	}
	return d
}

// FindExport 按名字查找导出符号，同名时第一个生效
func (d *SymbolsData) FindExport(name string) (Symbol, bool) {
	for _, s := range d.Exports {
		if s.Name == name {
			return s, true
		}
	}
	return Symbol{}, false
}

// ExportsWithPrefix 名字以prefix开头的导出符号，按名字排序，同名只取第一个
func (d *SymbolsData) ExportsWithPrefix(prefix string) []Symbol {
	if d.index == nil {
		return nil
	}
	names := d.index.PrefixSearch(prefix)
	sort.Strings(names)

	syms := make([]Symbol, 0, len(names))
	for _, name := range names {
		node, ok := d.index.Find(name)
		if !ok {
			continue
		}
		syms = append(syms, d.Exports[node.Meta().(int)])
	}
	return syms
}
