package symbol

import (
	"debug/elf"
	"iter"
)

// symTypeGNUIFunc STT_GNU_IFUNC, debug/elf没有定义这个常量
const symTypeGNUIFunc elf.SymType = 10

// ImageSymbol 镜像符号表中的一个条目
type ImageSymbol struct {
	Name       string
	Value      uint64
	Size       uint64
	Section    elf.SectionIndex
	Bind       elf.SymBind
	Kind       elf.SymType
	Other      byte
	NameOffset uint32
}

func newImageSymbol(raw rawSym, name string) ImageSymbol {
	return ImageSymbol{
		Name:       name,
		Value:      raw.Value,
		Size:       raw.Size,
		Section:    elf.SectionIndex(raw.Shndx),
		Bind:       elf.ST_BIND(raw.Info),
		Kind:       elf.ST_TYPE(raw.Info),
		Other:      raw.Other,
		NameOffset: raw.NameOffset,
	}
}

// IsImport 是否为从其他镜像导入的符号
//
// symbolsFrom会过滤掉value为0的条目，所以通过枚举得到的符号这里总是false。
func (s ImageSymbol) IsImport() bool {
	return s.Section == elf.SHN_UNDEF &&
		s.Value == 0 &&
		s.NameOffset != 0 &&
		linkable(s.Bind, s.Kind)
}

// IsExport 是否为导出给其他镜像使用的符号
func (s ImageSymbol) IsExport() bool {
	return s.Section != elf.SHN_UNDEF &&
		s.Value != 0 &&
		linkable(s.Bind, s.Kind)
}

func linkable(bind elf.SymBind, kind elf.SymType) bool {
	if bind != elf.STB_GLOBAL && bind != elf.STB_WEAK {
		return false
	}
	return kind == elf.STT_FUNC || kind == symTypeGNUIFunc || kind == elf.STT_OBJECT
}

// symbolsFrom 按顺序解析table中的条目，名字依次在tabs中查找，第一个能解析的生效
//
// value为0的条目在分类之前就被跳过。返回的序列可以重复遍历。
func symbolsFrom(table []rawSym, tabs ...strtab) iter.Seq[ImageSymbol] {
	return func(yield func(ImageSymbol) bool) {
		for _, raw := range table {
			if raw.Value == 0 {
				continue
			}
			name, ok := resolveName(raw.NameOffset, tabs)
			if !ok {
				continue
			}
			if !yield(newImageSymbol(raw, name)) {
				return
			}
		}
	}
}

func resolveName(off uint32, tabs []strtab) (string, bool) {
	for _, t := range tabs {
		if name, ok := t.lookup(off); ok {
			return name, true
		}
	}
	return "", false
}

// DynamicSymbols 动态符号表，名字先查.dynstr，失败再查.strtab
func (img *Image) DynamicSymbols() iter.Seq[ImageSymbol] {
	return symbolsFrom(img.dynsym, img.dynstr, img.strtab)
}

// Exports 动态符号中的导出符号
func (img *Image) Exports() iter.Seq[ImageSymbol] {
	return func(yield func(ImageSymbol) bool) {
		for s := range img.DynamicSymbols() {
			if s.IsExport() && !yield(s) {
				return
			}
		}
	}
}

// AllSymbols 静态符号表.symtab，只在.strtab中解析名字
func (img *Image) AllSymbols() iter.Seq[ImageSymbol] {
	return symbolsFrom(img.symtab, img.strtab)
}

// FindExport 查找导出符号，同名时第一个生效
func (img *Image) FindExport(name string) (ImageSymbol, bool) {
	for s := range img.Exports() {
		if s.Name == name {
			return s, true
		}
	}
	return ImageSymbol{}, false
}
