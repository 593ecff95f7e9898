// Package elftest builds small ELF images in memory for tests.
//
// The generated images carry only section headers (.dynsym, .dynstr,
// .symtab, .strtab, .shstrtab), which is all debug/elf needs to parse
// symbol tables.
package elftest

import (
	"debug/elf"
	"encoding/binary"
)

// Symbol 一个待写入符号表的条目
type Symbol struct {
	Name    string
	Value   uint64
	Size    uint64
	Bind    elf.SymBind
	Type    elf.SymType
	Section elf.SectionIndex

	// InStrtab 名字只写入.strtab，.dynsym中的偏移在.dynstr里解析不到
	InStrtab bool
}

// Export 已定义的全局函数
func Export(name string, value uint64) Symbol {
	return Symbol{Name: name, Value: value, Size: 16, Bind: elf.STB_GLOBAL, Type: elf.STT_FUNC, Section: 1}
}

// Import 未定义的全局函数引用
func Import(name string) Symbol {
	return Symbol{Name: name, Bind: elf.STB_GLOBAL, Type: elf.STT_FUNC, Section: elf.SHN_UNDEF}
}

// Local 已定义的局部函数
func Local(name string, value uint64) Symbol {
	return Symbol{Name: name, Value: value, Size: 8, Bind: elf.STB_LOCAL, Type: elf.STT_FUNC, Section: 1}
}

// Image 描述要生成的ELF镜像
type Image struct {
	Class   elf.Class // 默认ELFCLASS64
	Machine elf.Machine
	Entry   uint64
	Dynamic []Symbol
	Static  []Symbol
}

const (
	shDynsym = iota + 1
	shDynstr
	shSymtab
	shStrtab
	shShstrtab
	shNum
)

// Bytes 生成小端序ELF镜像
func (img Image) Bytes() []byte {
	class := img.Class
	if class == elf.ELFCLASSNONE {
		class = elf.ELFCLASS64
	}
	machine := img.Machine
	if machine == elf.EM_NONE {
		machine = elf.EM_X86_64
	}
	is64 := class == elf.ELFCLASS64

	// string tables: .strtab is padded past the end of .dynstr so that
	// offsets of InStrtab names never resolve in .dynstr.
	dynstr := newStrtab(0)
	dynOffsets := make([]uint32, len(img.Dynamic))
	for i, s := range img.Dynamic {
		if !s.InStrtab {
			dynOffsets[i] = dynstr.add(s.Name)
		}
	}
	strtab := newStrtab(len(dynstr.buf))
	for i, s := range img.Dynamic {
		if s.InStrtab {
			dynOffsets[i] = strtab.add(s.Name)
		}
	}
	staticOffsets := make([]uint32, len(img.Static))
	for i, s := range img.Static {
		staticOffsets[i] = strtab.add(s.Name)
	}

	dynsym := encodeSyms(is64, img.Dynamic, dynOffsets)
	symtab := encodeSyms(is64, img.Static, staticOffsets)

	shstrtab := newStrtab(0)
	names := [shNum]uint32{
		shDynsym:   shstrtab.add(".dynsym"),
		shDynstr:   shstrtab.add(".dynstr"),
		shSymtab:   shstrtab.add(".symtab"),
		shStrtab:   shstrtab.add(".strtab"),
		shShstrtab: shstrtab.add(".shstrtab"),
	}

	ehsize, shentsize, phentsize, symsize := 52, 40, 32, 16
	if is64 {
		ehsize, shentsize, phentsize, symsize = 64, 64, 56, 24
	}

	type section struct {
		typ     elf.SectionType
		data    []byte
		link    uint32
		entsize int
		off     int
	}
	sections := [shNum]section{
		shDynsym:   {typ: elf.SHT_DYNSYM, data: dynsym, link: shDynstr, entsize: symsize},
		shDynstr:   {typ: elf.SHT_STRTAB, data: dynstr.buf},
		shSymtab:   {typ: elf.SHT_SYMTAB, data: symtab, link: shStrtab, entsize: symsize},
		shStrtab:   {typ: elf.SHT_STRTAB, data: strtab.buf},
		shShstrtab: {typ: elf.SHT_STRTAB, data: shstrtab.buf},
	}

	out := make([]byte, ehsize)
	for i := 1; i < shNum; i++ {
		out = pad(out, 8)
		sections[i].off = len(out)
		out = append(out, sections[i].data...)
	}
	out = pad(out, 8)
	shoff := len(out)

	bo := binary.LittleEndian
	for i := 0; i < shNum; i++ {
		sh := make([]byte, shentsize)
		s := sections[i]
		if i != 0 {
			if is64 {
				bo.PutUint32(sh[0:], names[i])
				bo.PutUint32(sh[4:], uint32(s.typ))
				bo.PutUint64(sh[24:], uint64(s.off))
				bo.PutUint64(sh[32:], uint64(len(s.data)))
				bo.PutUint32(sh[40:], s.link)
				bo.PutUint64(sh[48:], 1)
				bo.PutUint64(sh[56:], uint64(s.entsize))
			} else {
				bo.PutUint32(sh[0:], names[i])
				bo.PutUint32(sh[4:], uint32(s.typ))
				bo.PutUint32(sh[16:], uint32(s.off))
				bo.PutUint32(sh[20:], uint32(len(s.data)))
				bo.PutUint32(sh[24:], s.link)
				bo.PutUint32(sh[32:], 1)
				bo.PutUint32(sh[36:], uint32(s.entsize))
			}
		}
		out = append(out, sh...)
	}

	copy(out[0:], elf.ELFMAG)
	out[elf.EI_CLASS] = byte(class)
	out[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	out[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	bo.PutUint16(out[16:], uint16(elf.ET_DYN))
	bo.PutUint16(out[18:], uint16(machine))
	bo.PutUint32(out[20:], uint32(elf.EV_CURRENT))
	if is64 {
		bo.PutUint64(out[24:], img.Entry)
		bo.PutUint64(out[40:], uint64(shoff))
		bo.PutUint16(out[52:], uint16(ehsize))
		bo.PutUint16(out[54:], uint16(phentsize))
		bo.PutUint16(out[58:], uint16(shentsize))
		bo.PutUint16(out[60:], shNum)
		bo.PutUint16(out[62:], shShstrtab)
	} else {
		bo.PutUint32(out[24:], uint32(img.Entry))
		bo.PutUint32(out[32:], uint32(shoff))
		bo.PutUint16(out[40:], uint16(ehsize))
		bo.PutUint16(out[42:], uint16(phentsize))
		bo.PutUint16(out[46:], uint16(shentsize))
		bo.PutUint16(out[48:], shNum)
		bo.PutUint16(out[50:], shShstrtab)
	}
	return out
}

// encodeSyms 第0项固定为空符号
func encodeSyms(is64 bool, syms []Symbol, offsets []uint32) []byte {
	bo := binary.LittleEndian
	size := 16
	if is64 {
		size = 24
	}
	out := make([]byte, size*(len(syms)+1))
	for i, s := range syms {
		e := out[size*(i+1):]
		info := elf.ST_INFO(s.Bind, s.Type)
		if is64 {
			bo.PutUint32(e[0:], offsets[i])
			e[4] = info
			bo.PutUint16(e[6:], uint16(s.Section))
			bo.PutUint64(e[8:], s.Value)
			bo.PutUint64(e[16:], s.Size)
		} else {
			bo.PutUint32(e[0:], offsets[i])
			bo.PutUint32(e[4:], uint32(s.Value))
			bo.PutUint32(e[8:], uint32(s.Size))
			e[12] = info
			bo.PutUint16(e[14:], uint16(s.Section))
		}
	}
	return out
}

type strtabBuilder struct {
	buf []byte
}

// newStrtab 以NUL开头，并额外填充padding个NUL
func newStrtab(padding int) *strtabBuilder {
	return &strtabBuilder{buf: make([]byte, 1+padding)}
}

func (b *strtabBuilder) add(s string) uint32 {
	off := uint32(len(b.buf))
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, 0)
	return off
}

func pad(b []byte, align int) []byte {
	for len(b)%align != 0 {
		b = append(b, 0)
	}
	return b
}
