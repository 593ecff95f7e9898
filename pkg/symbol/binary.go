package symbol

import (
	"bytes"
	"debug/elf"
	"os"

	"github.com/pkg/errors"
)

var (
	ErrNotImage  = errors.New("not an ELF image")
	ErrMalformed = errors.New("malformed ELF image")
)

// rawSym 符号表原始条目，保留了st_name偏移
//
// elf.File.Symbols()会丢掉st_name，也无法在.dynstr解析失败时回退到.strtab，
// 所以这里直接按ELF32/ELF64的布局解码符号表section。
type rawSym struct {
	NameOffset uint32
	Info       byte
	Other      byte
	Shndx      uint16
	Value      uint64
	Size       uint64
}

// Image 解析后的ELF镜像，构造后只读
type Image struct {
	file *elf.File

	dynsym []rawSym
	symtab []rawSym
	dynstr strtab
	strtab strtab
}

// Open 读取并解析文件path
func Open(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read image %s", path)
	}
	img, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse image %s", path)
	}
	return img, nil
}

// Parse 解析内存中的ELF镜像，data在Image的生命周期内不能被修改
func Parse(data []byte) (*Image, error) {
	if len(data) < len(elf.ELFMAG) || string(data[:len(elf.ELFMAG)]) != elf.ELFMAG {
		return nil, ErrNotImage
	}
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}

	img := &Image{file: f}
	if img.dynsym, img.dynstr, err = readSymbolTable(f, elf.SHT_DYNSYM); err != nil {
		return nil, err
	}
	if img.symtab, img.strtab, err = readSymbolTable(f, elf.SHT_SYMTAB); err != nil {
		return nil, err
	}
	// stripped images may keep .strtab without .symtab
	if img.strtab == nil {
		if sec := f.Section(".strtab"); sec != nil && sec.Type == elf.SHT_STRTAB {
			if data, err := sec.Data(); err == nil {
				img.strtab = data
			}
		}
	}
	return img, nil
}

// File 底层的debug/elf文件
func (img *Image) File() *elf.File {
	return img.file
}

// Entry 入口地址
func (img *Image) Entry() uint64 {
	return img.file.Entry
}

// Machine ELF头中的机器类型
func (img *Image) Machine() elf.Machine {
	return img.file.Machine
}

// Arch 镜像的架构名，未知架构返回false
func (img *Image) Arch() (string, bool) {
	return ArchitectureName(img.file.Machine)
}

// readSymbolTable 读取第一个typ类型的符号表以及它sh_link指向的字符串表
func readSymbolTable(f *elf.File, typ elf.SectionType) ([]rawSym, strtab, error) {
	sec := f.SectionByType(typ)
	if sec == nil {
		return nil, nil, nil
	}
	data, err := sec.Data()
	if err != nil {
		return nil, nil, errors.Wrapf(ErrMalformed, "read %s: %v", sec.Name, err)
	}

	var names strtab
	if int(sec.Link) > 0 && int(sec.Link) < len(f.Sections) {
		if names, err = f.Sections[sec.Link].Data(); err != nil {
			return nil, nil, errors.Wrapf(ErrMalformed, "read %s: %v", f.Sections[sec.Link].Name, err)
		}
	}

	bo := f.ByteOrder
	var syms []rawSym
	switch f.Class {
	case elf.ELFCLASS64:
		for b := data; len(b) >= elf.Sym64Size; b = b[elf.Sym64Size:] {
			syms = append(syms, rawSym{
				NameOffset: bo.Uint32(b[0:]),
				Info:       b[4],
				Other:      b[5],
				Shndx:      bo.Uint16(b[6:]),
				Value:      bo.Uint64(b[8:]),
				Size:       bo.Uint64(b[16:]),
			})
		}
	case elf.ELFCLASS32:
		for b := data; len(b) >= elf.Sym32Size; b = b[elf.Sym32Size:] {
			syms = append(syms, rawSym{
				NameOffset: bo.Uint32(b[0:]),
				Value:      uint64(bo.Uint32(b[4:])),
				Size:       uint64(bo.Uint32(b[8:])),
				Info:       b[12],
				Other:      b[13],
				Shndx:      bo.Uint16(b[14:]),
			})
		}
	default:
		return nil, nil, errors.Wrapf(ErrMalformed, "unknown class %v", f.Class)
	}
	return syms, names, nil
}

// strtab ELF字符串表
type strtab []byte

// lookup 偏移越界时返回false
func (t strtab) lookup(off uint32) (string, bool) {
	if uint64(off) >= uint64(len(t)) {
		return "", false
	}
	s := t[off:]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return string(s), true
}
