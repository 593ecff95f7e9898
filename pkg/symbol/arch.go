package symbol

import "debug/elf"

// ArchitectureName 将ELF机器类型映射为架构名，不支持的类型返回false
func ArchitectureName(m elf.Machine) (string, bool) {
	switch m {
	case elf.EM_386, elf.EM_860, elf.EM_960:
		return "x86", true
	case elf.EM_X86_64:
		return "x86_64", true
	case elf.EM_MIPS:
		return "mips", true
	case elf.EM_ARM:
		return "arm", true
	case elf.EM_AARCH64:
		return "arm64", true
	default:
		return "", false
	}
}
