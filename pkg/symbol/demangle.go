package symbol

import (
	"strings"

	"github.com/ianlancetaylor/demangle"
	"github.com/pkg/errors"
)

// DemangleFlags 控制符号名还原的详细程度
type DemangleFlags uint32

const (
	// OmitParams 不输出参数类型
	OmitParams DemangleFlags = 1 << iota
	// OmitReturnType 不输出返回值类型
	OmitReturnType
	// NameOnly 只保留限定名
	NameOnly

	// DefaultDemangleFlags 默认只保留名字
	DefaultDemangleFlags = NameOnly
)

// ParseDemangleFlags 解析配置项symbols.demangle
func ParseDemangleFlags(s string) (DemangleFlags, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name-only":
		return NameOnly, nil
	case "no-params":
		return OmitParams, nil
	case "no-return":
		return OmitReturnType, nil
	case "full":
		return 0, nil
	default:
		return 0, errors.Errorf("unknown demangle mode %q", s)
	}
}

func (f DemangleFlags) String() string {
	switch {
	case f&NameOnly != 0:
		return "name-only"
	case f&OmitParams != 0:
		return "no-params"
	case f&OmitReturnType != 0:
		return "no-return"
	default:
		return "full"
	}
}

// options demangle库没有单独去掉返回值的选项，返回值只在模板函数中输出，
// 且会随参数一起被NoParams去掉，所以OmitReturnType单独使用时不加选项。
func (f DemangleFlags) options() []demangle.Option {
	switch {
	case f&NameOnly != 0:
		return []demangle.Option{demangle.NoParams, demangle.NoTemplateParams, demangle.NoEnclosingParams}
	case f&OmitParams != 0:
		return []demangle.Option{demangle.NoParams}
	default:
		return nil
	}
}

// Demangle 还原C++/Rust符号名，name不是修饰名时返回false
func Demangle(name string, flags DemangleFlags) (string, bool) {
	out, err := demangle.ToString(name, flags.options()...)
	if err != nil {
		return "", false
	}
	return out, true
}

// DisplayName 能还原则返回还原后的名字，否则原样返回
func DisplayName(name string, flags DemangleFlags) string {
	if out, ok := Demangle(name, flags); ok {
		return out
	}
	return name
}
