// Package logflags 按层(layer)构造logrus日志
//
// 和全局开关不同，这里的配置保存在Flags值里，由session持有并传给各个组件。
package logflags

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// 可以单独开启的日志层
const (
	LayerSymbol = "symbol"
	LayerTarget = "target"
	LayerModule = "module"
	LayerTrace  = "trace"
)

var errLayersWithoutLog = errors.New("--log-output specified without --log")

// Flags 日志配置
type Flags struct {
	out    io.Writer
	color  bool
	level  logrus.Level
	layers map[string]bool
}

// Setup 根据命令行/配置构造日志配置
//
// layers为逗号分隔的层名，为空时开启全部层；enabled为false时全部关闭。
func Setup(enabled bool, layers string, level string, out io.Writer) (*Flags, error) {
	f := &Flags{
		out:    out,
		level:  logrus.InfoLevel,
		layers: map[string]bool{},
	}
	if !enabled {
		if layers != "" {
			return nil, errLayersWithoutLog
		}
		return f, nil
	}

	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, errors.Wrap(err, "parse log level")
		}
		f.level = lvl
	}

	if layers == "" {
		layers = strings.Join([]string{LayerSymbol, LayerTarget, LayerModule, LayerTrace}, ",")
	}
	for _, l := range strings.Split(layers, ",") {
		switch l = strings.TrimSpace(l); l {
		case LayerSymbol, LayerTarget, LayerModule, LayerTrace:
			f.layers[l] = true
		case "":
		default:
			return nil, errors.Errorf("unknown log layer %q", l)
		}
	}

	if f.out == nil {
		f.out = os.Stderr
	}
	if file, ok := f.out.(*os.File); ok && isatty.IsTerminal(file.Fd()) {
		f.color = true
		f.out = colorable.NewColorable(file)
	}
	return f, nil
}

// Enabled 某一层是否开启
func (f *Flags) Enabled(layer string) bool {
	return f != nil && f.layers[layer]
}

func (f *Flags) makeLogger(layer string) *logrus.Entry {
	if !f.Enabled(layer) {
		return Nop()
	}
	logger := logrus.New()
	logger.Out = f.out
	logger.Level = f.level
	logger.Formatter = &logrus.TextFormatter{
		ForceColors:      f.color,
		DisableColors:    !f.color,
		FullTimestamp:    true,
		QuoteEmptyFields: true,
	}
	return logger.WithFields(logrus.Fields{"layer": layer})
}

// SymbolLogger 镜像解析
func (f *Flags) SymbolLogger() *logrus.Entry {
	return f.makeLogger(LayerSymbol)
}

// TargetLogger procfs/ptrace
func (f *Flags) TargetLogger() *logrus.Entry {
	return f.makeLogger(LayerTarget)
}

// ModuleLogger 模块枚举与符号缓存
func (f *Flags) ModuleLogger() *logrus.Entry {
	return f.makeLogger(LayerModule)
}

// TraceLogger 调试事件循环
func (f *Flags) TraceLogger() *logrus.Entry {
	return f.makeLogger(LayerTrace)
}

// Nop 丢弃所有输出的logger
func Nop() *logrus.Entry {
	logger := logrus.New()
	logger.Out = io.Discard
	logger.Level = logrus.PanicLevel
	return logrus.NewEntry(logger)
}
