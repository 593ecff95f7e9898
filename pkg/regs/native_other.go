//go:build !386 && !amd64 && !arm && !arm64

package regs

// Native 当前构建的架构
const Native = ArchUnknown
