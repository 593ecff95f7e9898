package regs

// Native 当前构建的架构
const Native = ARM64
