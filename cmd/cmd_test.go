package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitzhangjie/procdbg/internal/elftest"
)

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run 执行一次命令行，返回标准输出
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	cfg := filepath.Join(t.TempDir(), "procdbg.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("log:\n  enabled: false\n"), 0o644))

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func fakeProcRoot(t *testing.T, pid int, comm string, maps string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, strconv.Itoa(pid))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "task", strconv.Itoa(pid)), 0o755))
	files := map[string]string{
		"stat":    fmt.Sprintf("%d (%s) S 1", pid, comm),
		"comm":    comm + "\n",
		"cmdline": "/usr/bin/" + comm + "\x00--flag\x00",
		"environ": "HOME=/root\x00",
		"maps":    maps,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return root
}

func TestPs(t *testing.T) {
	root := fakeProcRoot(t, 7, "demo", "")

	out, err := run(t, "ps", "--proc-root", root, "--name", "demo", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "pid: 7")
	assert.Contains(t, out, "name: demo")
	assert.Contains(t, out, "- --flag")

	out, err = run(t, "ps", "--proc-root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "/usr/bin/demo --flag")

	_, err = run(t, "ps", "--proc-root", root, "--name", "missing")
	assert.Error(t, err)
}

func TestInfo(t *testing.T) {
	root := fakeProcRoot(t, 8, "demo", "")

	out, err := run(t, "info", "--proc-root", root, "8", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "HOME: /root")
	assert.Contains(t, out, "threads:\n- 8")

	_, err = run(t, "info", "--proc-root", root, "9")
	assert.Error(t, err)
	_, err = run(t, "info", "--proc-root", root, "abc")
	assert.Error(t, err)
}

func TestMaps(t *testing.T) {
	root := fakeProcRoot(t, 9, "demo",
		"7f0000000000-7f0000002000 r-xp 00000000 08:01 10 /usr/lib/libc.so.6\n")

	out, err := run(t, "maps", "--proc-root", root, "9")
	require.NoError(t, err)
	assert.Contains(t, out, "0x7f0000000000")
	assert.Contains(t, out, "/usr/lib/libc.so.6")

	// no maps file
	require.NoError(t, os.Remove(filepath.Join(root, "9", "maps")))
	_, err = run(t, "maps", "--proc-root", root, "9")
	assert.Error(t, err)
}

func writeLib(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "libdemo.so")
	data := elftest.Image{
		Dynamic: []elftest.Symbol{
			elftest.Export("demo_open", 0x1100),
			elftest.Export("demo_close", 0x1200),
			elftest.Export("_ZN4demo4readEv", 0x1300),
		},
		Static: []elftest.Symbol{elftest.Local("helper", 0x1400)},
	}.Bytes()
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestSyms(t *testing.T) {
	lib := writeLib(t)

	out, err := run(t, "syms", lib, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: demo_open")
	assert.Contains(t, out, "display: demo::read")
	assert.NotContains(t, out, "helper")

	out, err = run(t, "syms", lib, "--prefix", "demo_c")
	require.NoError(t, err)
	assert.Contains(t, out, "demo_close")
	assert.NotContains(t, out, "demo_open")

	out, err = run(t, "syms", lib, "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "helper")

	_, err = run(t, "syms", filepath.Join(t.TempDir(), "missing.so"))
	assert.Error(t, err)
}

func TestModules(t *testing.T) {
	lib := writeLib(t)
	root := fakeProcRoot(t, 10, "demo", fmt.Sprintf(
		"7f0000000000-7f0000001000 r--p 00000000 08:01 10 %s\n"+
			"7f0000001000-7f0000003000 r-xp 00001000 08:01 10 %s\n", lib, lib))

	out, err := run(t, "modules", "--proc-root", root, "10", "--symbols", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: libdemo.so")
	assert.Contains(t, out, "status: loaded")
	assert.Contains(t, out, "exports: 3")

	out, err = run(t, "modules", "--proc-root", root, "10", "--find", "libdemo.so", "--prefix", "demo_")
	require.NoError(t, err)
	assert.Contains(t, out, "0x7f0000001100")
	assert.Contains(t, out, "demo_close")
	assert.NotContains(t, out, "demo::read")

	_, err = run(t, "modules", "--proc-root", root, "10", "--find", "libc.so.6")
	assert.Error(t, err)
}

func TestMem(t *testing.T) {
	root := fakeProcRoot(t, 11, "demo", "")
	mem := filepath.Join(root, "11", "mem")
	require.NoError(t, os.WriteFile(mem, []byte("\x00\x00\x00\x00hello world"), 0o600))

	out, err := run(t, "mem", "--proc-root", root, "11", "0x4", "--len", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "0x4:")
	assert.Contains(t, out, "68 65 6c 6c 6f")
	assert.Contains(t, out, "|hello|")

	out, err = run(t, "mem", "--proc-root", root, "11", "0x4", "--len", "5", "--write", "4a45")
	require.NoError(t, err)
	assert.Contains(t, out, "|JEllo|")

	_, err = run(t, "mem", "--proc-root", root, "11", "0x4", "--write", "zz")
	assert.Error(t, err)
	_, err = run(t, "mem", "--proc-root", root, "11", "0x100")
	assert.Error(t, err)
}

func TestHexStr(t *testing.T) {
	assert.Equal(t, "0x0", hexStr(0))
	assert.Equal(t, "0x7f0000001100", hexStr(0x7f0000001100))
}

func TestTraceArgs(t *testing.T) {
	_, err := run(t, "trace")
	assert.Error(t, err)
	_, err = run(t, "trace", "1", "--exec", "true")
	assert.Error(t, err)
}

func TestSplitCmdline(t *testing.T) {
	v, err := splitCmdline(`ls -la "a b" 'c d'`)
	require.NoError(t, err)
	assert.Equal(t, []string{"ls", "-la", "a b", "c d"}, v)

	_, err = splitCmdline("ls | wc -l")
	assert.Error(t, err)
	_, err = splitCmdline("echo `id`")
	assert.Error(t, err)
	_, err = splitCmdline("")
	assert.Error(t, err)
}
