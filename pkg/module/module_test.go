package module

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/hitzhangjie/procdbg/internal/elftest"
	"github.com/hitzhangjie/procdbg/pkg/session"
	"github.com/hitzhangjie/procdbg/pkg/target"
)

func regions(lines ...string) func(func(target.MemoryRegion) bool) {
	return func(yield func(target.MemoryRegion) bool) {
		for _, l := range lines {
			r, ok := target.ParseMapsLine(l)
			if !ok {
				panic("bad maps line: " + l)
			}
			if !yield(r) {
				return
			}
		}
	}
}

func TestCoalesceContiguous(t *testing.T) {
	mods := Coalesce(regions(
		"7f0000000000-7f0000002000 r--p 00000000 08:01 10 /usr/lib/libc.so.6",
		"7f0000002000-7f0000007000 r-xp 00002000 08:01 10 /usr/lib/libc.so.6",
		"7f0000007000-7f0000008000 rw-p 00007000 08:01 10 /usr/lib/libc.so.6",
	))
	require.Len(t, mods, 1)
	m := mods[0]
	assert.Equal(t, uint64(0x7f0000000000), m.Base)
	assert.Equal(t, uint64(0x2000+0x5000+0x1000), m.Size)
	assert.Equal(t, "r--p", m.Usage)
	assert.Equal(t, "libc.so.6", m.Name)
	assert.Equal(t, "/usr/lib/libc.so.6", m.Path)
	assert.Equal(t, Unloaded, m.Status())
}

func TestCoalesceRuns(t *testing.T) {
	mods := Coalesce(regions(
		"1000-2000 r-xp 00000000 08:01 10 /bin/app",
		"3000-4000 rw-p 00002000 08:01 10 /bin/app",
		"4000-5000 rw-p 00000000 00:00 0",
		"5000-6000 r--p 00003000 08:01 10 /bin/app",
		"6000-7000 rw-p 00000000 00:00 0 [heap]",
		"7000-8000 r-xp 00000000 08:01 11 /lib/liba.so",
		"8000-9000 r-xp 00000000 08:01 12 /lib/libb.so",
		"9000-a000 r--p 00001000 08:01 12 /lib/libb.so",
		"a000-b000 r--p 00000000 08:01 13 /tmp/libgone.so (deleted)",
		"c000-d000 r-xp 00000000 00:00 0 [vdso]",
		"d000-e000 rw-p 00000000 00:00 0 [stack]",
	))

	type want struct {
		name string
		base uint64
		size uint64
	}
	var got []want
	for _, m := range mods {
		got = append(got, want{m.Name, m.Base, m.Size})
	}
	assert.Equal(t, []want{
		{"app", 0x1000, 0x2000},
		{"app", 0x5000, 0x1000},
		{"liba.so", 0x7000, 0x1000},
		{"libb.so", 0x8000, 0x2000},
		{"libgone.so", 0xa000, 0x1000},
		{"[vdso]", 0xc000, 0x1000},
	}, got)
}

func TestCoalesceOutOfOrder(t *testing.T) {
	mods := Coalesce(regions(
		"5000-6000 r-xp 00000000 08:01 10 /bin/app",
		"1000-2000 r--p 00000000 08:01 10 /bin/app",
	))
	require.Len(t, mods, 2)
	assert.Equal(t, uint64(0x1000), mods[1].Base)
}

func TestFindByNameFirstMatch(t *testing.T) {
	mods := Coalesce(regions(
		"1000-2000 r-xp 00000000 08:01 10 /opt/a/libdup.so",
		"3000-4000 r-xp 00000000 08:01 11 /lib/other.so",
		"5000-6000 r-xp 00000000 08:01 12 /opt/b/libdup.so",
	))
	m, ok := FindByName(mods, "libdup.so")
	require.True(t, ok)
	assert.Equal(t, "/opt/a/libdup.so", m.Path)

	_, ok = FindByName(mods, "libdup")
	assert.False(t, ok)
	_, ok = FindByName(nil, "libdup.so")
	assert.False(t, ok)
}

// fakeTarget 构造一个带maps的假进程
type fakeTarget struct {
	t    *testing.T
	root string
	dir  string
	pid  int
}

func newFakeTarget(t *testing.T) *fakeTarget {
	t.Helper()
	root := t.TempDir()
	pid := 4242
	dir := filepath.Join(root, strconv.Itoa(pid))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stat"), []byte("4242 (app) S 1"), 0o644))
	return &fakeTarget{t: t, root: root, dir: dir, pid: pid}
}

func (f *fakeTarget) maps(lines ...string) {
	f.t.Helper()
	require.NoError(f.t, os.WriteFile(filepath.Join(f.dir, "maps"), []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func (f *fakeTarget) process() *target.Process {
	f.t.Helper()
	p, ok := target.NewFS(f.root, nil).FromPid(f.pid)
	require.True(f.t, ok)
	return p
}

func writeImage(t *testing.T, dir, name string, img elftest.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, img.Bytes(), 0o644))
	return path
}

var libfoo = elftest.Image{
	Entry: 0x1040,
	Dynamic: []elftest.Symbol{
		elftest.Import("malloc"),
		elftest.Export("foo", 0x1100),
		elftest.Export("foo_bar", 0x1200),
		elftest.Export("bar", 0x1300),
		elftest.Export("foo", 0x1400),
		elftest.Export("_ZN3foo3bazEi", 0x1500),
	},
	Static: []elftest.Symbol{
		elftest.Local("helper", 0x1600),
	},
}

func TestCatalogSymbols(t *testing.T) {
	ft := newFakeTarget(t)
	lib := writeImage(t, t.TempDir(), "libfoo.so", libfoo)
	ft.maps(
		"400000-401000 r-xp 00000000 08:01 1 /bin/app",
		fmt.Sprintf("7f0000000000-7f0000001000 r--p 00000000 08:01 2 %s", lib),
		fmt.Sprintf("7f0000001000-7f0000003000 r-xp 00001000 08:01 2 %s", lib),
	)
	cat := NewCatalog(session.Default(), ft.process())

	m, ok := cat.FindByName("libfoo.so")
	require.True(t, ok)
	assert.Equal(t, uint64(0x3000), m.Size)
	assert.Equal(t, Unloaded, m.Status())

	d := m.Symbols()
	require.Equal(t, Loaded, d.Status)
	assert.Equal(t, Loaded, m.Status())
	assert.Same(t, d, m.Symbols())
	assert.Equal(t, "x86_64", d.Arch)
	assert.Equal(t, uint64(0x1040), d.Entry)
	assert.Len(t, d.Dynamic, 5, "malloc has value 0")
	assert.Len(t, d.Exports, 5)

	s, ok := d.FindExport("foo")
	require.True(t, ok)
	assert.Equal(t, uint64(0x1100), s.Value)
	_, ok = d.FindExport("malloc")
	assert.False(t, ok)

	var prefixed []string
	for _, s := range d.ExportsWithPrefix("foo") {
		prefixed = append(prefixed, fmt.Sprintf("%s@%#x", s.Name, s.Value))
	}
	assert.Equal(t, []string{"foo@0x1100", "foo_bar@0x1200"}, prefixed)
	assert.Len(t, d.ExportsWithPrefix(""), 4)
	assert.Empty(t, d.ExportsWithPrefix("zzz"))

	mangled, ok := d.FindExport("_ZN3foo3bazEi")
	require.True(t, ok)
	assert.Equal(t, "foo::baz", mangled.Display)

	require.Len(t, d.Static, 1)
	assert.Equal(t, "helper", d.Static[0].Name)

	// /bin/app does not exist in the test environment
	app, ok := cat.FindByName("app")
	require.True(t, ok)
	assert.Equal(t, Unloaded, app.Symbols().Status)
}

func TestCatalogMapsError(t *testing.T) {
	ft := newFakeTarget(t)
	cat := NewCatalog(nil, ft.process())

	_, err := cat.Modules()
	assert.Error(t, err)
	_, ok := cat.FindByName("libc.so.6")
	assert.False(t, ok)
}

func TestUnparsableStaysUnloaded(t *testing.T) {
	ft := newFakeTarget(t)
	path := filepath.Join(t.TempDir(), "libjunk.so")
	require.NoError(t, os.WriteFile(path, []byte("not an elf image"), 0o644))
	ft.maps(fmt.Sprintf("1000-2000 r-xp 00000000 08:01 3 %s", path))
	cat := NewCatalog(nil, ft.process())

	m, ok := cat.FindByName("libjunk.so")
	require.True(t, ok)
	d := m.Symbols()
	assert.Equal(t, Unloaded, d.Status)
	assert.Empty(t, d.Exports)
	_, ok = d.FindExport("anything")
	assert.False(t, ok)
	assert.Empty(t, d.ExportsWithPrefix(""))

	// replacing the file does not help the already enumerated module
	writeImage(t, filepath.Dir(path), "libjunk.so", libfoo)
	assert.Equal(t, Unloaded, m.Symbols().Status)

	// a fresh enumeration does
	m, ok = cat.FindByName("libjunk.so")
	require.True(t, ok)
	assert.Equal(t, Loaded, m.Symbols().Status)
}

func TestImageCacheShared(t *testing.T) {
	ft := newFakeTarget(t)
	dir := t.TempDir()
	lib := writeImage(t, dir, "libfoo.so", libfoo)
	ft.maps(fmt.Sprintf("1000-2000 r-xp 00000000 08:01 2 %s", lib))
	cat := NewCatalog(nil, ft.process())

	first, ok := cat.FindByName("libfoo.so")
	require.True(t, ok)
	second, ok := cat.FindByName("libfoo.so")
	require.True(t, ok)
	assert.NotSame(t, first, second)
	assert.Same(t, first.Symbols(), second.Symbols())

	// a different file at the same path misses the cache
	writeImage(t, dir, "libfoo.so", elftest.Image{
		Dynamic: []elftest.Symbol{elftest.Export("only", 0x2000)},
	})
	third, ok := cat.FindByName("libfoo.so")
	require.True(t, ok)
	d := third.Symbols()
	assert.NotSame(t, first.Symbols(), d)
	_, ok = d.FindExport("only")
	assert.True(t, ok)
}

func TestVdsoFromMemory(t *testing.T) {
	ft := newFakeTarget(t)
	const base = 0x7000
	image := elftest.Image{
		Dynamic: []elftest.Symbol{elftest.Export("__vdso_clock_gettime", 0xa00)},
	}.Bytes()
	mem := make([]byte, base+len(image))
	copy(mem[base:], image)
	require.NoError(t, os.WriteFile(filepath.Join(ft.dir, "mem"), mem, 0o600))
	ft.maps(fmt.Sprintf("%x-%x r-xp 00000000 00:00 0 [vdso]", base, base+0x2000))

	p := ft.process()
	defer p.Close()
	m, ok := NewCatalog(nil, p).FindByName("[vdso]")
	require.True(t, ok)

	d := m.Symbols()
	require.Equal(t, Loaded, d.Status)
	_, ok = d.FindExport("__vdso_clock_gettime")
	assert.True(t, ok)
}

func TestConcurrentFirstLoad(t *testing.T) {
	lib := writeImage(t, t.TempDir(), "libfoo.so", libfoo)
	mods := Coalesce(regions(fmt.Sprintf("1000-2000 r-xp 00000000 08:01 2 %s", lib)))
	require.Len(t, mods, 1)
	m := mods[0]

	const n = 16
	results := make([]*SymbolsData, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.Symbols()
		}(i)
	}
	wg.Wait()

	published := m.Symbols()
	for _, d := range results {
		assert.Same(t, published, d)
	}
}

func TestReloadNeverExposesPartialData(t *testing.T) {
	lib := writeImage(t, t.TempDir(), "libfoo.so", libfoo)
	mods := Coalesce(regions(fmt.Sprintf("1000-2000 r-xp 00000000 08:01 2 %s", lib)))
	m := mods[0]

	const readers = 4
	var (
		wg      sync.WaitGroup
		loaded  sync.WaitGroup
		stop    = atomic.NewBool(false)
		partial = atomic.NewInt32(0)
		seen    = atomic.NewInt32(0)
	)
	loaded.Add(readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reported := false
			for !stop.Load() {
				d := m.Symbols()
				if d.Status != Loaded {
					continue
				}
				seen.Inc()
				if len(d.Exports) != 5 || len(d.Dynamic) != 5 || len(d.Static) != 1 {
					partial.Inc()
				}
				if !reported {
					reported = true
					loaded.Done()
				}
			}
		}()
	}

	// 每个reader至少看到一次Loaded之前一直reload
	allLoaded := make(chan struct{})
	go func() {
		loaded.Wait()
		close(allLoaded)
	}()
	for i := 0; ; i++ {
		m.Reload()
		if i < 50 {
			continue
		}
		select {
		case <-allLoaded:
		default:
			continue
		}
		break
	}
	stop.Store(true)
	wg.Wait()

	assert.Zero(t, partial.Load())
	assert.GreaterOrEqual(t, seen.Load(), int32(readers))
}
