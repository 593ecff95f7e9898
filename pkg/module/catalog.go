package module

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hitzhangjie/procdbg/pkg/session"
	"github.com/hitzhangjie/procdbg/pkg/target"
)

// Catalog 某个进程的模块视图
//
// 同一个Catalog枚举出的模块共享已解析镜像的缓存。
type Catalog struct {
	sess  *session.Session
	proc  *target.Process
	log   *logrus.Entry
	cache *imageCache
}

// NewCatalog sess为nil时使用默认会话
func NewCatalog(sess *session.Session, p *target.Process) *Catalog {
	if sess == nil {
		sess = session.Default()
	}
	log := sess.Logs.ModuleLogger().WithField("pid", p.Pid())
	return &Catalog{
		sess:  sess,
		proc:  p,
		log:   log,
		cache: newImageCache(sess.Config.Symbols.CacheSize, log),
	}
}

// Modules 读取进程的内存映射并归并为模块
//
// 每次调用都返回新的Module，符号缓存不跨调用保留，已解析的镜像通过LRU复用。
func (c *Catalog) Modules() ([]*Module, error) {
	regions, err := c.proc.MemoryRegions()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate modules")
	}
	mods := Coalesce(regions)
	for _, m := range mods {
		m.catalog = c
	}
	c.log.Debugf("found %d modules", len(mods))
	return mods, nil
}

// FindByName 枚举模块并返回第一个名字为name的模块，内存映射读取失败时也返回false
func (c *Catalog) FindByName(name string) (*Module, bool) {
	mods, err := c.Modules()
	if err != nil {
		c.log.Debugf("find %s: %v", name, err)
		return nil, false
	}
	return FindByName(mods, name)
}
