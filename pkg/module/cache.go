package module

import (
	"os"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
)

// imageKey 同一路径的文件被替换后大小或修改时间会变化，旧的解析结果随之失效
type imageKey struct {
	path  string
	size  int64
	mtime int64
}

func statImage(path string) (imageKey, bool) {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return imageKey{}, false
	}
	return imageKey{path: path, size: fi.Size(), mtime: fi.ModTime().UnixNano()}, true
}

// imageCache 已解析镜像的LRU缓存，nil表示不缓存
type imageCache struct {
	lru *lru.Cache
	log *logrus.Entry
}

func newImageCache(size int, log *logrus.Entry) *imageCache {
	c, err := lru.New(size)
	if err != nil {
		log.Debugf("image cache disabled: %v", err)
		return nil
	}
	return &imageCache{lru: c, log: log}
}

func (c *imageCache) get(k imageKey) (*SymbolsData, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.lru.Get(k)
	if !ok {
		return nil, false
	}
	return v.(*SymbolsData), true
}

func (c *imageCache) add(k imageKey, d *SymbolsData) {
	if c == nil {
		return
	}
	if evicted := c.lru.Add(k, d); evicted {
		c.log.Debugf("image cache full, evicted oldest entry")
	}
}

// remove 删除path对应的所有缓存项
func (c *imageCache) remove(path string) {
	if c == nil {
		return
	}
	for _, k := range c.lru.Keys() {
		if key, ok := k.(imageKey); ok && key.path == path {
			c.lru.Remove(k)
		}
	}
}
