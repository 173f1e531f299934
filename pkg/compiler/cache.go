package compiler

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/openvp/affe/pkg/vm"
)

func sourceKey(src string) string {
	return strconv.FormatUint(xxhash.Sum64String(src), 16)
}

// cache remembers compiled functions by source. Concurrent compilations of the same source share one result.
type cache struct {
	functions *lru.Cache
	group     singleflight.Group
}

func newCache(size int) (*cache, error) {
	l, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create compile cache")
	}
	return &cache{functions: l}, nil
}

type cached struct {
	src string
	fn  *vm.Function
}

func (c *cache) get(src string, compile func(string) (*vm.Function, error)) (*vm.Function, error) {
	key := sourceKey(src)
	if v, ok := c.functions.Get(key); ok {
		// Colliding sources are compiled again.
		if e := v.(cached); e.src == src {
			return e.fn, nil
		}
	}
	v, err, _ := c.group.Do(src, func() (any, error) {
		fn, err := compile(src)
		if err != nil {
			return nil, err
		}
		c.functions.Add(key, cached{src: src, fn: fn})
		return fn, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*vm.Function), nil
}

func (c *cache) len() int {
	return c.functions.Len()
}
