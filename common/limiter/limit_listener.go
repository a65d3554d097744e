/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package limiter

import (
	"errors"
	"net"
	"sync"
	"time"

	"huawei.com/gpu-info/common/cache"
)

const (
	maxConnection   = 1024
	maxIPConnection = 512
)

// LimitListener returns a Listener accepting at most totalConnLimit connections in total and
// ipConnLimit per client ip at the same time. Connections above a limit are closed at once.
func LimitListener(l net.Listener, totalConnLimit, ipConnLimit, cacheSize int) (net.Listener, error) {
	if totalConnLimit < 0 || totalConnLimit > maxConnection {
		return nil, errors.New("the parameter totalConnLimit is illegal")
	}
	if ipConnLimit < 0 || ipConnLimit > maxIPConnection {
		return nil, errors.New("the parameter ipConnLimit is illegal")
	}
	ll := &limitListener{
		Listener:    l,
		buckets:     make(chan struct{}, totalConnLimit),
		ipConnLimit: int64(ipConnLimit),
	}
	if cacheSize > 0 {
		ll.ipCache = cache.New(cacheSize)
	}
	return ll, nil
}

type limitListener struct {
	net.Listener
	buckets     chan struct{}
	ipCache     *cache.ConcurrencyLRUCache
	ipConnLimit int64
}

func (l *limitListener) acquire() bool {
	select {
	case l.buckets <- struct{}{}:
		return true
	default:
		return false
	}
}

func (l *limitListener) release() { <-l.buckets }

// Accept implement net.Listener interface
func (l *limitListener) Accept() (net.Conn, error) {
	for {
		c, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}
		conn := &limitListenerConn{Conn: c, key: connKey(c), ipCache: l.ipCache, release: func() {}}
		if conn.key != "" && l.ipCache != nil {
			counts, err := l.ipCache.IncreaseOne(conn.key, time.Hour)
			if err == nil && counts > l.ipConnLimit {
				_ = conn.Close()
				continue
			}
		}
		if !l.acquire() {
			_ = conn.Close()
			continue
		}
		conn.release = l.release
		return conn, nil
	}
}

func connKey(c net.Conn) string {
	host, _, err := net.SplitHostPort(c.RemoteAddr().String())
	if err != nil || host == "" {
		return ""
	}
	return "key-conn-" + host
}

type limitListenerConn struct {
	net.Conn
	key         string
	ipCache     *cache.ConcurrencyLRUCache
	releaseOnce sync.Once
	release     func()
}

// Close returns the slots taken by the connection
func (c *limitListenerConn) Close() error {
	err := c.Conn.Close()
	c.releaseOnce.Do(func() {
		c.release()
		if c.key != "" && c.ipCache != nil {
			_, _ = c.ipCache.DecreaseOne(c.key, time.Hour)
		}
	})
	return err
}
