/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

// Package cache implement a memory-based LRU local cache with per entry expiry
package cache

import (
	"container/list"
	"errors"
	"hash/fnv"
	"math"
	"sync"
	"time"
)

const (
	segmentCount = 16
	tenYears     = 10 * 365 * 24 * time.Hour
	// NeverExpire keeps an entry until it is evicted or deleted
	NeverExpire = time.Duration(-1)
)

var (
	// ErrNotFound the key is absent or expired
	ErrNotFound = errors.New("no value found")
	errNotInit  = errors.New("lru cache not init")
	errParam    = errors.New("parameter error")
)

// replaced in tests
var now = time.Now

type entry struct {
	key string
	// expireAt is zero for entries that never expire
	expireAt time.Time
	data     interface{}
}

func (e *entry) expired(t time.Time) bool {
	return !e.expireAt.IsZero() && t.After(e.expireAt)
}

func (e *entry) fill(value interface{}, ttl time.Duration) {
	e.data = value
	e.expireAt = time.Time{}
	if ttl != NeverExpire {
		e.expireAt = now().Add(ttl)
	}
}

type segment struct {
	mu      sync.Mutex
	maxSize int
	index   map[string]*list.Element
	order   *list.List
}

// ConcurrencyLRUCache is an LRU cache split in 16 independently locked segments.
type ConcurrencyLRUCache struct {
	segments [segmentCount]*segment
}

// New creates a cache holding about maxEntry entries, nil when maxEntry is not positive.
func New(maxEntry int) *ConcurrencyLRUCache {
	if maxEntry <= 0 {
		return nil
	}
	size := (maxEntry + segmentCount - 1) / segmentCount
	c := &ConcurrencyLRUCache{}
	for i := range c.segments {
		c.segments[i] = &segment{maxSize: size, index: make(map[string]*list.Element), order: list.New()}
	}
	return c
}

func (c *ConcurrencyLRUCache) segment(key string) (*segment, error) {
	if c == nil || c.segments[0] == nil {
		return nil, errNotInit
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return c.segments[h.Sum32()%segmentCount], nil
}

func validTTL(ttl time.Duration) bool {
	return ttl == NeverExpire || (ttl > 0 && ttl <= tenYears)
}

// Set creates or updates key.
func (c *ConcurrencyLRUCache) Set(key string, value interface{}, ttl time.Duration) error {
	s, err := c.segment(key)
	if err != nil {
		return err
	}
	if !validTTL(ttl) {
		return errParam
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.lookup(key); e != nil {
		e.fill(value, ttl)
		return nil
	}
	s.insert(key, value, ttl)
	return nil
}

// Get returns the value of key or ErrNotFound.
func (c *ConcurrencyLRUCache) Get(key string) (interface{}, error) {
	s, err := c.segment(key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(key)
	if e == nil {
		return nil, ErrNotFound
	}
	return e.data, nil
}

// Delete removes key if present.
func (c *ConcurrencyLRUCache) Delete(key string) {
	s, err := c.segment(key)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.index[key]; ok {
		s.remove(el)
	}
}

// SetIfNotExist stores value and returns true when key is absent or expired.
func (c *ConcurrencyLRUCache) SetIfNotExist(key string, value interface{}, ttl time.Duration) bool {
	s, err := c.segment(key)
	if err != nil || !validTTL(ttl) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookup(key) != nil {
		return false
	}
	s.insert(key, value, ttl)
	return true
}

// IncreaseOne adds one to the counter at key, starting from 0 when absent or expired.
func (c *ConcurrencyLRUCache) IncreaseOne(key string, ttl time.Duration) (int64, error) {
	return c.add(key, 1, ttl)
}

// DecreaseOne subtracts one from the counter at key, starting from 0 when absent or expired.
func (c *ConcurrencyLRUCache) DecreaseOne(key string, ttl time.Duration) (int64, error) {
	return c.add(key, -1, ttl)
}

func (c *ConcurrencyLRUCache) add(key string, delta int64, ttl time.Duration) (int64, error) {
	s, err := c.segment(key)
	if err != nil {
		return 0, err
	}
	if !validTTL(ttl) {
		return 0, errParam
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(key)
	if e == nil {
		s.insert(key, delta, ttl)
		return delta, nil
	}
	v, ok := e.data.(int64)
	if !ok || (delta > 0 && v == math.MaxInt64) || (delta < 0 && v == math.MinInt64) {
		return 0, errors.New("the cache value is not a valid counter")
	}
	e.fill(v+delta, ttl)
	return v + delta, nil
}

// lookup returns the live entry of key and marks it most recently used; expired entries are dropped.
func (s *segment) lookup(key string) *entry {
	el, ok := s.index[key]
	if !ok {
		return nil
	}
	e, ok := el.Value.(*entry)
	if !ok || e.expired(now()) {
		s.remove(el)
		return nil
	}
	s.order.MoveToFront(el)
	return e
}

func (s *segment) insert(key string, value interface{}, ttl time.Duration) {
	if s.order.Len() >= s.maxSize {
		if oldest := s.order.Back(); oldest != nil {
			s.remove(oldest)
		}
	}
	e := &entry{key: key}
	e.fill(value, ttl)
	s.index[key] = s.order.PushFront(e)
}

func (s *segment) remove(el *list.Element) {
	s.order.Remove(el)
	if e, ok := el.Value.(*entry); ok {
		delete(s.index, e.key)
	}
}
