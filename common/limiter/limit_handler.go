/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

// Package limiter bounds the load the exporter accepts from scrapers
package limiter

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"huawei.com/gpu-info/common/cache"
	"huawei.com/gpu-info/pkg/log"
)

const (
	// DefaultDataLimit default http body limit size
	DefaultDataLimit = 1024 * 1024 * 10
	// DefaultCacheSize default size of the per ip cache
	DefaultCacheSize      = 1024 * 100
	defaultMaxConcurrency = 1024
	maxStringLen          = 20
	// IPReqLimitReg "<requests>/<seconds>"
	IPReqLimitReg = "^[1-9]\\d{0,2}/[1-9]\\d{0,2}$"
)

var ipReqLimitPattern = regexp.MustCompile(IPReqLimitReg)

// HandlerConfig configures NewLimitHandler
type HandlerConfig struct {
	// PrintLog logs every request at debug level
	PrintLog bool
	// Method is the only http method served, empty allows all
	Method string
	// LimitBytes caps the request body
	LimitBytes int64
	// TotalConCurrency caps the requests served at the same time
	TotalConCurrency int
	// IPConCurrency "20/1" allows 20 requests per second from one ip
	IPConCurrency string
	// CacheSize the number of client ips remembered
	CacheSize int
}

type limitHandler struct {
	concurrency chan struct{}
	httpHandler http.Handler
	log         bool
	method      string
	limitBytes  int64
	ipInterval  time.Duration
	ipCache     *cache.ConcurrencyLRUCache
}

type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// ParseIPReqLimit returns the minimum interval between two requests of one ip.
func ParseIPReqLimit(limit string) (time.Duration, error) {
	if !ipReqLimitPattern.MatchString(limit) {
		return 0, fmt.Errorf("IPConCurrency parameter [%s] error", limit)
	}
	parts := strings.Split(limit, "/")
	requests, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("IPConCurrency parameter(%s) error, parse to int failed: %w", parts[0], err)
	}
	seconds, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("IPConCurrency parameter(%s) error, parse to int failed: %w", parts[1], err)
	}
	return time.Duration(seconds * int64(time.Second) / requests), nil
}

// NewLimitHandler wraps handler with concurrency, per ip rate, method and body size limits.
func NewLimitHandler(handler http.Handler, conf *HandlerConfig) (http.Handler, error) {
	if conf == nil {
		return nil, errors.New("parameter error")
	}
	if conf.TotalConCurrency < 1 || conf.TotalConCurrency > defaultMaxConcurrency {
		return nil, errors.New("totalConCurrency parameter error")
	}
	if len(conf.Method) > maxStringLen {
		return nil, errors.New("http method error")
	}
	interval, err := ParseIPReqLimit(conf.IPConCurrency)
	if err != nil {
		return nil, err
	}
	cacheSize := conf.CacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	h := &limitHandler{
		concurrency: make(chan struct{}, conf.TotalConCurrency),
		httpHandler: handler,
		log:         conf.PrintLog,
		method:      conf.Method,
		limitBytes:  conf.LimitBytes,
		ipInterval:  interval,
		ipCache:     cache.New(cacheSize),
	}
	return h, nil
}

func (h *limitHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if h.limitBytes > 0 && req.Body != nil {
		req.Body = http.MaxBytesReader(w, req.Body, h.limitBytes)
	}
	clientIP := ClientIP(req)
	if clientIP != "" && !h.ipCache.SetIfNotExist("key-"+clientIP, "v", h.ipInterval) {
		http.Error(w, "429 too many requests", http.StatusTooManyRequests)
		return
	}

	select {
	case h.concurrency <- struct{}{}:
	default:
		http.Error(w, "503 too busy", http.StatusServiceUnavailable)
		return
	}
	defer func() { <-h.concurrency }()

	if h.method != "" && req.Method != h.method {
		http.Error(w, "405 method not allowed", http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()
	res := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}
	h.httpHandler.ServeHTTP(res, req)
	if h.log {
		log.Debugf("%s %s %s %d %v", clientIP, req.Method, req.URL.Path, res.status, time.Since(start))
	}
}

// ClientIP returns the address of the scraper, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if ip := strings.TrimSpace(strings.Split(forwarded, ",")[0]); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-Ip")); ip != "" {
		return ip
	}
	if ip, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr)); err == nil {
		return ip
	}
	return ""
}
