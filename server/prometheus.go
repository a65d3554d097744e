/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

// Package server implement the HTTP service for Prometheus to obtain monitoring data
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"huawei.com/gpu-info/collector"
	"huawei.com/gpu-info/common/limiter"
	"huawei.com/gpu-info/pkg/config"
	"huawei.com/gpu-info/pkg/log"
)

// ProtocolType of the listener
type ProtocolType int

const (
	// HTTP plain text listener
	HTTP ProtocolType = iota
	// HTTPS listener with the key pair found in certFilePath
	HTTPS
)

const (
	portMin         = 1025
	portMax         = 40000
	ioTimeout       = 10 * time.Second
	maxHeaderBytes  = 3072
	maxIPConnLimit  = 128
	maxConcurrency  = 512
	shutdownTimeout = 30 * time.Second
	httpsEnableEnv  = "HTTPS_ENABLE"
	metricsPath     = "/metrics"
)

// replaced in tests
var (
	certFilePath = "/etc/gpu-info/certs/"
	lookupEnv    = os.Getenv
)

// ExporterServer serves the metrics of one collector service.
type ExporterServer struct {
	Ip   string
	Port int
	// Concurrency is the number of requests handled at the same time
	Concurrency int
	// LimitIPReq is the request rate allowed per client ip, in the form N/S
	LimitIPReq     string
	LimitIPConn    int
	LimitTotalConn int
	ProtocolType   ProtocolType

	collectService collector.ICollectorService
	// loaded once by VerifyServerParams when HTTPS is on
	cert *tls.Certificate
}

// NewExporterServer takes the listen address and limits from the exporter section of the config.
func NewExporterServer(cfg config.ExporterConfig) *ExporterServer {
	return &ExporterServer{
		Ip:             cfg.Ip,
		Port:           cfg.Port,
		Concurrency:    cfg.Concurrency,
		LimitIPReq:     cfg.LimitIPReq,
		LimitIPConn:    cfg.LimitIPConn,
		LimitTotalConn: cfg.LimitTotalConn,
	}
}

func (s *ExporterServer) scheme() string {
	if s.ProtocolType == HTTPS {
		return "https"
	}
	return "http"
}

func indexHandler(s *ExporterServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		name := "none"
		if s.collectService != nil {
			name = s.collectService.GetName()
		}
		_, _ = fmt.Fprintf(w, "gpu-info exporter\ncollector: %s\nmetrics: %s://IP:%d%s\n",
			name, s.scheme(), s.Port, metricsPath)
	}
}

// VerifyServerParams checks the listen address and limits, then loads the key pair when
// HTTPS_ENABLE is "on". The ip is normalized.
func (s *ExporterServer) VerifyServerParams() error {
	if err := s.verifyListen(); err != nil {
		return err
	}
	if err := s.verifyLimits(); err != nil {
		return err
	}
	if lookupEnv(httpsEnableEnv) != "on" {
		s.ProtocolType = HTTP
		return nil
	}
	s.ProtocolType = HTTPS
	return s.loadCertificate()
}

func (s *ExporterServer) verifyListen() error {
	if s.Port < portMin || s.Port > portMax {
		return fmt.Errorf("the Port %d is invalid, range[%d-%d]", s.Port, portMin, portMax)
	}
	ip := net.ParseIP(s.Ip)
	if ip == nil {
		return fmt.Errorf("the listen Ip [%s] is invalid", s.Ip)
	}
	s.Ip = ip.String()
	return nil
}

func (s *ExporterServer) verifyLimits() error {
	if !regexp.MustCompile(limiter.IPReqLimitReg).MatchString(s.LimitIPReq) {
		return fmt.Errorf("limitIPReq [%s] format error", s.LimitIPReq)
	}
	limits := []struct {
		name  string
		value int
		max   int
	}{
		{"limitIPConn", s.LimitIPConn, maxIPConnLimit},
		{"limitTotalConn", s.LimitTotalConn, maxConcurrency},
		{"concurrency", s.Concurrency, maxConcurrency},
	}
	for _, l := range limits {
		if l.value < 1 || l.value > l.max {
			return fmt.Errorf("%s %d is invalid, range[1-%d]", l.name, l.value, l.max)
		}
	}
	return nil
}

func (s *ExporterServer) loadCertificate() error {
	certFile, keyFile, err := findKeyPair(certFilePath)
	if err != nil {
		return fmt.Errorf("HTTPS key pair: %w", err)
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("HTTPS key pair: %w", err)
	}
	s.cert = &cert
	return nil
}

// findKeyPair returns the first *.crt and *.key regular files of dir.
func findKeyPair(dir string) (string, string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", err
	}
	var certFile, keyFile string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		switch {
		case certFile == "" && strings.HasSuffix(e.Name(), ".crt"):
			certFile = path
		case keyFile == "" && strings.HasSuffix(e.Name(), ".key"):
			keyFile = path
		}
	}
	if certFile == "" || keyFile == "" {
		return "", "", fmt.Errorf("%s needs a .crt and a .key file", dir)
	}
	return certFile, keyFile, nil
}

// listen opens the limited listener and builds the server around handler.
func (s *ExporterServer) listen(handler http.Handler) (*http.Server, net.Listener, error) {
	limited, err := limiter.NewLimitHandler(handler, &limiter.HandlerConfig{
		PrintLog:         true,
		Method:           http.MethodGet,
		LimitBytes:       limiter.DefaultDataLimit,
		TotalConCurrency: s.Concurrency,
		IPConCurrency:    s.LimitIPReq,
		CacheSize:        limiter.DefaultCacheSize,
	})
	if err != nil {
		return nil, nil, err
	}
	server := &http.Server{
		Addr:           net.JoinHostPort(s.Ip, strconv.Itoa(s.Port)),
		Handler:        limited,
		ReadTimeout:    ioTimeout,
		WriteTimeout:   ioTimeout,
		MaxHeaderBytes: maxHeaderBytes,
	}
	if s.ProtocolType == HTTPS {
		if s.cert == nil {
			return nil, nil, errors.New("HTTPS is on but no certificate is loaded")
		}
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS13, Certificates: []tls.Certificate{*s.cert}}
	}

	l, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen on %s: %w", server.Addr, err)
	}
	ll, err := limiter.LimitListener(l, s.LimitTotalConn, s.LimitIPConn, limiter.DefaultCacheSize)
	if err != nil {
		_ = l.Close()
		return nil, nil, fmt.Errorf("limit listener: %w", err)
	}
	return server, ll, nil
}

// StartServe serves reg until ctx is done. cancel is called when the server cannot run.
func (s *ExporterServer) StartServe(ctx context.Context, cancel context.CancelFunc, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError}))
	mux.Handle("/", indexHandler(s))

	server, listener, err := s.listen(mux)
	if err != nil {
		log.Errorf("create server failed: %v", err)
		cancel()
		return err
	}
	log.Infof("exporter listening on %s://%s", s.scheme(), server.Addr)

	serveErr := make(chan error, 1)
	go func() {
		defer close(serveErr)
		var err error
		if s.ProtocolType == HTTPS {
			err = server.ServeTLS(listener, "", "")
		} else {
			err = server.Serve(listener)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("serve failed: %v", err)
			serveErr <- err
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown server failed: %v", err)
		return err
	}
	return <-serveErr
}

// RegisterCollectorService register the collectorService.
func (s *ExporterServer) RegisterCollectorService(c collector.ICollectorService) error {
	if s == nil {
		return errors.New("exporter server is nil")
	}
	if c == nil {
		return errors.New("collector service is nil")
	}
	s.collectService = c
	return nil
}

// CreateCollector create a matching collector.
func (s *ExporterServer) CreateCollector(cacheTime time.Duration, updateTime time.Duration) prometheus.Collector {
	return s.collectService.CreateCollector(cacheTime, updateTime)
}

// StartCollect runs the collector service until ctx is done.
func (s *ExporterServer) StartCollect(ctx context.Context, cancel context.CancelFunc) {
	s.collectService.Start(ctx, cancel)
}

// SetUpdateTime forwards a new sampling interval to the collector service.
func (s *ExporterServer) SetUpdateTime(updateTime time.Duration) {
	s.collectService.SetUpdateTime(updateTime)
}
