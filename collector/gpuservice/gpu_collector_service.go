/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

// Package gpuservice implements the collector service over an NVML session.
package gpuservice

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"huawei.com/gpu-info/collector"
	"huawei.com/gpu-info/common/cache"
	"huawei.com/gpu-info/pkg/gonvml"
	"huawei.com/gpu-info/pkg/log"
	"huawei.com/gpu-info/pkg/telemetry"
)

const (
	// CollectorName for gpu collector
	CollectorName       = "gpu"
	snapshotCacheKey    = "gpu-info-snapshot"
	updateCachePattern  = "update cache,key is %s"
	tickerFailedPattern = "%s sampling failed, task shutdown: %v"
)

// SnapshotSource produces one snapshot per call. *telemetry.Sampler is the production source.
type SnapshotSource interface {
	Sample() (*telemetry.Snapshot, error)
}

type gpuCollectorService struct {
	serviceName string
	source      SnapshotSource
	nodeName    string
	collector   gpuCollector
	intervals   chan time.Duration
}

// New create one gpu collector service instance reading from source
func New(name string, source SnapshotSource) collector.ICollectorService {
	nodeName, err := os.Hostname()
	if err != nil {
		log.Warningf("get hostname failed: %v", err)
	}
	return &gpuCollectorService{
		serviceName: name,
		source:      source,
		nodeName:    nodeName,
		intervals:   make(chan time.Duration, 1),
	}
}

// GetName obtains the service name.
func (s *gpuCollectorService) GetName() string {
	return s.serviceName
}

// CreateCollector create a GPU collector instance that implements the Prometheus collector interface.
func (s *gpuCollectorService) CreateCollector(cacheTime time.Duration, updateTime time.Duration) prometheus.Collector {
	s.collector = gpuCollector{
		cache:      cache.New(cacheSize),
		source:     s.source,
		nodeName:   s.nodeName,
		cacheTime:  cacheTime,
		updateTime: updateTime,
	}
	return &s.collector
}

// SetUpdateTime replaces a pending interval change that was not picked up yet.
func (s *gpuCollectorService) SetUpdateTime(updateTime time.Duration) {
	if updateTime <= 0 {
		log.Warningf("ignore invalid update time %v", updateTime)
		return
	}
	select {
	case <-s.intervals:
	default:
	}
	s.intervals <- updateTime
}

// Start start collect gpu monitoring data
func (s *gpuCollectorService) Start(ctx context.Context, fn context.CancelFunc) {
	group := &sync.WaitGroup{}
	snapshotCollect(ctx, fn, group, s)
	group.Wait()
}

func snapshotCollect(ctx context.Context, fn context.CancelFunc, group *sync.WaitGroup, s *gpuCollectorService) {
	group.Add(1)
	go func() {
		setSnapshotToCache(ctx, fn, group, s)
	}()
}

func setSnapshotToCache(ctx context.Context, fn context.CancelFunc, group *sync.WaitGroup, s *gpuCollectorService) {
	defer group.Done()
	n := &s.collector
	ticker := time.NewTicker(n.updateTime)
	defer ticker.Stop()

	for {
		if _, err := n.refresh(); err != nil {
			if gonvml.IsSessionFatal(err) {
				log.Errorf(tickerFailedPattern, s.serviceName, err)
				if fn != nil {
					fn()
				}
				return
			}
			log.Warningf("%s sampling failed: %v", s.serviceName, err)
		} else {
			log.Debugf(updateCachePattern, snapshotCacheKey)
		}

		select {
		case <-ctx.Done():
			return
		case d := <-s.intervals:
			log.Infof("%s update time changed from %v to %v", s.serviceName, n.updateTime, d)
			n.updateTime = d
			ticker.Reset(d)
		case <-ticker.C:
		}
	}
}
