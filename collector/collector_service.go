/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

// Package collector defines the collection service behind the exporter.
package collector

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ICollectorService periodically samples the GPUs and exposes the samples to prometheus.
type ICollectorService interface {
	// CreateCollector creating a collector
	CreateCollector(cacheTime time.Duration, updateTime time.Duration) prometheus.Collector

	// Start to collect monitoring data, returns when ctx is done.
	// fn is called when sampling can no longer succeed.
	Start(ctx context.Context, fn context.CancelFunc)

	// SetUpdateTime changes the sampling interval of a started service.
	SetUpdateTime(updateTime time.Duration)

	//GetName return the name of collector service
	GetName() string
}
