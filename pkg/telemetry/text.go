/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package telemetry

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	barWidth = 40
	mebibyte = 1024 * 1024
	na       = "n/a"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("63")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func renderBar(percent float64, color lipgloss.Color) string {
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}
	filled := int(float64(barWidth) * percent / 100.0)
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", barWidth-filled))
}

// RenderText renders snap for a terminal, one block per device.
func RenderText(snap *Snapshot) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("GPU snapshot  driver %s", snap.DriverVersion)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s | %d device(s)",
		snap.Timestamp.Format("2006-01-02 15:04:05"), len(snap.Devices))))
	b.WriteString("\n\n")
	for i := range snap.Devices {
		b.WriteString(renderDevice(&snap.Devices[i]))
		b.WriteString("\n")
	}
	return b.String()
}

func value(d *DeviceStats, metric string, format string, args ...interface{}) string {
	if !d.Supported(metric) {
		return na
	}
	return fmt.Sprintf(format, args...)
}

func renderDevice(d *DeviceStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", headerStyle.Render(fmt.Sprintf("GPU %d", d.Index)), d.Name)
	if d.UUID != "" {
		fmt.Fprintf(&b, "  %s\n", dimStyle.Render(d.UUID))
	}
	fmt.Fprintf(&b, "  PCI bus     %s  minor %s\n", value(d, MetricPciInfo, "%s", d.PciBusId),
		value(d, MetricMinorNumber, "%d", d.MinorNumber))

	if d.Supported(MetricMemory) && d.MemoryTotal > 0 {
		percent := float64(d.MemoryUsed) / float64(d.MemoryTotal) * 100
		fmt.Fprintf(&b, "  Memory      %d/%d MiB (%.1f%%)\n  %s\n", d.MemoryUsed/mebibyte,
			d.MemoryTotal/mebibyte, percent, renderBar(percent, lipgloss.Color("39")))
	} else {
		fmt.Fprintf(&b, "  Memory      %s\n", na)
	}
	if d.Supported(MetricUtilization) {
		fmt.Fprintf(&b, "  Util        gpu %d%% mem %d%%\n  %s\n", d.GpuUtil, d.MemoryUtil,
			renderBar(float64(d.GpuUtil), lipgloss.Color("208")))
	} else {
		fmt.Fprintf(&b, "  Util        %s\n", na)
	}

	fmt.Fprintf(&b, "  Temperature %s\n", value(d, MetricTemperature, "%d C", d.Temperature))
	fmt.Fprintf(&b, "  Fan         %s\n", value(d, MetricFanSpeed, "%d%%", d.FanSpeed))
	fmt.Fprintf(&b, "  Power       %s / %s\n", value(d, MetricPowerUsage, "%.1f W", float64(d.PowerUsage)/1000),
		value(d, MetricPowerLimit, "%.1f W", float64(d.PowerLimit)/1000))
	fmt.Fprintf(&b, "  PCIe        gen %s  tx %s  rx %s\n", value(d, MetricPcieGeneration, "%d", d.PcieGeneration),
		value(d, MetricPcieTx, "%d KB/s", d.PcieTx), value(d, MetricPcieRx, "%d KB/s", d.PcieRx))

	clocks := make([]string, 0, len(d.Clocks))
	for _, c := range d.Clocks {
		clocks = append(clocks, fmt.Sprintf("%s %s/%s", c.Domain,
			value(d, ClockMetric(c.Domain), "%d", c.Current), value(d, MaxClockMetric(c.Domain), "%d", c.Max)))
	}
	fmt.Fprintf(&b, "  Clocks MHz  %s\n", strings.Join(clocks, "  "))

	if len(d.Processes) == 0 {
		fmt.Fprintf(&b, "  Processes   none\n")
	} else {
		fmt.Fprintf(&b, "  Processes\n")
		for _, p := range d.Processes {
			name := p.Name
			if name == "" {
				name = "?"
			}
			fmt.Fprintf(&b, "    %-8d %-9s %-24s %d MiB\n", p.Pid, p.Type, name, p.UsedMemory/mebibyte)
		}
	}
	if len(d.Unsupported) > 0 {
		fmt.Fprintf(&b, "  %s\n", dimStyle.Render("unsupported: "+strings.Join(d.Unsupported, ", ")))
	}
	return b.String()
}
