// Package diagnostics collects host resource figures for the `cadre doctor`
// report: CPU/memory/load via gopsutil, plus block-device inventory via ghw
// for the worktree root's backing disk. Adapted from the teacher's
// dashboard-widget metrics collector, trimmed to what a fleet operator needs
// before a run, not what a live TUI widget redraws every second — GPU
// telemetry is dropped outright, since nothing in a code-change agent's
// resource envelope touches a GPU.
package diagnostics

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemMetrics holds a single point-in-time snapshot of host resource usage.
type SystemMetrics struct {
	CPUModel   string
	CPUCores   int
	CPUPercent float64

	MemTotalMB float64
	MemUsedMB  float64
	MemPercent float64

	DiskPath    string
	DiskTotalGB float64
	DiskUsedGB  float64
	DiskPercent float64

	LoadAvg1  float64
	LoadAvg5  float64
	LoadAvg15 float64

	// BlockDevices is a best-effort hardware-level inventory of the disks
	// backing DiskPath, independent of gopsutil's filesystem-level view.
	BlockDevices []BlockDevice
}

// BlockDevice is one physical or virtual disk reported by ghw.
type BlockDevice struct {
	Name      string
	SizeGB    float64
	DriveType string
}

// Collector gathers SystemMetrics on demand. It is not safe for concurrent
// Collect calls against the same instance's cached CPU baseline, matching
// the teacher's collector (one collector per report, not shared).
type Collector struct {
	mu           sync.Mutex
	lastCPUTotal float64
	lastCPUIdle  float64
}

// NewCollector creates a Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Collect gathers a SystemMetrics snapshot for diskPath (typically the
// configured worktree root).
func (c *Collector) Collect(diskPath string) SystemMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := SystemMetrics{DiskPath: diskPath}
	c.collectCPU(&m)
	c.collectMemory(&m)
	c.collectDisk(&m, diskPath)
	c.collectLoad(&m)
	m.BlockDevices = collectBlockDevices()
	return m
}

func (c *Collector) collectCPU(m *SystemMetrics) {
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		m.CPUModel = strings.TrimSpace(infos[0].ModelName)
	}
	if cores, err := cpu.Counts(true); err == nil {
		m.CPUCores = cores
	}

	times, err := cpu.Times(false)
	if err != nil || len(times) == 0 {
		return
	}
	t := times[0]
	total := t.User + t.Nice + t.System + t.Idle + t.Iowait + t.Irq + t.Softirq + t.Steal
	idle := t.Idle + t.Iowait

	if c.lastCPUTotal > 0 {
		totalDelta := total - c.lastCPUTotal
		idleDelta := idle - c.lastCPUIdle
		if totalDelta > 0 {
			m.CPUPercent = (1 - idleDelta/totalDelta) * 100
		}
	}
	c.lastCPUTotal = total
	c.lastCPUIdle = idle
}

func (c *Collector) collectMemory(m *SystemMetrics) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return
	}
	m.MemTotalMB = float64(vm.Total) / 1024 / 1024
	m.MemUsedMB = float64(vm.Used) / 1024 / 1024
	m.MemPercent = vm.UsedPercent
}

func (c *Collector) collectDisk(m *SystemMetrics, path string) {
	if path == "" {
		path = "/"
	}
	usage, err := disk.Usage(path)
	if err != nil {
		return
	}
	m.DiskTotalGB = float64(usage.Total) / 1024 / 1024 / 1024
	m.DiskUsedGB = float64(usage.Used) / 1024 / 1024 / 1024
	m.DiskPercent = usage.UsedPercent
}

func (c *Collector) collectLoad(m *SystemMetrics) {
	avg, err := load.Avg()
	if err != nil {
		return
	}
	m.LoadAvg1 = avg.Load1
	m.LoadAvg5 = avg.Load5
	m.LoadAvg15 = avg.Load15
}

// collectBlockDevices reports the host's block devices via ghw, best-effort:
// a permission error or unsupported platform yields an empty slice rather
// than failing the whole report.
func collectBlockDevices() []BlockDevice {
	info, err := ghw.Block()
	if err != nil || info == nil {
		return nil
	}
	devices := make([]BlockDevice, 0, len(info.Disks))
	for _, d := range info.Disks {
		devices = append(devices, BlockDevice{
			Name:      d.Name,
			SizeGB:    float64(d.SizeBytes) / 1024 / 1024 / 1024,
			DriveType: d.DriveType.String(),
		})
	}
	return devices
}

// Warnings returns human-readable warnings for any figure past a
// conservative headroom threshold, mirroring the fleet orchestrator's own
// disk-headroom preflight but reported in full rather than as a single
// budget-warning event.
func (m SystemMetrics) Warnings() []string {
	var warnings []string
	if m.DiskPercent > 90 {
		warnings = append(warnings, fmt.Sprintf("disk usage at %.1f%% for %s", m.DiskPercent, m.DiskPath))
	}
	if m.MemPercent > 90 {
		warnings = append(warnings, fmt.Sprintf("memory usage at %.1f%%", m.MemPercent))
	}
	return warnings
}
