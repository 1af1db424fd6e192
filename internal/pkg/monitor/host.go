package monitor

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"

	"neorecon/internal/pkg/logger"
)

// HostInfo 扫描节点的主机信息，用于 /health 输出
type HostInfo struct {
	Hostname        string  `json:"hostname"`
	OS              string  `json:"os"`
	Platform        string  `json:"platform"`
	PlatformVersion string  `json:"platform_version"`
	KernelVersion   string  `json:"kernel_version"`
	Arch            string  `json:"arch"`
	CPUCores        int     `json:"cpu_cores"`
	CPUUsage        float64 `json:"cpu_usage"`
	MemoryTotal     uint64  `json:"memory_total"`
	MemoryUsage     float64 `json:"memory_usage"`
	Load1           float64 `json:"load1"`
	Uptime          uint64  `json:"uptime"`
}

// GetHostInfo 采集主机信息，单项失败只记录日志并使用 runtime 兜底
func GetHostInfo() *HostInfo {
	info := &HostInfo{
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		CPUCores: runtime.NumCPU(),
	}

	if h, err := host.Info(); err != nil {
		warn("host", err)
	} else {
		info.Hostname = h.Hostname
		info.Platform = h.Platform
		info.PlatformVersion = h.PlatformVersion
		info.KernelVersion = h.KernelVersion
		info.Uptime = h.Uptime
		if h.KernelArch != "" {
			info.Arch = h.KernelArch
		}
	}

	if cores, err := cpu.Counts(true); err != nil {
		warn("cpu", err)
	} else if cores > 0 {
		info.CPUCores = cores
	}

	// 采样窗口保持很短，/health 需要快速返回
	if percent, err := cpu.Percent(100*time.Millisecond, false); err != nil {
		warn("cpu", err)
	} else if len(percent) > 0 {
		info.CPUUsage = percent[0]
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		warn("memory", err)
	} else {
		info.MemoryTotal = vm.Total
		info.MemoryUsage = vm.UsedPercent
	}

	if avg, err := load.Avg(); err == nil {
		info.Load1 = avg.Load1
	}

	return info
}

func warn(item string, err error) {
	logger.LogSystemEvent("monitor", "host_info", item+": "+err.Error(), logrus.WarnLevel, nil)
}
