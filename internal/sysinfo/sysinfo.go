// Package sysinfo collects a one-shot snapshot of the build host,
// used by the info command and embedded in bundle metadata.
package sysinfo

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot describes the host a build runs on. Fields that cannot be
// collected are left at their zero value rather than failing the build.
type Snapshot struct {
	Hostname    string `json:"hostname"`
	OS          string `json:"os"`
	OSVersion   string `json:"osVersion"`
	Kernel      string `json:"kernel,omitempty"`
	Arch        string `json:"arch"`
	CPUModel    string `json:"cpuModel,omitempty"`
	CPUCores    int    `json:"cpuCores"`
	MemTotalMB  uint64 `json:"memTotalMb"`
	DiskTotalGB uint64 `json:"diskTotalGb"`
	DiskFreeGB  uint64 `json:"diskFreeGb"`
}

// Collect gathers the host snapshot. Disk figures are measured at
// buildDir so the numbers reflect the filesystem builds actually write to.
func Collect(buildDir string) *Snapshot {
	s := &Snapshot{
		OS:   normalizeOS(runtime.GOOS),
		Arch: runtime.GOARCH,
	}

	hostInfo, err := host.Info()
	if err == nil {
		s.Hostname = hostInfo.Hostname
		s.OS = normalizeOS(hostInfo.OS)
		s.OSVersion = hostInfo.Platform + " " + hostInfo.PlatformVersion
		s.Kernel = hostInfo.KernelVersion
	}

	cpuInfo, err := cpu.Info()
	if err == nil && len(cpuInfo) > 0 {
		s.CPUModel = cpuInfo[0].ModelName
	}

	counts, err := cpu.Counts(true)
	if err == nil {
		s.CPUCores = counts
	}

	vmem, err := mem.VirtualMemory()
	if err == nil {
		s.MemTotalMB = vmem.Total / 1024 / 1024
	}

	usage, err := disk.Usage(existingDir(buildDir))
	if err == nil {
		s.DiskTotalGB = usage.Total / 1024 / 1024 / 1024
		s.DiskFreeGB = usage.Free / 1024 / 1024 / 1024
	}

	return s
}

func normalizeOS(os string) string {
	if os == "darwin" {
		return "macos"
	}
	return os
}

// existingDir walks up from path to the nearest directory that exists.
// The build directory is usually created by the first configure run, so
// before that the disk figures come from its closest existing ancestor.
func existingDir(path string) string {
	if path == "" {
		path = "."
	}
	for {
		if st, err := os.Stat(path); err == nil && st.IsDir() {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}
