// Package sysinfo collects basic host information for the report
// header. Every field degrades to "unknown" on failure; collection
// never aborts a run.
package sysinfo

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const unknown = "unknown"

// Info describes the host a run executed on.
type Info struct {
	Hostname string `json:"hostname"`
	OS       string `json:"os"`
	Kernel   string `json:"kernel"`
	CPUModel string `json:"cpu_model"`
	CPUCount int    `json:"cpu_count"`
	MemTotal string `json:"mem_total"`
}

// Collect gathers host information from the kernel and /proc.
func Collect(logger *slog.Logger) Info {
	info := Info{
		Hostname: unknown,
		OS:       unknown,
		Kernel:   unknown,
		CPUModel: unknown,
		CPUCount: runtime.NumCPU(),
		MemTotal: unknown,
	}

	if h, err := os.Hostname(); err == nil {
		info.Hostname = h
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		info.Kernel = unix.ByteSliceToString(uts.Release[:])
	} else {
		logger.Debug("uname failed", slog.String("error", err.Error()))
	}

	if data, err := os.ReadFile("/etc/os-release"); err == nil {
		if name := parseOSRelease(string(data)); name != "" {
			info.OS = name
		}
	}

	if data, err := os.ReadFile("/proc/cpuinfo"); err == nil {
		if model := parseCPUModel(string(data)); model != "" {
			info.CPUModel = model
		}
	}

	if data, err := os.ReadFile("/proc/meminfo"); err == nil {
		if total := parseMemTotal(string(data)); total != "" {
			info.MemTotal = total
		}
	}

	return info
}

// parseOSRelease returns PRETTY_NAME from /etc/os-release content,
// falling back to NAME.
func parseOSRelease(content string) string {
	vars := make(map[string]string)

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), "=", 2)
		if len(parts) != 2 {
			continue
		}

		vars[parts[0]] = strings.Trim(parts[1], `"`)
	}

	if name := vars["PRETTY_NAME"]; name != "" {
		return name
	}

	return vars["NAME"]
}

// parseCPUModel returns the first "model name" entry from
// /proc/cpuinfo content.
func parseCPUModel(content string) string {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "model name") {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		return strings.TrimSpace(parts[1])
	}

	return ""
}

// parseMemTotal returns MemTotal from /proc/meminfo content,
// formatted in GiB.
func parseMemTotal(content string) string {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}

		return fmt.Sprintf("%.1f GiB", float64(kb)/(1024*1024))
	}

	return ""
}
