// Package parser extracts numeric metrics from the human-readable
// output of the external benchmark tools. Extraction is line-oriented
// pattern matching: output that does not match the known labels yields
// a partial or empty metric set rather than an error.
package parser

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// Metrics maps a metric name to its extracted numeric value.
type Metrics map[string]float64

var (
	threadsRe   = regexp.MustCompile(`Number of threads:\s*(\d+)`)
	eventsRe    = regexp.MustCompile(`events per second:\s*([\d.]+)`)
	totalTimeRe = regexp.MustCompile(`total time:\s*([\d.]+)s`)

	latencyAvgRe = regexp.MustCompile(`avg:\s*([\d.]+)`)
	latencyP95Re = regexp.MustCompile(`95th percentile:\s*([\d.]+)`)
	latencySumRe = regexp.MustCompile(`sum:\s*([\d.]+)`)

	memTransferRe = regexp.MustCompile(
		`MiB transferred \(([\d.]+) MiB/sec\)`,
	)
	memOpsRe = regexp.MustCompile(
		`Total operations: \d+ \(([\d.]+) per second\)`,
	)

	fileReadsRe  = regexp.MustCompile(`reads/s:\s*([\d.]+)`)
	fileWritesRe = regexp.MustCompile(`writes/s:\s*([\d.]+)`)
	fileFsyncsRe = regexp.MustCompile(`fsyncs/s:\s*([\d.]+)`)
	fileReadMBRe = regexp.MustCompile(`read, MiB/s:\s*([\d.]+)`)
	fileWritMBRe = regexp.MustCompile(`written, MiB/s:\s*([\d.]+)`)

	netSenderRe = regexp.MustCompile(
		`([\d.]+) Mbits/sec.*\bsender\b`,
	)
	netReceiverRe = regexp.MustCompile(
		`([\d.]+) Mbits/sec.*\breceiver\b`,
	)
)

type extraction struct {
	metric string
	re     *regexp.Regexp
}

// extract scans output line by line and records the first match for
// each pattern.
func extract(output string, patterns []extraction) Metrics {
	m := make(Metrics)

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()

		for _, p := range patterns {
			if _, seen := m[p.metric]; seen {
				continue
			}

			matches := p.re.FindStringSubmatch(line)
			if len(matches) < 2 {
				continue
			}

			v, err := strconv.ParseFloat(matches[1], 64)
			if err != nil {
				continue
			}

			m[p.metric] = v
		}
	}

	return m
}

// ParseCPU extracts metrics from sysbench cpu output.
func ParseCPU(output string) Metrics {
	return extract(output, []extraction{
		{"threads", threadsRe},
		{"events_per_second", eventsRe},
		{"total_time_s", totalTimeRe},
		{"latency_avg_ms", latencyAvgRe},
		{"latency_p95_ms", latencyP95Re},
	})
}

// ParseMemory extracts metrics from sysbench memory output.
func ParseMemory(output string) Metrics {
	return extract(output, []extraction{
		{"throughput_mib_s", memTransferRe},
		{"ops_per_second", memOpsRe},
		{"total_time_s", totalTimeRe},
		{"latency_sum_ms", latencySumRe},
	})
}

// ParseFileIO extracts metrics from sysbench fileio output.
func ParseFileIO(output string) Metrics {
	return extract(output, []extraction{
		{"reads_per_s", fileReadsRe},
		{"writes_per_s", fileWritesRe},
		{"fsyncs_per_s", fileFsyncsRe},
		{"read_mib_s", fileReadMBRe},
		{"write_mib_s", fileWritMBRe},
		{"latency_avg_ms", latencyAvgRe},
		{"latency_p95_ms", latencyP95Re},
	})
}

// ParseNetwork extracts the final sender/receiver bitrates from
// iperf3 client output (run with -f m so rates are in Mbits/sec).
// The last match wins so that the [SUM] line is preferred when the
// test runs parallel streams.
func ParseNetwork(output string) Metrics {
	m := make(Metrics)

	for _, p := range []extraction{
		{"sent_mbits_s", netSenderRe},
		{"received_mbits_s", netReceiverRe},
	} {
		matches := p.re.FindAllStringSubmatch(output, -1)
		if len(matches) == 0 {
			continue
		}

		last := matches[len(matches)-1]

		v, err := strconv.ParseFloat(last[1], 64)
		if err != nil {
			continue
		}

		m[p.metric] = v
	}

	return m
}
