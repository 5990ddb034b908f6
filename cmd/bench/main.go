package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/i5heu/GoByteQueue/internal/testbench"
	"github.com/i5heu/GoByteQueue/pkg/buffered"
	"github.com/i5heu/GoByteQueue/pkg/config"
	"github.com/i5heu/GoByteQueue/pkg/linkedqueue"
	"github.com/i5heu/GoByteQueue/pkg/ringqueue"
	"github.com/i5heu/GoByteQueue/pkg/spscring"
)

// BenchmarkResult holds results for one test run.
type BenchmarkResult struct {
	Implementation string  `json:"implementation"`
	NumProducers   int     `json:"num_producers"`
	NumConsumers   int     `json:"num_consumers"`
	ChunkSize      int     `json:"chunk_size"`
	Capacity       uint64  `json:"capacity"`
	BytesOffered   int64   `json:"bytes_offered"`
	BytesAppended  int64   `json:"bytes_appended"`
	BytesDrained   int64   `json:"bytes_drained"`
	TestDuration   string  `json:"test_duration"`  // e.g. "5s"
	ActualElapsed  string  `json:"actual_elapsed"` // measured time
	Throughput     float64 `json:"throughput_bytes_sec"`
	Timestamp      int64   `json:"timestamp"`
	GoVersion      string  `json:"go_version"`
}

// SystemInfo holds system information.
type SystemInfo struct {
	NumCPU            int     `json:"num_cpu"`
	TrueCPU           int     `json:"true_cpu,omitempty"`
	SimulatedCPUCount int     `json:"simulated_cpu_count,omitempty"`
	CPUModel          string  `json:"cpu_model,omitempty"`
	CPUSpeedMHz       float64 `json:"cpu_speed_mhz,omitempty"`
	GOARCH            string  `json:"go_arch"`
	TotalMemory       uint64  `json:"total_memory_bytes,omitempty"`
}

// FullReport represents a complete test session.
type FullReport struct {
	SessionTime string            `json:"session_time"`
	SystemInfo  SystemInfo        `json:"system_info"`
	Benchmarks  []BenchmarkResult `json:"benchmarks"`
}

type testQueueInterface = interface {
	Append([]byte) int
	DrainAll() ([]byte, int)
	Drain([]byte) int
	FreeSlots() uint64
	UsedSlots() uint64
	Capacity() uint64
	Destroy()
}

// Implementation describes one byte queue backend.
type Implementation struct {
	name        string
	description string
	pkgName     string
	authors     []string
	features    []string
	newQueue    func(capacity uint64) testQueueInterface
}

// safeFor reports whether impl may run under cfg.
func (impl Implementation) safeFor(cfg testbench.Config) bool {
	if cfg.NumProducers <= 1 && cfg.NumConsumers <= 1 {
		return true
	}
	return impl.hasFeature("MPMC")
}

func (impl Implementation) hasFeature(feature string) bool {
	for _, f := range impl.features {
		if f == feature {
			return true
		}
	}
	return false
}

// outputMarkdownTable loads the JSON file and outputs a Markdown table.
func outputMarkdownTable(jsonFile string) {
	data, err := os.ReadFile(jsonFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading JSON file %q: %v\n", jsonFile, err)
		os.Exit(1)
	}
	var sessions []FullReport
	if err := json.Unmarshal(data, &sessions); err != nil {
		fmt.Fprintf(os.Stderr, "Error unmarshalling JSON: %v\n", err)
		os.Exit(1)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "No sessions found in JSON.")
		os.Exit(1)
	}
	// Use the last session for the table.
	lastSession := sessions[len(sessions)-1]
	implMetaMap := make(map[string]Implementation)
	for _, impl := range getImplementations() {
		implMetaMap[impl.name] = impl
	}
	type tableRow struct {
		implementation string
		pkgName        string
		features       string
		chunk          int
		throughput     float64
	}
	var rows []tableRow
	for _, bench := range lastSession.Benchmarks {
		meta, ok := implMetaMap[bench.Implementation]
		var pkgName, features string
		if ok {
			pkgName = meta.pkgName
			features = strings.Join(meta.features, ", ")
		}
		rows = append(rows, tableRow{
			implementation: bench.Implementation,
			pkgName:        pkgName,
			features:       features,
			chunk:          bench.ChunkSize,
			throughput:     bench.Throughput,
		})
	}
	// Sort rows by throughput descending.
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].throughput > rows[j].throughput
	})
	fmt.Println("## Last Session Benchmark Summary")
	fmt.Println()
	fmt.Println("| Implementation           | Package         | Features                    | Chunk | Throughput (bytes/sec) |")
	fmt.Println("|--------------------------|-----------------|-----------------------------|-------|------------------------|")
	for _, r := range rows {
		fmt.Printf("| %-24s | %-15s | %-27s | %5d | %22.0f |\n",
			r.implementation, r.pkgName, r.features, r.chunk, r.throughput)
	}
}

func main() {
	// Flags.
	configPath := flag.String("config", "", "Optional TOML config; its [bench] section sets defaults")
	testIterations := flag.Int("iter", 0, "Number of test iterations per configuration (0 = from config)")
	cpuMaxFlag := flag.Int("cpu", 0, "If non-zero, test only that GOMAXPROCS value; if 0, test common CPU/vCPU values up to runtime.NumCPU()")
	jsonExport := flag.Bool("json", false, "Export results as JSON to test-results.json")
	markdownTable := flag.Bool("markdown-table", false, "Output markdown table from test-results.json and exit")
	jsonFileForMarkdown := flag.String("jsonfile", "test-results.json", "Path to JSON file for markdown table")
	progressFlag := flag.Bool("progress", false, "Display a progress bar with ETA")
	flag.Parse()

	if *markdownTable {
		outputMarkdownTable(*jsonFileForMarkdown)
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error loading config:", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	iterations := cfg.Bench.Iterations
	if *testIterations > 0 {
		iterations = *testIterations
	}
	testDuration := cfg.Bench.Duration.Duration

	trueCpuCount := runtime.NumCPU()
	var cpuSettings []int
	commonCPUs := []int{1, 2, 4, 8, 16, 32, 64}

	if *cpuMaxFlag > 0 {
		desired := *cpuMaxFlag
		if desired > trueCpuCount {
			desired = trueCpuCount
		}
		cpuSettings = []int{desired}
	} else {
		for _, v := range commonCPUs {
			if v <= trueCpuCount {
				cpuSettings = append(cpuSettings, v)
			}
		}
	}

	// One writer and one reader is the shape the device serves; the 4x4
	// run only applies to the mutex-guarded backends.
	var concurrencyConfigs []config.Concurrency
	for _, chunk := range cfg.Bench.ChunkSizes {
		concurrencyConfigs = append(concurrencyConfigs,
			config.Concurrency{NumProducers: 1, NumConsumers: 1, ChunkSize: chunk},
			config.Concurrency{NumProducers: 4, NumConsumers: 4, ChunkSize: chunk},
		)
	}

	impls := getImplementations()
	totalTests := 0
	for range cpuSettings {
		for _, cc := range concurrencyConfigs {
			for _, impl := range impls {
				if impl.safeFor(cc) {
					totalTests += iterations
				}
			}
		}
	}

	var bar *progressbar.ProgressBar
	if *progressFlag {
		bar = progressbar.NewOptions(totalTests,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Progress"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionClearOnFinish(),
		)
	}

	var allSessions []FullReport

	// Iterate over the desired GOMAXPROCS settings.
	for _, cpus := range cpuSettings {
		runtime.GOMAXPROCS(cpus)
		sysInfo := gatherSystemInfo()
		sysInfo.NumCPU = cpus
		sysInfo.TrueCPU = trueCpuCount
		sysInfo.SimulatedCPUCount = cpus

		fmt.Printf("\n=============================\n")
		fmt.Printf("GOMAXPROCS = %d\n", cpus)
		fmt.Printf("=============================\n")

		var results []BenchmarkResult

		for _, cc := range concurrencyConfigs {
			fmt.Printf("  [producers=%d, consumers=%d, chunk=%d]\n", cc.NumProducers, cc.NumConsumers, cc.ChunkSize)
			for iteration := 1; iteration <= iterations; iteration++ {
				fmt.Printf("    iteration %d/%d\n", iteration, iterations)
				for _, impl := range impls {
					if !impl.safeFor(cc) {
						continue
					}
					runtime.GC()
					q := impl.newQueue(cfg.Bench.Capacity)
					time.Sleep(250 * time.Millisecond)

					res := testbench.RunTimedTest(q, cc, testDuration)
					q.Destroy()
					throughput := float64(res.BytesDrained) / res.Elapsed.Seconds()

					if bar != nil {
						bar.Clear()
					}
					fmt.Printf("    %s => appended=%d/%d, drained=%d, throughput=%.0f B/s, took=%v\n",
						impl.name, res.BytesAppended, res.BytesOffered, res.BytesDrained, throughput, res.Elapsed)
					if bar != nil {
						bar.Add(1)
					}

					results = append(results, BenchmarkResult{
						Implementation: impl.name,
						NumProducers:   cc.NumProducers,
						NumConsumers:   cc.NumConsumers,
						ChunkSize:      cc.ChunkSize,
						Capacity:       cfg.Bench.Capacity,
						BytesOffered:   res.BytesOffered,
						BytesAppended:  res.BytesAppended,
						BytesDrained:   res.BytesDrained,
						TestDuration:   testDuration.String(),
						ActualElapsed:  res.Elapsed.String(),
						Throughput:     throughput,
						Timestamp:      time.Now().Unix(),
						GoVersion:      runtime.Version(),
					})
				}
			}
		}

		allSessions = append(allSessions, FullReport{
			SessionTime: time.Now().Format(time.RFC3339),
			SystemInfo:  sysInfo,
			Benchmarks:  results,
		})
	}

	if bar != nil {
		bar.Finish()
	}

	// If JSON export is requested, append the new sessions to test-results.json.
	if *jsonExport {
		const filename = "test-results.json"
		var previous []FullReport
		if data, err := os.ReadFile(filename); err == nil && len(data) > 0 {
			if err := json.Unmarshal(data, &previous); err != nil {
				fmt.Fprintf(os.Stderr, "Ignoring unreadable %s: %v\n", filename, err)
				previous = nil
			}
		}
		updated := append(previous, allSessions...)
		data, err := json.MarshalIndent(updated, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error marshalling JSON:", err)
			os.Exit(1)
		}
		if err = os.WriteFile(filename, data, 0644); err != nil {
			fmt.Fprintln(os.Stderr, "Error writing JSON file:", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote results to %s\n", filename)
	}
}

// gatherSystemInfo collects basic CPU and memory details.
func gatherSystemInfo() SystemInfo {
	var cpuModel string
	var cpuSpeed float64
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		cpuModel = infos[0].ModelName
		cpuSpeed = infos[0].Mhz
	}

	var totalMemory uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		totalMemory = vm.Total
	}

	return SystemInfo{
		NumCPU:      runtime.NumCPU(),
		CPUModel:    cpuModel,
		CPUSpeedMHz: cpuSpeed,
		GOARCH:      runtime.GOARCH,
		TotalMemory: totalMemory,
	}
}

// getImplementations enumerates our different byte queue backends.
func getImplementations() []Implementation {
	return []Implementation{
		{
			name:        "LinkedQueue",
			pkgName:     "linkedqueue",
			description: "One heap node per byte behind a mutex, the layout of the original character device.",
			authors:     []string{"Mia Heidenstedt <heidenstedt.org>"},
			features:    []string{"MPMC", "FIFO", "Bounded"},
			newQueue: func(capacity uint64) testQueueInterface {
				return linkedqueue.New(capacity)
			},
		},
		{
			name:        "RingQueue",
			pkgName:     "ringqueue",
			description: "Fixed byte ring behind a mutex.",
			authors:     []string{"Mia Heidenstedt <heidenstedt.org>"},
			features:    []string{"MPMC", "FIFO", "Bounded"},
			newQueue: func(capacity uint64) testQueueInterface {
				return ringqueue.New(capacity)
			},
		},
		{
			name:        "SPSCRing",
			pkgName:     "spscring",
			description: "Lock-free byte ring for exactly one writer and one reader.",
			authors:     []string{"Mia Heidenstedt <heidenstedt.org>"},
			features:    []string{"SPSC", "FIFO", "Bounded"},
			newQueue: func(capacity uint64) testQueueInterface {
				return spscring.New(capacity)
			},
		},
		{
			name:        "Golang Buffered Channel",
			pkgName:     "buffered",
			description: "A chan byte with non-blocking send and receive.",
			authors:     []string{"Mia Heidenstedt <heidenstedt.org>"},
			features:    []string{"MPMC", "FIFO", "Bounded"},
			newQueue: func(capacity uint64) testQueueInterface {
				return buffered.New(capacity)
			},
		},
	}
}
