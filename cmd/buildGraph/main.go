package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// BenchmarkResult holds the fields of one cmd/bench result this tool reads.
type BenchmarkResult struct {
	Implementation string  `json:"implementation"`
	NumProducers   int     `json:"num_producers"`
	NumConsumers   int     `json:"num_consumers"`
	ChunkSize      int     `json:"chunk_size"`
	BytesDrained   int64   `json:"bytes_drained"`
	ActualElapsed  string  `json:"actual_elapsed"`
	Throughput     float64 `json:"throughput_bytes_sec"`
}

// SystemInfo holds system information.
type SystemInfo struct {
	NumCPU            int `json:"num_cpu"`
	SimulatedCPUCount int `json:"simulated_cpu_count,omitempty"`
}

// FullReport represents a complete test session.
type FullReport struct {
	SessionTime string            `json:"session_time"`
	SystemInfo  SystemInfo        `json:"system_info"`
	Benchmarks  []BenchmarkResult `json:"benchmarks"`
}

// chunkStats holds "5%-avg-min", median, and "5%-avg-max" for each chunk size.
type chunkStats struct {
	x      float64 // replaced with category index
	orig   float64 // original chunk size
	min    float64 // "average of bottom 5%"
	median float64
	max    float64 // "average of top 5%"
}

// statsPoints implements XYer and YErrorer for chunkStats, so we can plot lines + error bars.
type statsPoints []chunkStats

func (s statsPoints) Len() int                { return len(s) }
func (s statsPoints) XY(i int) (x, y float64) { return s[i].x, s[i].median }
func (s statsPoints) YError(i int) (low, high float64) {
	low = s[i].median - s[i].min
	high = s[i].max - s[i].median
	return low, high
}

// categoryTicks implements a categorical X-axis: 0,1,2,... => labels for chunk sizes.
type categoryTicks struct {
	positions []float64
	labels    []string
}

func (ct categoryTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for i, pos := range ct.positions {
		if pos >= min && pos <= max {
			ticks = append(ticks, plot.Tick{Value: pos, Label: ct.labels[i]})
		}
	}
	return ticks
}

// nsTicks labels a log axis in ns/µs/ms.
type nsTicks struct{}

func (nsTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.LogTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = formatNs(ticks[i].Value)
		}
	}
	return ticks
}

// seriesName is one line on a graph: backend plus its producer/consumer shape.
func seriesName(b BenchmarkResult) string {
	return fmt.Sprintf("%s %dx%d", b.Implementation, b.NumProducers, b.NumConsumers)
}

func main() {
	jsonFile := flag.String("jsonfile", "test-results.json", "Path to JSON file containing test sessions")
	outputPrefix := flag.String("out", "benchmark_graph", "Output graph image filename prefix")
	flag.Parse()

	data, err := os.ReadFile(*jsonFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading JSON file: %v\n", err)
		os.Exit(1)
	}

	var sessions []FullReport
	if err := json.Unmarshal(data, &sessions); err != nil {
		fmt.Fprintf(os.Stderr, "Error unmarshalling JSON: %v\n", err)
		os.Exit(1)
	}

	pointsByCPU := groupByCPU(sessions)

	// For each CPU group, produce a plot.
	for cpus, seriesMap := range pointsByCPU {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("Byte queue cost (5%%-avg-min / Median / 5%%-avg-max) vs. chunk size for %d CPU(s)", cpus)
		p.X.Label.Text = "Chunk size (bytes per Append/Drain)"
		p.Y.Label.Text = "Time per byte [log scale]"
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = nsTicks{}

		// Dark theme.
		p.BackgroundColor = color.RGBA{R: 30, G: 30, B: 30, A: 255}
		white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
		p.Title.TextStyle.Color = white
		p.X.Label.TextStyle.Color = white
		p.Y.Label.TextStyle.Color = white
		p.X.Color = white
		p.Y.Color = white
		p.X.Tick.Label.Color = white
		p.Y.Tick.Label.Color = white
		p.Legend.Top = true
		p.Legend.Left = true
		p.Legend.TextStyle.Color = white

		p.Add(plotter.NewGrid())

		// Build union of chunk sizes for this CPU group.
		chunkSet := make(map[float64]struct{})
		for _, series := range seriesMap {
			for chunk := range series {
				chunkSet[chunk] = struct{}{}
			}
		}
		var chunkValues []float64
		for val := range chunkSet {
			chunkValues = append(chunkValues, val)
		}
		sort.Float64s(chunkValues)

		chunkMapping := make(map[float64]float64)
		var positions []float64
		var labels []string
		for i, val := range chunkValues {
			chunkMapping[val] = float64(i)
			positions = append(positions, float64(i))
			labels = append(labels, strconv.FormatFloat(val, 'f', -1, 64))
		}
		p.X.Tick.Marker = categoryTicks{positions: positions, labels: labels}

		// Sort series alphabetically for consistent legend ordering.
		var names []string
		for name := range seriesMap {
			names = append(names, name)
		}
		sort.Strings(names)

		colors := plotutil.SoftColors
		shapes := []draw.GlyphDrawer{
			draw.CircleGlyph{},
			draw.SquareGlyph{},
			draw.TriangleGlyph{},
			draw.CrossGlyph{},
			draw.PlusGlyph{},
		}

		// Slight offset so each series is visually separated.
		offsetRange := 0.4
		offsetStep := offsetRange / float64(len(names))
		startOffset := -offsetRange/2 + offsetStep/2

		for i, name := range names {
			stats := buildStats(seriesMap[name])
			if len(stats) == 0 {
				continue
			}
			for j := range stats {
				stats[j].x = chunkMapping[stats[j].orig] + startOffset + float64(i)*offsetStep
			}
			sort.Slice(stats, func(a, b int) bool {
				return stats[a].x < stats[b].x
			})
			sp := statsPoints(stats)

			line, err := plotter.NewLine(sp)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating line: %v\n", err)
				continue
			}
			line.Color = colors[i%len(colors)]

			points, err := plotter.NewScatter(sp)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating scatter: %v\n", err)
				continue
			}
			points.GlyphStyle.Radius = vg.Points(5)
			points.Color = colors[i%len(colors)]
			points.Shape = shapes[i%len(shapes)]

			yErrBars, err := plotter.NewYErrorBars(sp)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating error bars: %v\n", err)
				continue
			}
			yErrBars.Color = colors[i%len(colors)]

			p.Add(line, points, yErrBars)
			p.Legend.Add(name, line, points)
		}

		filename := fmt.Sprintf("%s_%d.png", *outputPrefix, cpus)
		if err := p.Save(12*vg.Inch, 9*vg.Inch, filename); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving plot for %d CPU(s): %v\n", cpus, err)
			continue
		}
		fmt.Printf("Graph for %d CPU(s) saved to %s\n", cpus, filename)
	}
}

// groupByCPU maps CPU count -> series -> chunk size -> ns/byte samples.
func groupByCPU(sessions []FullReport) map[int]map[string]map[float64][]float64 {
	pointsByCPU := make(map[int]map[string]map[float64][]float64)
	for _, session := range sessions {
		cpus := session.SystemInfo.SimulatedCPUCount
		if cpus == 0 {
			cpus = session.SystemInfo.NumCPU
		}
		if _, ok := pointsByCPU[cpus]; !ok {
			pointsByCPU[cpus] = make(map[string]map[float64][]float64)
		}
		for _, b := range session.Benchmarks {
			dur, err := time.ParseDuration(b.ActualElapsed)
			if err != nil || b.BytesDrained == 0 {
				continue
			}
			nsPerByte := float64(dur.Nanoseconds()) / float64(b.BytesDrained)

			seriesMap := pointsByCPU[cpus]
			name := seriesName(b)
			if _, ok := seriesMap[name]; !ok {
				seriesMap[name] = make(map[float64][]float64)
			}
			x := float64(b.ChunkSize)
			seriesMap[name][x] = append(seriesMap[name][x], nsPerByte)
		}
	}
	return pointsByCPU
}

// buildStats computes "average of bottom 5%", median, and "average of top 5%".
func buildStats(chunkMap map[float64][]float64) []chunkStats {
	var out []chunkStats
	for x, vals := range chunkMap {
		if len(vals) == 0 {
			continue
		}
		sort.Float64s(vals)
		out = append(out, chunkStats{
			x:      x,
			orig:   x,
			min:    averageOfRange(vals, 0.0, 0.05),
			median: median(vals),
			max:    averageOfRange(vals, 0.95, 1.0),
		})
	}
	return out
}

// averageOfRange returns the average of sortedVals in [startFrac, endFrac] of its length.
// E.g. averageOfRange(vals, 0, 0.05) is the average of the bottom 5%.
func averageOfRange(sortedVals []float64, startFrac, endFrac float64) float64 {
	n := len(sortedVals)
	if n == 0 {
		return 0
	}
	startIndex := int(float64(n) * startFrac)
	endIndex := int(math.Ceil(float64(n) * endFrac))
	if endIndex > n {
		endIndex = n
	}
	if startIndex >= endIndex {
		// fallback to median if 5% slice is too small
		return median(sortedVals)
	}
	sum := 0.0
	for i := startIndex; i < endIndex; i++ {
		sum += sortedVals[i]
	}
	return sum / float64(endIndex-startIndex)
}

func median(sorted []float64) float64 {
	n := len(sorted)
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return 0.5 * (sorted[mid-1] + sorted[mid])
}

// formatNs nicely formats a nanoseconds value in ns, µs, ms, or s.
func formatNs(ns float64) string {
	switch {
	case ns < 10:
		return fmt.Sprintf("%.2fns", ns)
	case ns < 1e3:
		return fmt.Sprintf("%.0fns", ns)
	case ns < 1e6:
		return fmt.Sprintf("%.1fµs", ns/1e3)
	case ns < 1e9:
		return fmt.Sprintf("%.1fms", ns/1e6)
	default:
		return fmt.Sprintf("%.2fs", ns/1e9)
	}
}
