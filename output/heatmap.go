package output

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/ChristianF88/cidrfold/cidr"
)

// CoverageBy16 counts how many addresses of every A.B.0.0/16 the ranges cover.
// Overlapping ranges are counted twice; consolidated input has none.
func CoverageBy16(ranges []cidr.AddressRange) *[256][256]uint32 {
	var counts [256][256]uint32
	for _, r := range ranges {
		if r.PrefixLen >= 16 {
			counts[r.IP>>24][(r.IP>>16)&0xFF] += uint32(r.Size())
			continue
		}
		// Spans whole /16s
		first := r.IP >> 16
		last := r.End() >> 16
		for n := first; ; n++ {
			counts[n>>8][n&0xFF] += 1 << 16
			if n == last {
				break
			}
		}
	}
	return &counts
}

// PlotHeatmap creates an interactive heatmap of address coverage per /16
// range (A.B.0.0/16)
func PlotHeatmap(ranges []cidr.AddressRange, filename string) error {
	counts := CoverageBy16(ranges)

	// Prepare data with hover info
	var heatmapData []opts.HeatMapData
	var maxCount uint32
	for x := 0; x <= 255; x++ {
		for y := 0; y <= 255; y++ {
			count := counts[x][y]
			if count > maxCount {
				maxCount = count
			}
			if count > 0 {
				label := fmt.Sprintf("%d.%d.0.0/16", x, y)
				heatmapData = append(heatmapData, opts.HeatMapData{
					Value: [3]interface{}{x, y, count},
					Name:  label, // This appears in tooltip via {b}
				})
			}
		}
	}

	// Create heatmap chart
	heatmap := charts.NewHeatMap()
	heatmap.SetGlobalOptions(

		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       "Coverage /16 Heatmap",
			Width:           "180vh",
			Height:          "100vh",
			Theme:           types.ThemeVintage,
			BackgroundColor: "transparent",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Covered Addresses by /16 Range (A.B.0.0/16)",
			Left:  "center",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Trigger: "item",
			Formatter: opts.FuncOpts(`function (params) {
		return params.name + '<br />Addresses: ' + params.value[2];
	}`),
		}),

		charts.WithVisualMapOpts(opts.VisualMap{
			Show: opts.Bool(true),
			Min:  0,
			Max:  float32(maxCount),
			InRange: &opts.VisualMapInRange{
				Color: []string{"#ffff8f", "#ff0000", "#000000"},
			},
			Orient: "vertical",
			Right:  "5%",
			Top:    "middle",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:        "A (First Octet)",
			Type:        "category",
			Data:        makeRange(0, 255),
			SplitNumber: 16,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:        "B (Second Octet)",
			Type:        "category",
			Data:        makeRange(0, 255),
			SplitNumber: 16,
		}),
	)

	heatmap.AddSeries("Heatmap", heatmapData)

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(heatmap)

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create heatmap file %s: %w", filename, err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return fmt.Errorf("rendering heatmap: %w", err)
	}

	log.Info("Heatmap saved", "path", filename)
	return nil
}

// makeRange creates an integer slice [min..max]
func makeRange(min, max int) []int {
	r := make([]int, max-min+1)
	for i := range r {
		r[i] = min + i
	}
	return r
}
