package overlay

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Sample is one value a sink produced for a frame.
type Sample struct {
	Counter int
	Value   float64
}

// Series is the history of one sink.
type Series struct {
	Name    string
	Samples []Sample
}

// WriteReport renders an HTML page with one line chart holding every series
// against the frame counter, followed by a bar chart of sample counts.
func WriteReport(w io.Writer, title string, series []Series) error {
	counters := frameAxis(series)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("series=%d frames=%d", len(series), len(counters))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame", NameLocation: "middle", NameGap: 25}),
	)
	line.SetXAxis(counters)

	names := make([]string, len(series))
	sizes := make([]opts.BarData, len(series))
	for i, s := range series {
		byCounter := make(map[int]float64, len(s.Samples))
		for _, sm := range s.Samples {
			byCounter[sm.Counter] = sm.Value
		}
		data := make([]opts.LineData, len(counters))
		for j, c := range counters {
			if v, ok := byCounter[c]; ok {
				data[j] = opts.LineData{Value: v}
			} else {
				data[j] = opts.LineData{Value: "-"}
			}
		}
		line.AddSeries(s.Name, data, charts.WithLineChartOpts(opts.LineChart{ConnectNulls: opts.Bool(false)}))
		names[i] = s.Name
		sizes[i] = opts.BarData{Value: len(s.Samples)}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: "Samples per sink"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).
		AddSeries("samples", sizes,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.SetPageTitle(title)
	page.AddCharts(line, bar)
	return page.Render(w)
}

func frameAxis(series []Series) []int {
	seen := make(map[int]bool)
	var out []int
	for _, s := range series {
		for _, sm := range s.Samples {
			if !seen[sm.Counter] {
				seen[sm.Counter] = true
				out = append(out, sm.Counter)
			}
		}
	}
	sort.Ints(out)
	return out
}
