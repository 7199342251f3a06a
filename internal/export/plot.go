package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// dayLayout buckets event timestamps per calendar day.
const dayLayout = "2006-01-02"

// WriteTimelinePage renders an HTML page with a bar chart of events per day.
func WriteTimelinePage(report *Report, w io.Writer) error {
	labels, counts := bucketEventsPerDay(report.Events)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Events over time",
			Subtitle: fmt.Sprintf("%d events", len(report.Events)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Day"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Events"}),
	)

	data := make([]opts.BarData, len(counts))
	for i, count := range counts {
		data[i] = opts.BarData{Value: count}
	}

	bar.SetXAxis(labels)
	bar.AddSeries("Events", data)

	err := bar.Render(w)
	if err != nil {
		return fmt.Errorf("render timeline page: %w", err)
	}

	return nil
}

// bucketEventsPerDay returns per-day labels and counts, sorted by day.
func bucketEventsPerDay(events []EventRow) ([]string, []int) {
	perDay := make(map[string]int)

	for _, event := range events {
		perDay[event.Timestamp.UTC().Format(dayLayout)]++
	}

	days := make([]string, 0, len(perDay))
	for day := range perDay {
		days = append(days, day)
	}

	sort.Strings(days)

	counts := make([]int, len(days))
	for i, day := range days {
		counts[i] = perDay[day]
	}

	return days, counts
}
