package presenter

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"SectorFlow/internal/domain/models"
	"SectorFlow/pkg/util"
)

const (
	DashboardTitle = "S&P 500 Sector Money Flow"
	ValuesNote     = "Values shown: Percentage Change (%) and Absolute Change ($M)"

	ColorGain = "green"
	ColorLoss = "red"
)

// Bar is one horizontal bar of a sector chart.
type Bar struct {
	Sector            string  `json:"sector"`
	PctChange         float64 `json:"pct_change"`
	AbsChangeMillions float64 `json:"abs_change_millions"`
	Label             string  `json:"label"`
	Color             string  `json:"color"`
}

// Figure is the chart for one window.
type Figure struct {
	Window     models.Window `json:"window"`
	Title      string        `json:"title"`
	XAxisTitle string        `json:"x_axis_title"`
	YAxisTitle string        `json:"y_axis_title"`
	Bars       []Bar         `json:"bars"`
}

// Dashboard is everything a renderer needs for one published result.
type Dashboard struct {
	Title       string   `json:"title"`
	LastUpdated string   `json:"last_updated"`
	Note        string   `json:"note"`
	Figures     []Figure `json:"figures"`
}

// BarLabel formats the text drawn on a bar.
func BarLabel(pct, absMillions float64) string {
	return fmt.Sprintf("%.2f%%\n$%.1fM", pct, absMillions)
}

// BarColor is green for gains and red otherwise, zero included.
func BarColor(pct float64) string {
	if pct > 0 {
		return ColorGain
	}
	return ColorLoss
}

// BuildFigures turns a result into one figure per window with bars sorted
// ascending by percentage change. The timestamp is the result's generation
// time rendered in loc. A nil result yields figures without bars.
func BuildFigures(r *models.AggregationResult, loc *time.Location) Dashboard {
	if loc == nil {
		loc = time.UTC
	}
	d := Dashboard{Title: DashboardTitle, Note: ValuesNote}
	if r != nil && !r.GeneratedAt.IsZero() {
		d.LastUpdated = r.GeneratedAt.In(loc).Format(util.DisplayLayout)
	}

	for _, w := range models.Windows() {
		var rows []models.SectorAggregate
		if r != nil {
			rows = SortRows(r.Rows(w), SortAsc)
		}
		bars := make([]Bar, 0, len(rows))
		for _, row := range rows {
			bars = append(bars, Bar{
				Sector:            row.Sector,
				PctChange:         row.PctChange,
				AbsChangeMillions: row.AbsChangeMillions,
				Label:             BarLabel(row.PctChange, row.AbsChangeMillions),
				Color:             BarColor(row.PctChange),
			})
		}
		d.Figures = append(d.Figures, Figure{
			Window:     w,
			Title:      w.Title(),
			XAxisTitle: "% Change",
			YAxisTitle: "Sector",
			Bars:       bars,
		})
	}
	return d
}

const (
	SortAsc  = "asc"
	SortDesc = "desc"
	SortNone = "none"
)

// SortRows returns a copy of rows ordered by percentage change. Ties keep
// their input order. Any order other than asc or desc leaves rows as given.
func SortRows(rows []models.SectorAggregate, order string) []models.SectorAggregate {
	out := make([]models.SectorAggregate, len(rows))
	copy(out, rows)
	switch order {
	case SortAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].PctChange < out[j].PctChange })
	case SortDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].PctChange > out[j].PctChange })
	}
	return out
}

// WriteTable prints each figure as an aligned text table.
func WriteTable(w io.Writer, d Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s\n", d.Title)
	if d.LastUpdated != "" {
		fmt.Fprintf(tw, "Last Updated: %s\n", d.LastUpdated)
	}
	for _, f := range d.Figures {
		fmt.Fprintf(tw, "\n%s\n", f.Title)
		fmt.Fprintln(tw, "Sector\tChange (%)\tAbsolute Change ($M)\t")
		if len(f.Bars) == 0 {
			fmt.Fprintln(tw, "(no data)\t\t\t")
			continue
		}
		for _, b := range f.Bars {
			fmt.Fprintf(tw, "%s\t%.2f\t%.1f\t\n", b.Sector, b.PctChange, b.AbsChangeMillions)
		}
	}
	fmt.Fprintln(tw, "\n"+strings.TrimSpace(d.Note))
	return tw.Flush()
}
