package utils

import (
	"fmt"
	"io"
	"sort"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
	"github.com/elC0mpa/aws-spot/model"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	ColorRank1 = "#1a9850"
	ColorRank2 = "#66c2a5"
	ColorRank3 = "#abdda4"
	ColorRank4 = "#fee08b"
	ColorRank5 = "#f46d43"
	ColorRank6 = "#d73027"
)

// maxBars keeps the chart readable on a terminal
const maxBars = 12

var defaultStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("#F4D060"))

// DrawPriceChart renders how often each of the cheapest prices was observed
func DrawPriceChart(w io.Writer, instanceType, availabilityZone string, points []model.PricePoint) {
	fmt.Fprintf(w, "\n%s\n", text.FgHiWhite.Sprint(" 📈  SPOT PRICE DISTRIBUTION"))
	fmt.Fprintf(w, " Instance type: %s  Zone: %s\n", text.FgBlue.Sprint(instanceType), text.FgBlue.Sprint(availabilityZone))
	fmt.Fprintln(w, text.FgHiBlue.Sprint(" ------------------------------------------------"))

	bc := barchart.New(130, 20)
	for _, data := range priceBars(points) {
		bc.Push(data)
	}

	fmt.Fprintln(w)
	bc.Draw()
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, defaultStyle.Render(bc.View())))
}

func priceBars(points []model.PricePoint) []barchart.BarData {
	if len(points) > maxBars {
		points = points[:maxBars]
	}

	colors := assignRankedColors(points)

	bars := make([]barchart.BarData, 0, len(points))
	for idx, point := range points {
		bars = append(bars, barchart.BarData{
			Label: point.Price.String(),
			Values: []barchart.BarValue{
				{
					Value: float64(point.Count),
					Style: lipgloss.NewStyle().Foreground(lipgloss.Color(colors[idx])),
				},
			},
		})
	}

	return bars
}

// assignRankedColors colors the most observed prices first
func assignRankedColors(points []model.PricePoint) []string {
	palette := []string{ColorRank1, ColorRank2, ColorRank3, ColorRank4, ColorRank5, ColorRank6}

	type countWithIndex struct {
		index int
		count int
	}

	countsToSort := make([]countWithIndex, len(points))
	for i, point := range points {
		countsToSort[i] = countWithIndex{
			index: i,
			count: point.Count,
		}
	}

	sort.SliceStable(countsToSort, func(i, j int) bool {
		return countsToSort[i].count > countsToSort[j].count
	})

	resultColors := make([]string, len(points))
	for rank, sorted := range countsToSort {
		if rank < len(palette) {
			resultColors[sorted.index] = palette[rank]
		} else {
			resultColors[sorted.index] = palette[len(palette)-1]
		}
	}

	return resultColors
}
