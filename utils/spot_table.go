package utils

import (
	"fmt"
	"sort"

	"github.com/elC0mpa/aws-spot/model"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
)

// RenderSpotRequestTable renders the outcome of a successful creation
func RenderSpotRequestTable(accountID string, info *model.SpotRequestInfo) string {
	tw := table.NewWriter()
	tw.SetTitle("Spot Instance")
	tw.AppendHeader(table.Row{"Account ID", "Request ID", "Instance ID", "Region", "Zone", "Bid Price"})
	tw.AppendRow(table.Row{
		text.FgBlue.Sprint(accountID),
		info.RequestID,
		text.FgHiGreen.Sprint(info.InstanceID),
		info.Region,
		info.AvailabilityZone,
		info.BidPrice.String(),
	})
	tw.SetStyle(table.StyleRounded)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{
			Number: 6,
			Align:  text.AlignRight,
		},
	})

	return tw.Render()
}

// RenderPriceHistoryTable lists the observed prices, marking the seed bid when one is given
func RenderPriceHistoryTable(instanceType, availabilityZone string, points []model.PricePoint, seed *decimal.Decimal) string {
	total := 0
	for _, point := range points {
		total += point.Count
	}

	tw := table.NewWriter()
	tw.SetTitle(fmt.Sprintf("Spot prices for %s in %s (24h)", instanceType, availabilityZone))
	tw.AppendHeader(table.Row{"Price", "Observations", "Share"})

	for i, point := range points {
		share := 0.0
		if total > 0 {
			share = float64(point.Count) / float64(total) * 100
		}

		price := point.Price.String()
		if i == 0 {
			price = text.FgHiGreen.Sprint(price)
		}

		tw.AppendRow(table.Row{price, point.Count, fmt.Sprintf("%.1f%%", share)})
	}

	tw.AppendSeparator()
	tw.AppendRow(table.Row{text.FgHiWhite.Sprint("Total"), total, ""})
	if seed != nil {
		tw.AppendRow(table.Row{text.FgHiYellow.Sprint("Initial bid"), text.FgHiYellow.Sprint(seed.String()), ""})
	}

	tw.SetStyle(table.StyleRounded)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{
			Number: 1,
			Align:  text.AlignRight,
		},
		{
			Number: 2,
			Align:  text.AlignRight,
		},
		{
			Number: 3,
			Align:  text.AlignRight,
		},
	})

	return tw.Render()
}

// RenderPropertiesTable lists the runtime properties of a node sorted by key
func RenderPropertiesTable(node string, properties map[string]string) string {
	keys := make([]string, 0, len(properties))
	for key := range properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	tw := table.NewWriter()
	tw.SetTitle(fmt.Sprintf("Runtime properties of %s", node))
	tw.AppendHeader(table.Row{"Key", "Value"})

	var rows []table.Row
	for _, key := range keys {
		rows = append(rows, table.Row{text.FgGreen.Sprint(key), properties[key]})
	}
	if len(rows) == 0 {
		rows = append(rows, table.Row{text.FgYellow.Sprint("(none)"), ""})
	}

	tw.AppendRows(rows)
	tw.SetStyle(table.StyleRounded)

	return tw.Render()
}
