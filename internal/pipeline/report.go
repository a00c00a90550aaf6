package pipeline

import (
	"sort"

	"edicanon/internal"
)

// Report projections are group-and-sum views over one purchase order's
// canonical output. Every view carries the header's version, retrieved once
// via the sourceRecordId join key rather than recomputed per view.

type StyleColorRow struct {
	Style string
	Color string
	Qty   int
}

type StoreRow struct {
	StoreNumber string
	Qty         int
}

type StyleColorSizeRow struct {
	Style string
	Color string
	Size  string
	Qty   int
}

type PrePackSummaryRow struct {
	ParentLineKey string
	Signature     string
	PackUnits     int
	Components    []internal.BOMComponent
}

type Report struct {
	Header         internal.CanonicalHeader
	StyleColor     []StyleColorRow
	Store          []StoreRow
	StyleColorSize []StyleColorSizeRow
	PrePackSummary []PrePackSummaryRow
}

func BuildReport(header internal.CanonicalHeader, items []internal.CanonicalLineItem, compositions []internal.BOMComposition) Report {
	report := Report{Header: header}

	styleColor := map[[2]string]int{}
	store := map[string]int{}
	styleColorSize := map[[3]string]int{}
	for _, item := range items {
		styleColor[[2]string{item.Style, item.Color}] += item.Qty
		store[item.StoreNumber] += item.Qty
		styleColorSize[[3]string{item.Style, item.Color, item.Size}] += item.Qty
	}

	for key, qty := range styleColor {
		report.StyleColor = append(report.StyleColor, StyleColorRow{Style: key[0], Color: key[1], Qty: qty})
	}
	sort.Slice(report.StyleColor, func(i, j int) bool {
		if report.StyleColor[i].Style != report.StyleColor[j].Style {
			return report.StyleColor[i].Style < report.StyleColor[j].Style
		}
		return report.StyleColor[i].Color < report.StyleColor[j].Color
	})

	for key, qty := range store {
		report.Store = append(report.Store, StoreRow{StoreNumber: key, Qty: qty})
	}
	sort.Slice(report.Store, func(i, j int) bool {
		return report.Store[i].StoreNumber < report.Store[j].StoreNumber
	})

	for key, qty := range styleColorSize {
		report.StyleColorSize = append(report.StyleColorSize, StyleColorSizeRow{Style: key[0], Color: key[1], Size: key[2], Qty: qty})
	}
	sort.Slice(report.StyleColorSize, func(i, j int) bool {
		a, b := report.StyleColorSize[i], report.StyleColorSize[j]
		if a.Style != b.Style {
			return a.Style < b.Style
		}
		if a.Color != b.Color {
			return a.Color < b.Color
		}
		return a.Size < b.Size
	})

	// Compositions are already one representative per distinct signature.
	for _, comp := range compositions {
		report.PrePackSummary = append(report.PrePackSummary, PrePackSummaryRow{
			ParentLineKey: comp.ParentLineKey,
			Signature:     comp.Signature,
			PackUnits:     PackUnits(comp.Components),
			Components:    comp.Components,
		})
	}

	return report
}
