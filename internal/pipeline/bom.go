package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"edicanon/internal"
	"edicanon/internal/util"
)

const (
	bomFieldSep       = "|"
	bomComponentSep   = ";"
	bomWrapperKey     = "BOM"
	bomComponentChild = "Component"
)

// ExpandBOM detects and decodes a prepack bill-of-materials on a line item
// node. Returns nil when the item carries no BOM, which is the plain
// line-item case.
func ExpandBOM(item map[string]any, parentLineKey string) *internal.BOMComposition {
	nodes := ChildNodes(item, bomWrapperKey, bomComponentChild)
	if len(nodes) == 0 {
		return nil
	}

	components := make([]internal.BOMComponent, 0, len(nodes))
	for _, node := range nodes {
		comp := internal.BOMComponent{
			Style: stringField(node, "ComponentStyle"),
			Color: stringField(node, "ComponentColor"),
			Size:  stringField(node, "ComponentSize"),
			UPC:   stringField(node, "ComponentGTIN"),
			SKU:   stringField(node, "ComponentSKU"),
		}
		qty, ok := util.ParseQuantity(stringField(node, "QuantityPerPack"))
		if !ok {
			continue
		}
		comp.Quantity = qty
		components = append(components, comp)
	}
	if len(components) == 0 {
		return nil
	}

	return &internal.BOMComposition{
		ParentLineKey: parentLineKey,
		Components:    components,
		Signature:     CompositionSignature(components),
	}
}

// CompositionSignature renders a component list as a deterministic string:
// components sorted by (style, size), each written style|color|size|qty,
// joined with ";". Two BOMs with the same composition produce the same
// signature regardless of source order.
func CompositionSignature(components []internal.BOMComponent) string {
	sorted := make([]internal.BOMComponent, len(components))
	copy(sorted, components)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Style != sorted[j].Style {
			return sorted[i].Style < sorted[j].Style
		}
		return sorted[i].Size < sorted[j].Size
	})

	parts := make([]string, 0, len(sorted))
	for _, c := range sorted {
		parts = append(parts, strings.Join([]string{
			c.Style, c.Color, c.Size, fmt.Sprintf("%d", c.Quantity),
		}, bomFieldSep))
	}
	return strings.Join(parts, bomComponentSep)
}

// DedupeCompositions keeps one representative per distinct signature within
// one purchase order, first encountered wins. Members of a signature group
// are structurally identical by construction, so the tie-break is arbitrary.
func DedupeCompositions(compositions []internal.BOMComposition) []internal.BOMComposition {
	seen := map[string]struct{}{}
	out := make([]internal.BOMComposition, 0, len(compositions))
	for _, comp := range compositions {
		if _, exists := seen[comp.Signature]; exists {
			continue
		}
		seen[comp.Signature] = struct{}{}
		out = append(out, comp)
	}
	return out
}

// PackUnits is the total number of underlying units in one prepack.
func PackUnits(components []internal.BOMComponent) int {
	total := 0
	for _, c := range components {
		total += c.Quantity
	}
	return total
}
