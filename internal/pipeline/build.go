package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"edicanon/internal"
	"edicanon/internal/util"
)

// ErrRejected marks a terminal per-record failure: the document cannot be
// parsed or is missing mandatory header fields. Rejected records produce no
// canonical output and are never retried automatically.
var ErrRejected = errors.New("record rejected")

// CatalogLookup is the Product Catalog collaborator. Any failure is treated
// as "not found" so resolution can fall through to the next rule source.
type CatalogLookup interface {
	Lookup(companyID, productID string) (color, size string, ok bool)
}

type Builder struct {
	rules   *RuleSet
	catalog CatalogLookup
	log     *zap.Logger
}

func NewBuilder(rules *RuleSet, catalog CatalogLookup, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{rules: rules, catalog: catalog, log: log}
}

type BuildResult struct {
	Header       internal.CanonicalHeader
	Items        []internal.CanonicalLineItem
	Compositions []internal.BOMComposition

	DroppedAllocations int
	DanglingStores     int
}

// Build turns one source document into a canonical header plus line items.
// The version on the returned header is zero; assignment happens when the
// result is persisted.
func (b *Builder) Build(record internal.SourceRecord, payload []byte) (*BuildResult, error) {
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrRejected, err)
	}

	headerNodes := Nodes(doc["Header"])
	if len(headerNodes) == 0 {
		return nil, fmt.Errorf("%w: missing Header node", ErrRejected)
	}
	headerNode := headerNodes[0]

	customerPO := stringField(headerNode, "PurchaseOrderNumber")
	company := util.FirstNonEmpty(stringField(headerNode, "CompanyCode"), record.CompanyCode)
	if customerPO == "" || company == "" {
		return nil, fmt.Errorf("%w: missing PO number or company code", ErrRejected)
	}

	poType := util.FirstNonEmpty(stringField(headerNode, "POType"), record.PartnerOrderType)
	rule := b.rules.Lookup(company, poType)

	result := &BuildResult{
		Header: internal.CanonicalHeader{
			SourceRecordID:    record.ID,
			Company:           company,
			CustomerPO:        customerPO,
			POType:            poType,
			DownloadDate:      dateOf(record.DownloadTimestamp),
			DownloadTimestamp: record.DownloadTimestamp,
		},
	}

	for _, item := range ChildNodes(doc, "LineItems", "LineItem") {
		b.buildLine(result, rule, company, item)
	}

	result.Compositions = DedupeCompositions(result.Compositions)
	return result, nil
}

func (b *Builder) buildLine(result *BuildResult, rule Rule, company string, item map[string]any) {
	upc := stringField(item, rule.UPCField)
	lineKey := stringField(item, "LineSequence") + "|" + upc

	composition := ExpandBOM(item, lineKey)
	fields := b.resolveFields(rule, company, item, composition, upc)
	allocations := b.decodeAllocations(result, rule, item, lineKey)

	if composition == nil {
		for _, alloc := range allocations {
			if alloc.Qty <= 0 {
				result.DroppedAllocations++
				continue
			}
			line := fields.lineItem(item, rule)
			line.StoreNumber = alloc.StoreNumber
			line.Qty = alloc.Qty
			result.Items = append(result.Items, line)
		}
		return
	}

	result.Compositions = append(result.Compositions, *composition)

	// Two-level multiplication: the allocation counts prepacks shipped to a
	// store; each component contributes quantity-per-pack units of itself.
	for _, alloc := range allocations {
		if alloc.Qty <= 0 {
			result.DroppedAllocations++
			continue
		}
		for _, comp := range composition.Components {
			line := fields.lineItem(item, rule)
			line.Color = util.FirstNonEmpty(comp.Color, fields.color)
			line.Size = util.FirstNonEmpty(comp.Size, fields.size)
			line.UPC = util.FirstNonEmpty(comp.UPC, upc)
			line.SKU = util.FirstNonEmpty(comp.SKU, fields.sku)
			line.StoreNumber = alloc.StoreNumber
			line.Qty = alloc.Qty * comp.Quantity
			line.IsBOMComponent = true
			key := composition.ParentLineKey
			line.ParentLineKey = &key
			result.Items = append(result.Items, line)
		}
	}
}

type resolvedFields struct {
	style string
	color string
	size  string
	upc   string
	sku   string
	uom   string
}

func (f resolvedFields) lineItem(item map[string]any, rule Rule) internal.CanonicalLineItem {
	line := internal.CanonicalLineItem{
		Style: f.style,
		Color: f.color,
		Size:  f.size,
		UPC:   f.upc,
		SKU:   f.sku,
		UOM:   f.uom,
	}
	line.UnitPrice = util.ParsePrice(stringField(item, rule.UnitPriceField))
	line.RetailPrice = util.ParsePrice(stringField(item, rule.RetailPriceField))
	if v, ok := util.ParseQuantity(stringField(item, rule.InnerPackField)); ok {
		line.InnerPack = util.IntPtr(v)
	}
	if v, ok := util.ParseQuantity(stringField(item, rule.QtyPerInnerField)); ok {
		line.QtyPerInnerPack = util.IntPtr(v)
	}
	return line
}

func (b *Builder) resolveFields(rule Rule, company string, item map[string]any, composition *internal.BOMComposition, upc string) resolvedFields {
	fields := resolvedFields{
		style: stringField(item, rule.StyleField),
		upc:   upc,
		sku:   stringField(item, rule.SKUField),
		uom:   stringField(item, rule.UOMField),
	}

	colorSources := rule.ColorSources
	sizeSources := rule.SizeSources
	if composition != nil {
		colorSources = rule.BOMColorSources
		sizeSources = rule.BOMSizeSources
		if rule.StylePackSuffix && fields.style != "" {
			fields.style = fmt.Sprintf("%s P%d", fields.style, PackUnits(composition.Components))
		}
	}

	fields.color = b.resolve(colorSources, item, composition, company, upc, catalogColor)
	fields.size = b.resolve(sizeSources, item, composition, company, upc, catalogSize)
	return fields
}

type catalogAttr int

const (
	catalogColor catalogAttr = iota
	catalogSize
)

// resolve walks an ordered source list; the first non-empty value wins.
func (b *Builder) resolve(sources []ValueSource, item map[string]any, composition *internal.BOMComposition, company, upc string, attr catalogAttr) string {
	for _, src := range sources {
		var value string
		switch src.Kind {
		case SourceField:
			value = stringField(item, src.Field)
		case SourceLiteral:
			value = src.Value
		case SourceBOMFirstComponent:
			if composition != nil && len(composition.Components) > 0 {
				value = composition.Components[0].Color
			}
		case SourceCatalog:
			value = b.catalogValue(company, upc, attr)
		case SourceSecondWord:
			value = util.SecondWord(stringField(item, src.Field))
		case SourceFirstLetterLastWord:
			value = util.FirstLetterOfLastWord(stringField(item, src.Field))
		}
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (b *Builder) catalogValue(company, productID string, attr catalogAttr) string {
	if b.catalog == nil || productID == "" {
		return ""
	}
	color, size, ok := b.catalog.Lookup(company, productID)
	if !ok {
		return ""
	}
	if attr == catalogColor {
		return color
	}
	return size
}

func (b *Builder) decodeAllocations(result *BuildResult, rule Rule, item map[string]any, lineKey string) []internal.StoreAllocation {
	if rule.QuantityMode == QuantityDirect {
		raw := stringField(item, rule.QuantityField)
		var qty int
		var ok bool
		if rule.DecimalQuantity {
			qty, ok = util.ParseQuantity(raw)
		} else {
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			qty, ok = n, err == nil
		}
		if !ok {
			result.DroppedAllocations++
			return nil
		}
		return []internal.StoreAllocation{{
			StoreNumber: stringField(item, "ShipToStore"),
			Qty:         qty,
		}}
	}

	decoded := DecodeSDQ(Nodes(item["SDQ"]), lineKey)
	result.DanglingStores += decoded.DanglingStores
	result.DroppedAllocations += decoded.DroppedPairs
	if decoded.DanglingStores > 0 {
		b.log.Debug("dropped dangling SDQ store index",
			zap.String("lineKey", lineKey),
			zap.Int("count", decoded.DanglingStores))
	}

	out := make([]internal.StoreAllocation, 0, len(decoded.Allocations))
	for _, alloc := range decoded.Allocations {
		out = append(out, internal.StoreAllocation{StoreNumber: alloc.StoreNumber, Qty: alloc.Qty})
	}
	return out
}

func dateOf(timestamp string) string {
	if len(timestamp) >= 10 {
		return timestamp[:10]
	}
	return timestamp
}

func stringField(node map[string]any, name string) string {
	if name == "" {
		return ""
	}
	switch t := node[name].(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
