package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"edicanon/internal"
)

func TestExpandBOM(t *testing.T) {
	item := Nodes(decode(t, `{
		"GTIN": "00012345678905",
		"BOM": {
			"Component": [
				{"ComponentStyle": "ST1", "ComponentColor": "BLK", "ComponentSize": "S", "ComponentGTIN": "10000000000017", "QuantityPerPack": "2"},
				{"ComponentStyle": "ST1", "ComponentColor": "BLK", "ComponentSize": "M", "ComponentGTIN": "10000000000024", "QuantityPerPack": "4"}
			]
		}
	}`))[0]

	comp := ExpandBOM(item, "1|00012345678905")
	require.NotNil(t, comp)
	require.Equal(t, "1|00012345678905", comp.ParentLineKey)
	require.Len(t, comp.Components, 2)
	require.Equal(t, 2, comp.Components[0].Quantity)
	require.Equal(t, 4, comp.Components[1].Quantity)
	require.Equal(t, 6, PackUnits(comp.Components))
}

func TestExpandBOMAbsent(t *testing.T) {
	item := Nodes(decode(t, `{"GTIN": "00012345678905", "QtyOrdered": "4"}`))[0]
	require.Nil(t, ExpandBOM(item, "k"))
}

func TestExpandBOMSingleComponentObject(t *testing.T) {
	item := Nodes(decode(t, `{
		"BOM": {"Component": {"ComponentStyle": "ST1", "ComponentSize": "S", "QuantityPerPack": "3"}}
	}`))[0]
	comp := ExpandBOM(item, "k")
	require.NotNil(t, comp)
	require.Len(t, comp.Components, 1)
	require.Equal(t, 3, comp.Components[0].Quantity)
}

func TestExpandBOMSkipsUnparsableQty(t *testing.T) {
	item := Nodes(decode(t, `{
		"BOM": {"Component": [
			{"ComponentStyle": "ST1", "QuantityPerPack": "2"},
			{"ComponentStyle": "ST2", "QuantityPerPack": "n/a"}
		]}
	}`))[0]
	comp := ExpandBOM(item, "k")
	require.NotNil(t, comp)
	require.Len(t, comp.Components, 1)

	item = Nodes(decode(t, `{
		"BOM": {"Component": [{"ComponentStyle": "ST1", "QuantityPerPack": ""}]}
	}`))[0]
	require.Nil(t, ExpandBOM(item, "k"))
}

func TestCompositionSignatureOrderInsensitive(t *testing.T) {
	a := []internal.BOMComponent{
		{Style: "ST1", Color: "BLK", Size: "S", Quantity: 2},
		{Style: "ST1", Color: "BLK", Size: "M", Quantity: 4},
	}
	b := []internal.BOMComponent{
		{Style: "ST1", Color: "BLK", Size: "M", Quantity: 4},
		{Style: "ST1", Color: "BLK", Size: "S", Quantity: 2},
	}
	require.Equal(t, CompositionSignature(a), CompositionSignature(b))
	require.Equal(t, "ST1|BLK|M|4;ST1|BLK|S|2", CompositionSignature(a))
}

func TestCompositionSignatureFieldDivergence(t *testing.T) {
	base := []internal.BOMComponent{{Style: "ST1", Color: "BLK", Size: "S", Quantity: 2}}
	sig := CompositionSignature(base)

	for _, variant := range [][]internal.BOMComponent{
		{{Style: "ST2", Color: "BLK", Size: "S", Quantity: 2}},
		{{Style: "ST1", Color: "NVY", Size: "S", Quantity: 2}},
		{{Style: "ST1", Color: "BLK", Size: "M", Quantity: 2}},
		{{Style: "ST1", Color: "BLK", Size: "S", Quantity: 3}},
	} {
		require.NotEqual(t, sig, CompositionSignature(variant))
	}
}

func TestDedupeCompositions(t *testing.T) {
	comps := []internal.BOMComposition{
		{ParentLineKey: "1|a", Signature: "sig1"},
		{ParentLineKey: "2|b", Signature: "sig1"},
		{ParentLineKey: "3|c", Signature: "sig2"},
	}
	out := DedupeCompositions(comps)
	require.Len(t, out, 2)
	require.Equal(t, "1|a", out[0].ParentLineKey)
	require.Equal(t, "sig2", out[1].Signature)
}
