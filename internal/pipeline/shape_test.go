package pipeline

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, blob string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(blob), &v))
	return v
}

func TestNodes(t *testing.T) {
	cases := []struct {
		name string
		json string
		want int
	}{
		{name: "bare object", json: `{"a":1}`, want: 1},
		{name: "array", json: `[{"a":1},{"b":2}]`, want: 2},
		{name: "single element array", json: `[{"a":1}]`, want: 1},
		{name: "null", json: `null`, want: 0},
		{name: "scalar", json: `"x"`, want: 0},
		{name: "array with non-objects", json: `[{"a":1},"noise",{"b":2}]`, want: 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Len(t, Nodes(decode(t, tc.json)), tc.want)
		})
	}
}

func TestNodesPreservesArrayOrder(t *testing.T) {
	nodes := Nodes(decode(t, `[{"seq":"1"},{"seq":"2"},{"seq":"3"}]`))
	require.Len(t, nodes, 3)
	for i, node := range nodes {
		require.Equal(t, strconv.Itoa(i+1), node["seq"])
	}
}

// Wrapping a node in a one-element array and leaving it bare must be
// indistinguishable downstream.
func TestNodesShapeEquivalence(t *testing.T) {
	bare := Nodes(decode(t, `{"GTIN":"00012345678905","QtyOrdered":"4"}`))
	wrapped := Nodes(decode(t, `[{"GTIN":"00012345678905","QtyOrdered":"4"}]`))
	require.Equal(t, bare, wrapped)
}

func TestChildNodes(t *testing.T) {
	doc := Nodes(decode(t, `{"LineItems":{"LineItem":[{"a":1},{"b":2}]}}`))[0]
	require.Len(t, ChildNodes(doc, "LineItems", "LineItem"), 2)

	doc = Nodes(decode(t, `{"LineItems":{"LineItem":{"a":1}}}`))[0]
	require.Len(t, ChildNodes(doc, "LineItems", "LineItem"), 1)

	// Some partners skip the inner element name.
	doc = Nodes(decode(t, `{"LineItems":[{"a":1},{"b":2}]}`))[0]
	require.Len(t, ChildNodes(doc, "LineItems", "LineItem"), 2)

	doc = Nodes(decode(t, `{"Other":{}}`))[0]
	require.Empty(t, ChildNodes(doc, "LineItems", "LineItem"))
}
