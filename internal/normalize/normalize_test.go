package normalize

import (
	"fmt"
	"testing"

	"github.com/MeKo-Tech/kyclens/internal/coords"
	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/geometry"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabel(t *testing.T) {
	tests := map[string]string{
		"FirstName":        "First Name",
		"EmiratesIDNumber": "Emirates ID Number",
		"POBox":            "PO Box",
		"CIF":              "CIF",
		"first_name":       "first name",
		"date-of--birth":   "date of birth",
		"  padded.key  ":   "padded key",
		"Address2Line":     "Address2 Line",
		"":                 "",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, Label(in))
		})
	}
}

func TestFieldsFiltersAndKeepsOrder(t *testing.T) {
	fields := []extraction.FieldResult{
		{Name: "LastName", Value: "Doe", Confidence: 0.9, Box: extraction.PointRect(0.2, 0.3, 0.1, 0.05)},
		{Name: "MiddleName", Value: "", Box: nil},
		{Name: "Gender", Value: "M", Box: nil},
		{Name: "CIF", Value: "", Box: extraction.PointRect(0.1, 0.1, 0.1, 0.1)},
		{Name: "FirstName", Value: "John", Confidence: 0.95, Box: extraction.VertexList(
			geometry.Point{X: 10, Y: 10}, geometry.Point{X: 110, Y: 60})},
	}

	entities := Fields(fields, &extraction.PageDimension{Width: 1000, Height: 2000})
	require.Len(t, entities, 2)
	assert.Equal(t, "LastName", entities[0].Key)
	assert.Equal(t, "Last Name", entities[0].Label)
	assert.Equal(t, "FirstName", entities[1].Key)

	require.NotNil(t, entities[0].Box)
	assert.Equal(t, coords.Normalized, entities[0].Space)
	require.NotNil(t, entities[1].Box)
	assert.Equal(t, coords.Absolute, entities[1].Space)
	assert.InDelta(t, 0.11, entities[1].Box.X1, 1e-12)
}

func TestFieldsEmpty(t *testing.T) {
	assert.Empty(t, Fields(nil, nil))
	assert.NotNil(t, Fields(nil, nil))
}

func TestAbsoluteWithoutDimensionIsDeferred(t *testing.T) {
	fields := []extraction.FieldResult{{
		Name: "FirstName", Value: "John",
		Box: extraction.VertexList(geometry.Point{X: 10, Y: 10}, geometry.Point{X: 110, Y: 60}),
	}}
	entities := Fields(fields, nil)
	require.Len(t, entities, 1)
	assert.Nil(t, entities[0].Box)
	assert.Equal(t, geometry.Box{MinX: 10, MinY: 10, MaxX: 110, MaxY: 60}, entities[0].Source)

	dim := &extraction.PageDimension{Width: 1000, Height: 2000}
	lazy, ok := entities[0].Resolve(dim)
	require.True(t, ok)

	eager := Fields(fields, dim)
	require.NotNil(t, eager[0].Box)
	assert.Equal(t, *eager[0].Box, lazy)

	_, ok = entities[0].Resolve(nil)
	assert.False(t, ok)
}

func TestDocumentGroupsByFieldPage(t *testing.T) {
	doc := &extraction.DocumentResult{Pages: []extraction.PageResult{
		{
			Index:     0,
			Dimension: &extraction.PageDimension{Width: 100, Height: 100},
			Fields: []extraction.FieldResult{
				{Name: "A", Value: "a", Page: 0, Box: extraction.PointRect(10, 10, 20, 20)},
				{Name: "B", Value: "b", Page: 1, Box: extraction.PointRect(10, 10, 20, 20)},
			},
		},
		{
			Index:     1,
			Dimension: &extraction.PageDimension{Width: 200, Height: 200},
		},
	}}

	byPage := Document(doc)
	require.Len(t, byPage[0], 1)
	require.Len(t, byPage[1], 1)
	assert.InDelta(t, 0.1, byPage[0][0].Box.X0, 1e-12)
	assert.InDelta(t, 0.05, byPage[1][0].Box.X0, 1e-12, "B uses page 1's dimension")

	assert.Empty(t, Document(nil))
}

func genField(i int) gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("", "value"),
		gen.Bool(),
		gen.Float64Range(0, 2000),
		gen.Float64Range(0, 2000),
	).Map(func(v []interface{}) extraction.FieldResult {
		f := extraction.FieldResult{Name: fmt.Sprintf("Field%d", i), Value: v[0].(string)}
		if v[1].(bool) {
			x, y := v[2].(float64), v[3].(float64)
			f.Box = extraction.PointRect(x, y, 10, 10)
		}
		return f
	})
}

func TestFilteringInvariant(t *testing.T) {
	properties := gopter.NewProperties(nil)

	genFields := gopter.CombineGens(genField(0), genField(1), genField(2), genField(3), genField(4)).
		Map(func(v []interface{}) []extraction.FieldResult {
			out := make([]extraction.FieldResult, len(v))
			for i := range v {
				out[i] = v[i].(extraction.FieldResult)
			}
			return out
		})

	properties.Property("one entity per found field, in order, deterministically", prop.ForAll(
		func(fields []extraction.FieldResult) bool {
			dim := &extraction.PageDimension{Width: 2000, Height: 2000}
			got := Fields(fields, dim)
			again := Fields(fields, dim)

			var want []string
			for _, f := range fields {
				if f.Value != "" && f.Box != nil {
					want = append(want, f.Name)
				}
			}
			if len(got) != len(want) || len(again) != len(got) {
				return false
			}
			for i := range got {
				if got[i].Key != want[i] || got[i].Box == nil || *got[i].Box != *again[i].Box {
					return false
				}
			}
			return true
		},
		genFields,
	))

	properties.TestingRun(t)
}
