package results_test

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSampleTable() *results.Table {
	t := results.New("question", "predictions")
	t.AddRow("0", map[string]any{"question": "q0", "predictions": "p0"})
	t.AddRow("1", map[string]any{"question": "q1", "predictions": "p1"})
	return t
}

func TestTable_SetAndGet(t *testing.T) {
	tbl := newSampleTable()

	require.NoError(t, tbl.Set("1", domain.ColumnLabelQuality, "Good"))
	v, ok := tbl.Get("1", domain.ColumnLabelQuality)
	assert.True(t, ok)
	assert.Equal(t, "Good", v)

	_, ok = tbl.Get("0", domain.ColumnLabelQuality)
	assert.False(t, ok)

	assert.Equal(t, []string{"question", "predictions", domain.ColumnLabelQuality}, tbl.Columns())
	assert.Equal(t, 1, tbl.Count(domain.ColumnLabelQuality))
}

func TestTable_SetUnknownRow(t *testing.T) {
	tbl := newSampleTable()
	err := tbl.Set("42", "feedback", "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTable_SetNilClearsCell(t *testing.T) {
	tbl := newSampleTable()
	require.NoError(t, tbl.Set("0", "feedback", "x"))
	require.NoError(t, tbl.Set("0", "feedback", nil))
	assert.Equal(t, 0, tbl.Count("feedback"))
}

func TestTable_Append(t *testing.T) {
	tbl := newSampleTable()

	require.NoError(t, tbl.Append("0", domain.ColumnErrorAnalysis, map[string]any{"snippet": "a"}))
	require.NoError(t, tbl.Append("0", domain.ColumnErrorAnalysis, map[string]any{"snippet": "b"}))

	v, ok := tbl.Get("0", domain.ColumnErrorAnalysis)
	require.True(t, ok)
	list := v.([]any)
	assert.Len(t, list, 2)
	assert.Equal(t, "b", list[1].(map[string]any)["snippet"])

	require.NoError(t, tbl.Set("1", "feedback", "text"))
	assert.ErrorIs(t, tbl.Append("1", "feedback", "more"), domain.ErrInvalidInput)
}

func TestTable_CloneIsIndependent(t *testing.T) {
	tbl := newSampleTable()
	clone := tbl.Clone()

	require.NoError(t, clone.Set("0", "question", "changed"))
	assert.Equal(t, "q0", tbl.GetString("0", "question"))
	assert.Equal(t, "changed", clone.GetString("0", "question"))
}

func TestTable_SelectAndReindex(t *testing.T) {
	tbl := results.New("v")
	for i, id := range []string{"10", "11", "12"} {
		tbl.AddRow(id, map[string]any{"v": float64(i)})
	}

	sel := tbl.Select([]string{"12", "10", "99"})
	assert.Equal(t, []string{"12", "10"}, sel.RowIDs())
	assert.Equal(t, "2", sel.GetString("12", "v"))

	sel.Reindex()
	assert.Equal(t, []string{"0", "1"}, sel.RowIDs())
	assert.Equal(t, "2", sel.GetString("0", "v"))
	assert.Equal(t, "0", sel.GetString("1", "v"))
}

func TestTable_FloatsAndNumeric(t *testing.T) {
	tbl := results.New("m", "s")
	tbl.AddRow("0", map[string]any{"m": 0.5, "s": "x"})
	tbl.AddRow("1", map[string]any{"s": "y"})

	floats := tbl.Floats("m")
	assert.Equal(t, 0.5, floats[0])
	assert.True(t, math.IsNaN(floats[1]))
	assert.True(t, tbl.IsNumeric("m"))
	assert.False(t, tbl.IsNumeric("s"))
	assert.False(t, tbl.IsNumeric("missing"))
}

func TestTable_DropColumn(t *testing.T) {
	tbl := newSampleTable()
	tbl.DropColumn("question")
	assert.Equal(t, []string{"predictions"}, tbl.Columns())
	assert.False(t, tbl.HasColumn("question"))
	tbl.EnsureColumn("z")
	assert.Equal(t, []string{"predictions", "z"}, tbl.Columns())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "3", results.FormatValue(float64(3)))
	assert.Equal(t, "0.25", results.FormatValue(0.25))
	assert.Equal(t, "true", results.FormatValue(true))
	assert.Equal(t, "", results.FormatValue(nil))
}

// ============================================================================
// JSON codec
// ============================================================================

func TestMarshalJSON_ColumnsLayout(t *testing.T) {
	tbl := newSampleTable()
	require.NoError(t, tbl.Set("1", domain.ColumnLabelQuality, "Poor"))

	data, err := json.Marshal(tbl)
	require.NoError(t, err)
	assert.Equal(t,
		`{"question":{"0":"q0","1":"q1"},"predictions":{"0":"p0","1":"p1"},"label_quality":{"0":null,"1":"Poor"}}`,
		string(data))
}

func TestDecode_ColumnsLayoutPreservesOrder(t *testing.T) {
	data := []byte(`{"z":{"5":"a","2":"b"},"a":{"5":1.5,"2":null},"error_analysis":{"5":[{"snippet":"s","error":["Other"]}],"2":null}}`)

	tbl, err := results.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"z", "a", "error_analysis"}, tbl.Columns())
	assert.Equal(t, []string{"5", "2"}, tbl.RowIDs())
	assert.Equal(t, 1, tbl.Count("a"))
	v, ok := tbl.Get("5", "error_analysis")
	require.True(t, ok)
	assert.Len(t, v.([]any), 1)
}

func TestDecode_ColumnListLayout(t *testing.T) {
	tbl, err := results.Decode([]byte(`{"question":["a","b","c"],"score":[1,2,null]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2"}, tbl.RowIDs())
	assert.Equal(t, 2, tbl.Count("score"))
}

func TestDecode_SplitLayout(t *testing.T) {
	data := []byte(`{"data":[["q0","p0"],["q1","p1"]],"index":[7,8],"columns":["question","predictions"]}`)

	tbl, err := results.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"question", "predictions"}, tbl.Columns())
	assert.Equal(t, []string{"0", "1"}, tbl.RowIDs())
	assert.Equal(t, "p1", tbl.GetString("1", "predictions"))
}

func TestDecode_Invalid(t *testing.T) {
	for _, input := range []string{`[1,2]`, `{"a":`, `{"data":[["x"]],"columns":["a","b"]}`} {
		_, err := results.Decode([]byte(input))
		assert.ErrorIs(t, err, domain.ErrInvalidInput, input)
	}
}

func TestJSON_RoundTripKeepsNulls(t *testing.T) {
	tbl := newSampleTable()
	require.NoError(t, tbl.Set("0", domain.ColumnStartTime, "20240101120000"))

	data, err := json.Marshal(tbl)
	require.NoError(t, err)

	var decoded results.Table
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, tbl.Columns(), decoded.Columns())
	assert.Equal(t, tbl.RowIDs(), decoded.RowIDs())
	assert.Equal(t, 1, decoded.Count(domain.ColumnStartTime))
}

// ============================================================================
// CSV
// ============================================================================

func TestReadCSV(t *testing.T) {
	input := "question,predictions,ground_truth,bleu\nq0,p0,g0,0.5\nq1,p1,,\n"

	tbl, err := results.ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, 0.5, tbl.Floats("bleu")[0])
	assert.Equal(t, 1, tbl.Count("ground_truth"))
}

func TestReadCSV_NonFiniteNumbersStayText(t *testing.T) {
	input := "question,a,b,c,d\nq0,Infinity,NaN,inf,1e3\n"

	tbl, err := results.ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	for col, expected := range map[string]string{"a": "Infinity", "b": "NaN", "c": "inf"} {
		value, ok := tbl.Get("0", col)
		require.True(t, ok, col)
		assert.Equal(t, expected, value, col)
	}
	value, _ := tbl.Get("0", "d")
	assert.Equal(t, 1000.0, value)

	data, err := json.Marshal(tbl)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Infinity"`)
	assert.Contains(t, string(data), `"NaN"`)
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := results.ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWriteCSV(t *testing.T) {
	tbl := newSampleTable()
	require.NoError(t, tbl.Append("0", domain.ColumnErrorAnalysis, map[string]any{"snippet": "x"}))

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "row_id,question,predictions,error_analysis", lines[0])
	assert.Equal(t, `0,q0,p0,"[{""snippet"":""x""}]"`, lines[1])
	assert.Equal(t, "1,q1,p1,", lines[2])
}
