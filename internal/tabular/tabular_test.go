package tabular_test

import (
	"strings"
	"testing"

	"oncoai/internal/tabular"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	doc := "\ufeffb, a ,c\n1,2,3\n4,5,6\n"
	table, err := tabular.ReadCSV(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a", "c"}, table.Columns)
	assert.Equal(t, 2, table.Len())
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := tabular.ReadCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = tabular.ReadCSV(strings.NewReader("a,\"b\n1,2\n"))
	assert.Error(t, err)
}

func TestReadCSV_RaggedRows(t *testing.T) {
	table, err := tabular.ReadCSV(strings.NewReader("a,b,c\n1,2,3\n4,5\n7,8,9,10\n"))
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"1", "2", "3"}, table.Rows[0])
	assert.Equal(t, []string{"4", "5", ""}, table.Rows[1])
	assert.Equal(t, []string{"7", "8", "9"}, table.Rows[2])
}

func TestTable_Select(t *testing.T) {
	table := tabular.New([]string{"c", "a", "b", "extra"}, [][]string{
		{"3", "1", "2", "x"},
		{"6", "4"},
	})

	rows, err := table.Select([]string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2", "3"}, {"4", "", "6"}}, rows)
}

func TestTable_SelectMissing(t *testing.T) {
	table := tabular.New([]string{"a"}, [][]string{{"1"}})

	rows, err := table.Select([]string{"a", "b", "c"})
	assert.Nil(t, rows)

	var missing *tabular.MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"b", "c"}, missing.Columns)
	assert.Contains(t, err.Error(), "b, c")
}

func TestReadXLSX(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"x", "y"},
		{1.5, 2},
		{3, -4.25},
	})

	table, err := tabular.ReadXLSX(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, table.Columns)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"1.5", "2"}, table.Rows[0])
	assert.Equal(t, []string{"3", "-4.25"}, table.Rows[1])
}

func TestDetectFormat(t *testing.T) {
	xlsx := buildWorkbook(t, [][]any{{"x"}, {1}})
	csvData := []byte("x,y\n1,2\n")

	cases := []struct {
		name        string
		contentType string
		data        []byte
		want        tabular.Format
		wantErr     bool
	}{
		{"csv", "text/csv", csvData, tabular.FormatCSV, false},
		{"csv with charset", "text/csv; charset=utf-8", csvData, tabular.FormatCSV, false},
		{"xlsx", tabular.ContentTypeSpreadsheet, xlsx, tabular.FormatXLSX, false},
		{"ms-excel holding xlsx", tabular.ContentTypeExcel, xlsx, tabular.FormatXLSX, false},
		{"ms-excel holding csv", tabular.ContentTypeExcel, csvData, tabular.FormatCSV, false},
		{"octet-stream holding xlsx", tabular.ContentTypeOctetStream, xlsx, tabular.FormatXLSX, false},
		{"octet-stream holding csv", tabular.ContentTypeOctetStream, csvData, tabular.FormatCSV, false},
		{"json", "application/json", []byte("{}"), 0, true},
		{"empty", "", csvData, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tabular.DetectFormat(tc.contentType, tc.data)
			if tc.wantErr {
				assert.ErrorIs(t, err, tabular.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRead(t *testing.T) {
	table, err := tabular.Read("text/csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	_, err = tabular.Read("image/png", []byte("a,b\n1,2\n"))
	assert.ErrorIs(t, err, tabular.ErrUnsupportedFormat)
}

func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}
