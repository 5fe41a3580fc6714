package upload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/isq-cli/internal/model"
)

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Specs")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "specs.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParse_JSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "specs.json", `{
		"mcat_name": "Stainless Steel Sheet",
		"specifications": [
			{"spec_name": "Grade", "options": ["304", " 316 ", ""], "tier": "Primary", "input_type": "radio_button"},
			{"name": "Thickness", "options": "1 mm, 2 mm", "tier": "secondary"},
			{"name": "  ", "options": ["x"]},
			{"name": "Width", "options": [1250, 1500]}
		]
	}`)

	in, err := Parse(path)
	require.NoError(t, err)

	assert.Equal(t, "Stainless Steel Sheet", in.MCATName)
	require.Len(t, in.Specifications, 3)
	assert.Equal(t, model.SpecEntry{Name: "Grade", Options: []string{"304", "316"}, Tier: model.TierPrimary, InputType: "radio_button"}, in.Specifications[0])
	assert.Equal(t, []string{"1 mm", "2 mm"}, in.Specifications[1].Options)
	assert.Equal(t, model.TierSecondary, in.Specifications[1].Tier)
	assert.Equal(t, []string{"1250", "1500"}, in.Specifications[2].Options)
	assert.Equal(t, model.TierTertiary, in.Specifications[2].Tier)
}

func TestParseJSON_BareArray(t *testing.T) {
	t.Parallel()

	in, err := ParseJSON([]byte(`[{"name":"Grade","options":["304"]}]`))
	require.NoError(t, err)
	assert.Empty(t, in.MCATName)
	assert.Len(t, in.Specifications, 1)
}

func TestParse_YAML(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "specs.yml", `
mcat_name: MS Pipe
specifications:
  - name: Size
    options: ["1 inch", "2 inch"]
    tier: Primary
  - spec_name: Grade
    options: [304, 316]
`)
	in, err := Parse(path)
	require.NoError(t, err)

	assert.Equal(t, "MS Pipe", in.MCATName)
	require.Len(t, in.Specifications, 2)
	assert.Equal(t, "Size", in.Specifications[0].Name)
	assert.Equal(t, []string{"304", "316"}, in.Specifications[1].Options)
}

func TestParse_XLSX(t *testing.T) {
	t.Parallel()

	path := createTestXLSX(t, [][]string{
		{"MCAT Name", "Stainless Steel Sheet"},
		{},
		{"Tier", "Specification", "Options", "Input Type"},
		{"Primary", "Grade", "304, 316, 316L", "radio_button"},
		{"Secondary", "Width", "1,250 mm; 1,500 mm", ""},
		{"", "", "orphan", ""},
		{"", "Finish", "", ""},
	})

	in, err := Parse(path)
	require.NoError(t, err)

	assert.Equal(t, "Stainless Steel Sheet", in.MCATName)
	require.Len(t, in.Specifications, 3)
	assert.Equal(t, model.SpecEntry{Name: "Grade", Options: []string{"304", "316", "316L"}, Tier: model.TierPrimary, InputType: "radio_button"}, in.Specifications[0])
	assert.Equal(t, []string{"1,250 mm", "1,500 mm"}, in.Specifications[1].Options)
	assert.Equal(t, "Finish", in.Specifications[2].Name)
	assert.Empty(t, in.Specifications[2].Options)
}

func TestParseXLSX_FromMemory(t *testing.T) {
	t.Parallel()

	path := createTestXLSX(t, [][]string{
		{"Spec Name", "Options (Comma Separated)"},
		{"Grade", "304"},
	})
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	in, err := ParseXLSX(data)
	require.NoError(t, err)
	require.Len(t, in.Specifications, 1)
	assert.Equal(t, model.TierTertiary, in.Specifications[0].Tier)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	_, err := Parse(writeFile(t, "specs.csv", "a,b"))
	assert.ErrorContains(t, err, "unsupported file type")

	_, err = Parse(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "upload: read")

	_, err = ParseJSON([]byte(`{"specifications": []}`))
	assert.ErrorContains(t, err, "no specifications")

	_, err = ParseJSON([]byte(`{`))
	assert.ErrorContains(t, err, "decode json")

	_, err = Parse(createTestXLSX(t, [][]string{{"Name", "Value"}, {"Grade", "304"}}))
	assert.ErrorContains(t, err, "header row")
}

func TestSplitOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"304, 316", []string{"304", " 316"}},
		{"1,000 mm,2,000 mm", []string{"1,000 mm", "2,000 mm"}},
		{"1,2,3", []string{"1", "2", "3"}},
		{"1,0000", []string{"1", "0000"}},
		{"a;b|c\nd", []string{"a", "b", "c", "d"}},
		{"single", []string{"single"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitOptions(tt.in), tt.in)
	}
}

func TestParseData(t *testing.T) {
	t.Parallel()

	in, err := ParseData("Specs.YAML", []byte("specifications:\n  - name: Grade\n    options: [304]\n"))
	require.NoError(t, err)
	assert.Equal(t, "Grade", in.Specifications[0].Name)

	_, err = ParseData("specs.txt", []byte("Grade"))
	assert.ErrorContains(t, err, "unsupported file type")

	assert.True(t, Supported("a.XLSX"))
	assert.False(t, Supported("a.csv"))
}
