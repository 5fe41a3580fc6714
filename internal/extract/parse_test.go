package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/isq-cli/internal/model"
)

func TestParse_CleanJSON(t *testing.T) {
	t.Parallel()

	got := Parse(`{"config":{"name":"Grade","options":["SS 304","SS 316"]},
		"keys":[{"name":"Thickness","options":["1 mm","2 mm"]}],
		"buyers":[{"name":"Finish","options":["2B"]}]}`)

	assert.Equal(t, model.SpecEntry{Name: "Grade", Options: []string{"SS 304", "SS 316"}}, got.Config)
	require.Len(t, got.Keys, 1)
	assert.Equal(t, "Thickness", got.Keys[0].Name)
	require.Len(t, got.Buyers, 1)
	assert.Equal(t, []string{"2B"}, got.Buyers[0].Options)
}

func TestParse_CodeFenceAndChatter(t *testing.T) {
	t.Parallel()

	text := "```json\n{\"config\":{\"name\":\"Grade\",\"options\":[\"304\"]},\"keys\":[]}\n```"
	got := Parse(text)
	assert.Equal(t, "Grade", got.Config.Name)

	got = Parse(`Here is the result: {"config":{"name":"Width","options":["1250 mm"]}} Hope this helps!`)
	assert.Equal(t, "Width", got.Config.Name)
	assert.Equal(t, []string{"1250 mm"}, got.Config.Options)
}

func TestParse_TruncatedResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		text       string
		wantConfig []string
		wantKeys   int
	}{
		{
			name:       "cut inside option string",
			text:       `{"config":{"name":"Grade","options":["SS 304","SS 31`,
			wantConfig: []string{"SS 304", "SS 31"},
		},
		{
			name:       "cut after comma",
			text:       `{"config":{"name":"Grade","options":["SS 304",`,
			wantConfig: []string{"SS 304"},
		},
		{
			name:       "cut inside keys",
			text:       `{"config":{"name":"Grade","options":["304"]},"keys":[{"name":"Thickness","options":["1 mm","2 mm"`,
			wantConfig: []string{"304"},
			wantKeys:   1,
		},
		{
			name:       "cut after key colon",
			text:       `{"config":{"name":"Grade","options":["304"]},"keys":`,
			wantConfig: []string{"304"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Parse(tt.text)
			assert.Equal(t, "Grade", got.Config.Name)
			assert.Equal(t, tt.wantConfig, got.Config.Options)
			assert.Len(t, got.Keys, tt.wantKeys)
		})
	}
}

func TestParse_TrailingCommas(t *testing.T) {
	t.Parallel()

	got := Parse(`{"config":{"name":"Grade","options":["304","316",],},"keys":[],}`)
	assert.Equal(t, []string{"304", "316"}, got.Config.Options)
}

func TestParse_SalvageByPattern(t *testing.T) {
	t.Parallel()

	text := `config -> "name": "Grade", "options": ["304", "316"]
	then "name": "Finish" "options": ["2B", "BA"] and garbage } {`
	got := Parse(text)

	assert.Equal(t, "Grade", got.Config.Name)
	assert.Equal(t, []string{"304", "316"}, got.Config.Options)
	require.Len(t, got.Keys, 1)
	assert.Equal(t, model.SpecEntry{Name: "Finish", Options: []string{"2B", "BA"}}, got.Keys[0])
}

func TestParse_NothingUsable(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "sorry, I cannot help", "{", "[1,2,3]"} {
		got := Parse(text)
		assert.True(t, got.IsEmpty(), "text %q", text)
		assert.NotNil(t, got.Keys)
		assert.NotNil(t, got.Buyers)
	}
}

func TestParse_ConfigOptionRules(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 50)
	got := Parse(`{"config":{"name":"Grade","options":["grade","", "  ","` + long + `","304","304",316,"a","b","c","d","e","f","g"]}}`)

	assert.Equal(t, []string{"304", "316", "a", "b", "c", "d", "e", "f"}, got.Config.Options)
}

func TestParse_KeyRules(t *testing.T) {
	t.Parallel()

	got := Parse(`{"config":{"name":"Grade","options":["304"]},"keys":[
		{"name":"grade","options":["316"]},
		{"name":"Empty","options":[]},
		{"name":"","options":["x"]},
		{"name":"Thickness","options":["1","2","3","4","5","6","7"]},
		{"name":"Width","options":["1250 mm"]},
		{"name":"Finish","options":["2B"]},
		{"name":"Length","options":["2500 mm"]}
	],"buyers":[
		{"name":"Thickness","options":["1 mm"]},
		{"name":"Width","options":["1250 mm"]},
		{"name":"Finish","options":["2B"]}
	]}`)

	require.Len(t, got.Keys, MaxKeys)
	assert.Equal(t, "Thickness", got.Keys[0].Name)
	assert.Len(t, got.Keys[0].Options, MaxKeyOptions)
	assert.Equal(t, "Width", got.Keys[1].Name)
	assert.Equal(t, "Finish", got.Keys[2].Name)
	assert.Len(t, got.Buyers, MaxBuyers)
}

func TestParse_SanitizesWidthForms(t *testing.T) {
	t.Parallel()

	got := Parse(`{"config":{"name":"  Thickness ","options":["３０４", "2   mm"]}}`)
	assert.Equal(t, "Thickness", got.Config.Name)
	assert.Equal(t, []string{"304", "2 mm"}, got.Config.Options)
}

func TestRepairJSON(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"a":["b"]}`, repairJSON(`{"a":["b`))
	assert.Equal(t, `{"a":null}`, repairJSON(`{"a":`))
	assert.Equal(t, `{"a":"x\\"}`, repairJSON(`{"a":"x\`))
	assert.Equal(t, `{"a":"}"}`, repairJSON(`{"a":"}"`))
}
