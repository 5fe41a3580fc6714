// Package upload reads seller specification files (JSON, YAML or XLSX) into
// an AuditInput.
package upload

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/isq-cli/internal/model"
)

// rawSpec accepts both "name" and "spec_name" keys, and options either as a
// list or as one comma-separated string.
type rawSpec struct {
	Name      string `json:"name" yaml:"name"`
	SpecName  string `json:"spec_name" yaml:"spec_name"`
	Options   any    `json:"options" yaml:"options"`
	Tier      string `json:"tier" yaml:"tier"`
	InputType string `json:"input_type" yaml:"input_type"`
}

type rawUpload struct {
	MCATName       string    `json:"mcat_name" yaml:"mcat_name"`
	Specifications []rawSpec `json:"specifications" yaml:"specifications"`
}

// Parse reads a seller upload, choosing the format by file extension.
func Parse(path string) (model.AuditInput, error) {
	if !Supported(path) {
		return model.AuditInput{}, unsupported(path)
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.AuditInput{}, eris.Wrapf(err, "upload: read %s", path)
	}
	return ParseData(path, data)
}

// ParseData decodes an upload already in memory; name picks the format.
func ParseData(name string, data []byte) (model.AuditInput, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return ParseXLSX(data)
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return model.AuditInput{}, unsupported(name)
	}
}

// Supported reports whether name has an extension Parse understands.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func unsupported(name string) error {
	return eris.Errorf("upload: unsupported file type %q", filepath.Ext(name))
}

// ParseJSON decodes a JSON upload: either {"mcat_name", "specifications"}
// or a bare array of specifications.
func ParseJSON(data []byte) (model.AuditInput, error) {
	var raw rawUpload
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &raw.Specifications); err != nil {
			return model.AuditInput{}, eris.Wrap(err, "upload: decode json")
		}
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return model.AuditInput{}, eris.Wrap(err, "upload: decode json")
	}
	return raw.toInput()
}

// ParseYAML decodes a YAML upload with the same shape as ParseJSON.
func ParseYAML(data []byte) (model.AuditInput, error) {
	var raw rawUpload
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return model.AuditInput{}, eris.Wrap(err, "upload: decode yaml")
	}
	return raw.toInput()
}

func (r rawUpload) toInput() (model.AuditInput, error) {
	in := model.AuditInput{
		MCATName:       strings.TrimSpace(r.MCATName),
		Specifications: make([]model.SpecEntry, 0, len(r.Specifications)),
	}
	for _, s := range r.Specifications {
		name := s.Name
		if name == "" {
			name = s.SpecName
		}
		spec, ok := newSpec(name, optionList(s.Options), s.Tier, s.InputType)
		if ok {
			in.Specifications = append(in.Specifications, spec)
		}
	}
	if len(in.Specifications) == 0 {
		return model.AuditInput{}, eris.New("upload: no specifications found")
	}
	return in, nil
}

func newSpec(name string, options []string, tier, inputType string) (model.SpecEntry, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.SpecEntry{}, false
	}
	opts := make([]string, 0, len(options))
	for _, o := range options {
		if o = strings.TrimSpace(o); o != "" {
			opts = append(opts, o)
		}
	}
	return model.SpecEntry{
		Name:      name,
		Options:   opts,
		Tier:      model.ParseTier(tier),
		InputType: strings.TrimSpace(inputType),
	}, true
}

func optionList(v any) []string {
	switch t := v.(type) {
	case string:
		return SplitOptions(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, o := range t {
			switch ov := o.(type) {
			case string:
				out = append(out, ov)
			case nil:
			default:
				b, _ := json.Marshal(ov)
				out = append(out, string(b))
			}
		}
		return out
	default:
		return nil
	}
}

// SplitOptions splits a cell of options. Newlines, semicolons and pipes
// separate when present; otherwise commas do, except a thousands separator
// such as "1,000 mm".
func SplitOptions(s string) []string {
	if strings.ContainsAny(s, "\n;|") {
		return strings.FieldsFunc(s, func(r rune) bool {
			return r == '\n' || r == ';' || r == '|' || r == '\r'
		})
	}

	var (
		out   []string
		start int
	)
	for i := 0; i < len(s); i++ {
		if s[i] != ',' || isThousands(s, i) {
			continue
		}
		out = append(out, s[start:i])
		start = i + 1
	}
	return append(out, s[start:])
}

// isThousands reports whether the comma at i sits between a digit and
// exactly three more digits.
func isThousands(s string, i int) bool {
	if i == 0 || i+3 >= len(s) || !isDigit(s[i-1]) {
		return false
	}
	for j := i + 1; j <= i+3; j++ {
		if !isDigit(s[j]) {
			return false
		}
	}
	return i+4 == len(s) || !isDigit(s[i+4])
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
