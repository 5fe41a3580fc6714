// Package export writes run results as an XLSX workbook or JSON document.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/isq-cli/internal/model"
)

// Sheet names, in workbook order.
const (
	SheetAudit       = "Audit"
	SheetWebISQs     = "Web ISQs"
	SheetCommonSpecs = "Common Specs"
	SheetBuyerISQs   = "Buyer ISQs"
)

// Report is everything a run has produced, ready to export.
type Report struct {
	RunID       string                  `json:"run_id,omitempty"`
	MCATName    string                  `json:"mcat_name"`
	Specs       []model.SpecEntry       `json:"specifications"`
	Audit       []model.AuditResult     `json:"audit"`
	Extraction  *model.ExtractionResult `json:"extraction,omitempty"`
	CommonSpecs []model.MatchedSpecPair `json:"common_specs"`
	BuyerISQs   []model.BuyerISQ        `json:"buyer_isqs"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// FromRun builds a Report from a stored run.
func FromRun(run *model.Run, now time.Time) Report {
	r := Report{
		RunID:       run.ID,
		MCATName:    run.Input.MCATName,
		Specs:       run.Input.Specifications,
		GeneratedAt: now,
	}
	if run.Result != nil {
		r.Audit = run.Result.Audit
		r.Extraction = run.Result.Extraction
		r.CommonSpecs = run.Result.CommonSpecs
		r.BuyerISQs = run.Result.BuyerISQs
	}
	return r
}

// Workbook builds the XLSX workbook. The Common Specs and Buyer ISQs sheets
// are left out when empty.
func Workbook(r Report) (*xlsx.File, error) {
	f := xlsx.NewFile()

	if err := addSheet(f, SheetAudit, auditRows(r)); err != nil {
		return nil, err
	}
	if err := addSheet(f, SheetWebISQs, webRows(r.Extraction)); err != nil {
		return nil, err
	}
	if len(r.CommonSpecs) > 0 {
		if err := addSheet(f, SheetCommonSpecs, commonRows(r.CommonSpecs)); err != nil {
			return nil, err
		}
	}
	if len(r.BuyerISQs) > 0 {
		if err := addSheet(f, SheetBuyerISQs, buyerRows(r.BuyerISQs)); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// WriteWorkbook saves the workbook to path.
func WriteWorkbook(path string, r Report) error {
	f, err := Workbook(r)
	if err != nil {
		return err
	}
	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

// WriteWorkbookTo streams the workbook to w.
func WriteWorkbookTo(w io.Writer, r Report) error {
	f, err := Workbook(r)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write workbook")
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(r), "export: encode json")
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9]+`)

// FileName returns "<MCAT>_<kind>_<YYYY-MM-DD>.<ext>" with the product name
// reduced to letters, digits and underscores.
func FileName(mcat, kind, ext string, date time.Time) string {
	name := strings.Trim(unsafeName.ReplaceAllString(mcat, "_"), "_")
	if name == "" {
		name = "ISQ"
	}
	return fmt.Sprintf("%s_%s_%s.%s", name, kind, date.Format(time.DateOnly), strings.TrimPrefix(ext, "."))
}

func addSheet(f *xlsx.File, name string, rows [][]string) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}
	header := xlsx.NewStyle()
	header.Font.Bold = true
	header.ApplyFont = true

	for i, data := range rows {
		row := sheet.AddRow()
		for _, v := range data {
			cell := row.AddCell()
			cell.SetString(v)
			if i == 0 {
				cell.SetStyle(header)
			}
		}
	}
	return nil
}

func auditRows(r Report) [][]string {
	rows := [][]string{{"Specification Name", "Status", "Tier", "Input Type", "Options", "Total Options", "Issues Found", "Problematic Options"}}
	for _, res := range r.Audit {
		var spec model.SpecEntry
		for _, s := range r.Specs {
			if s.Name == res.Specification {
				spec = s
				break
			}
		}
		rows = append(rows, []string{
			res.Specification,
			strings.ToUpper(string(res.Status)),
			orNA(string(spec.Tier)),
			orNA(spec.InputType),
			strings.Join(spec.Options, ", "),
			strconv.Itoa(len(spec.Options)),
			orNone(res.Explanation),
			orNone(strings.Join(res.ProblematicOptions, ", ")),
		})
	}
	return rows
}

func webRows(ex *model.ExtractionResult) [][]string {
	rows := [][]string{{"ISQ Type", "ISQ Name", "Options", "Total Options", "Rank"}}
	if ex == nil {
		return rows
	}
	if ex.HasConfig() {
		rows = append(rows, []string{"Config", ex.Config.Name, strings.Join(ex.Config.Options, ", "), strconv.Itoa(len(ex.Config.Options)), ""})
	}
	for i, k := range ex.Keys {
		rows = append(rows, []string{"Key", k.Name, strings.Join(k.Options, ", "), strconv.Itoa(len(k.Options)), strconv.Itoa(i + 1)})
	}
	for i, b := range ex.Buyers {
		rows = append(rows, []string{"Buyer", b.Name, strings.Join(b.Options, ", "), strconv.Itoa(len(b.Options)), strconv.Itoa(i + 1)})
	}
	return rows
}

func commonRows(pairs []model.MatchedSpecPair) [][]string {
	rows := [][]string{{"Spec Name", "Web Spec Name", "Category", "Input Type", "Common Options", "Total Options", "Priority"}}
	for _, p := range pairs {
		rows = append(rows, []string{
			p.Source.Name,
			p.Target.Name,
			orNA(string(p.Source.Tier)),
			orNA(p.Source.InputType),
			strings.Join(p.CommonOptions, ", "),
			strconv.Itoa(len(p.CommonOptions)),
			strconv.Itoa(p.CombinedPriority),
		})
	}
	return rows
}

func buyerRows(isqs []model.BuyerISQ) [][]string {
	rows := [][]string{{"Rank", "Spec Name", "Options", "Total Options"}}
	for i, b := range isqs {
		rows = append(rows, []string{strconv.Itoa(i + 1), b.Name, strings.Join(b.Options, ", "), strconv.Itoa(len(b.Options))})
	}
	return rows
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
