// Package render converts Result values into human-readable or machine-parseable
// output. Each format is a separate function; the top-level Render dispatcher
// selects based on the format string.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/derickschaefer/timefilter/internal/model"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
	FormatYAML  = "yaml"
)

// Formats lists every supported format, for flag help and validation.
var Formats = []string{FormatTable, FormatJSON, FormatJSONL, FormatCSV, FormatTSV, FormatMD, FormatYAML}

// ValidFormat reports whether f is a supported format.
func ValidFormat(f string) bool {
	for _, v := range Formats {
		if v == f {
			return true
		}
	}
	return false
}

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatTSV:
		return renderDelimited(w, result, '\t')
	case FormatMD:
		return renderMarkdown(w, result)
	case FormatYAML:
		return renderYAML(w, result)
	default:
		return renderTable(w, result)
	}
}

// ─── JSON / YAML ──────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func renderYAML(w io.Writer, result *model.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(result); err != nil {
		return err
	}
	return enc.Close()
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

// renderJSONL writes one record per line: each row of a list payload, or the
// payload itself for single objects.
func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	switch d := result.Data.(type) {
	case []model.TimeRangeRow:
		return encodeEach(enc, len(d), func(i int) interface{} { return d[i] })
	case []model.FrameRow:
		return encodeEach(enc, len(d), func(i int) interface{} { return d[i] })
	case []model.SavedRange:
		return encodeEach(enc, len(d), func(i int) interface{} { return d[i] })
	case []model.MenuItem:
		return encodeEach(enc, len(d), func(i int) interface{} { return d[i] })
	case *model.DatabasePage:
		return encodeEach(enc, len(d.Databases), func(i int) interface{} { return d.Databases[i] })
	case []model.Database:
		return encodeEach(enc, len(d), func(i int) interface{} { return d[i] })
	default:
		return enc.Encode(result.Data)
	}
}

func encodeEach(enc *json.Encoder, n int, at func(int) interface{}) error {
	for i := 0; i < n; i++ {
		if err := enc.Encode(at(i)); err != nil {
			return err
		}
	}
	return nil
}

// ─── Tabular projection ───────────────────────────────────────────────────────

// tabulate projects a result onto headers and string rows. ok is false for
// payloads with no tabular form.
func tabulate(result *model.Result) (headers []string, rows [][]string, ok bool) {
	switch d := result.Data.(type) {
	case []model.TimeRangeRow:
		headers = []string{"EXPRESSION", "FRAME", "CONTROL", "TOOLTIP", "ERROR"}
		for _, r := range d {
			rows = append(rows, []string{r.Expression, r.Frame, r.Control, r.Tooltip, r.Error})
		}
	case []model.FrameRow:
		headers = []string{"EXPRESSION", "FRAME", "LABEL"}
		for _, r := range d {
			rows = append(rows, []string{r.Expression, r.Frame, r.Label})
		}
	case []model.SavedRange:
		headers = []string{"NAME", "EXPRESSION", "FRAME", "CREATED"}
		for _, r := range d {
			rows = append(rows, []string{r.Name, r.Expression, r.Frame, r.CreatedAt.Format(time.RFC3339)})
		}
	case []model.MenuItem:
		headers = []string{"KEY", "LABEL", "DISABLED", "TOOLTIP"}
		for _, m := range d {
			rows = append(rows, []string{m.Key, m.Label, boolMark(m.Disabled), strings.Join(m.Tooltip, "\n")})
		}
	case *model.DatabasePage:
		headers, rows = databaseRows(d.Databases)
	case []model.Database:
		headers, rows = databaseRows(d)
	case *model.RelatedObjects:
		headers = []string{"DATABASE", "CHARTS", "DASHBOARDS"}
		rows = [][]string{{strconv.Itoa(d.DatabaseID), strconv.Itoa(d.ChartCount), strconv.Itoa(d.DashboardCount)}}
	default:
		return nil, nil, false
	}
	return headers, rows, true
}

func databaseRows(dbs []model.Database) (headers []string, rows [][]string) {
	headers = []string{"ID", "NAME", "BACKEND", "ASYNC", "DML", "CSV UPLOAD", "SQL LAB", "CREATED BY", "LAST MODIFIED"}
	for _, db := range dbs {
		rows = append(rows, []string{
			strconv.Itoa(db.ID),
			db.DatabaseName,
			db.Backend,
			boolMark(db.AllowRunAsync),
			boolMark(db.AllowDML),
			boolMark(db.AllowCSVUpload),
			boolMark(db.ExposeInSQLLab),
			db.CreatedBy.FullName(),
			db.ChangedOnDeltaHumanized,
		})
	}
	return headers, rows
}

// ─── Table ────────────────────────────────────────────────────────────────────

func renderTable(w io.Writer, result *model.Result) error {
	headers, rows, ok := tabulate(result)
	if !ok {
		// Fallback: JSON
		return renderJSON(w, result)
	}
	if page, isPage := result.Data.(*model.DatabasePage); isPage {
		fmt.Fprintf(w, "Databases %d-%d of %d\n\n",
			page.Page*page.PageSize+min(1, len(page.Databases)),
			page.Page*page.PageSize+len(page.Databases),
			page.Count)
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	tw.SetColWidth(60)
	for _, r := range rows {
		tw.Append(r)
	}
	tw.Render()
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	headers, rows, ok := tabulate(result)
	if ok {
		_ = cw.Write(lowerHeaders(headers))
		for _, r := range rows {
			_ = cw.Write(r)
		}
	} else {
		// Fallback: serialize as JSON on a single line
		b, _ := json.Marshal(result.Data)
		_ = cw.Write([]string{string(b)})
	}

	cw.Flush()
	return cw.Error()
}

func lowerHeaders(h []string) []string {
	out := make([]string, len(h))
	for i, s := range h {
		out[i] = strings.ReplaceAll(strings.ToLower(s), " ", "_")
	}
	return out
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	headers, rows, ok := tabulate(result)
	if !ok {
		return renderJSON(w, result)
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(headers, " | "))
	seps := make([]string, len(headers))
	for i := range seps {
		seps[i] = "----"
	}
	fmt.Fprintf(w, "|%s|\n", strings.Join(seps, "|"))
	for _, r := range rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = mdEscape(c)
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}
	return nil
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and stats to w when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		src := "live"
		if result.Stats.CacheHit {
			src = "cache"
		}
		fmt.Fprintf(w, "\n[%s • %d items • %dms • %s]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
			src,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func boolMark(b bool) string {
	if b {
		return "✓"
	}
	return ""
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
