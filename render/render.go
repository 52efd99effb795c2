package render

import (
	"embed"
	"fmt"
	"io/fs"
	"math"
	"strconv"
	"strings"
	"text/template"

	"github.com/charmbracelet/glamour"
	"github.com/guregu/null/v6"

	ex "stockdash/extensions"
	m "stockdash/models"
)

//go:embed templates/*.md
var templates embed.FS

const (
	DefaultRows      = 10
	DefaultWordWrap  = 120
	missingCell      = "n/a"
	mainTemplateName = "report"
)

var partials = map[string]string{
	"table":    "templates/table.md",
	"sharpe":   "templates/sharpe.md",
	"warnings": "templates/warnings.md",
}

type Options struct {
	// Rows caps how many of the latest rows each table shows, zero means DefaultRows.
	Rows int
}

type reportView struct {
	Symbols           []string
	Start             string
	End               string
	RiskFreeRate      string
	StockData         []tableView
	Prices            tableView
	Returns           tableView
	CumulativeReturns tableView
	Correlation       *tableView
	Sharpe            []sharpeRow
	Warnings          []m.Warning
}

type tableView struct {
	Title   string
	Header  []string
	Rows    [][]string
	Total   int
	Omitted bool
}

type sharpeRow struct {
	Symbol string
	Value  string
}

// AnalysisMarkdown renders the result as a markdown report. The correlation
// section only appears when the result carries a matrix.
func AnalysisMarkdown(res *m.AnalysisResult, opts Options) (string, error) {
	if res == nil {
		return "", fmt.Errorf("error rendering analysis, no result")
	}
	maxRows := opts.Rows
	if maxRows <= 0 {
		maxRows = DefaultRows
	}

	view := reportView{
		Symbols:      res.Symbols,
		Start:        ex.FmtShort(res.Start),
		End:          ex.FmtShort(res.End),
		RiskFreeRate: strconv.FormatFloat(res.RiskFreeRate, 'f', -1, 64),
		Warnings:     res.Warnings,
	}
	for _, symbol := range res.Symbols {
		if rows, ok := res.StockData[symbol]; ok {
			view.StockData = append(view.StockData, stockDataTable(symbol, rows, maxRows))
		}
	}
	if res.Prices != nil {
		view.Prices = seriesTable("Closing Prices", res.Prices.Table, maxRows, formatPrice)
	}
	if res.Returns != nil {
		view.Returns = seriesTable("Daily Returns", res.Returns.Table, maxRows, formatPercent)
	}
	if res.CumulativeReturns != nil {
		view.CumulativeReturns = seriesTable("Cumulative Returns", res.CumulativeReturns.Table, maxRows, formatPercent)
	}
	if res.HasCorrelation() {
		corr := correlationTable(res.Correlation)
		view.Correlation = &corr
	}
	for _, symbol := range res.Symbols {
		if v, ok := res.Sharpe[symbol]; ok {
			view.Sharpe = append(view.Sharpe, sharpeRow{Symbol: symbol, Value: m.FormatSharpe(v)})
		}
	}

	return renderTemplate(view)
}

// ToTerminal styles markdown for the terminal
func ToTerminal(markdown string, wordWrap int) (string, error) {
	if wordWrap <= 0 {
		wordWrap = DefaultWordWrap
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return "", fmt.Errorf("error creating terminal renderer: %w", err)
	}

	out, err := renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("error rendering markdown: %w", err)
	}
	return out, nil
}

func seriesTable(title string, t m.Table, maxRows int, format func(float64) string) tableView {
	view := tableView{
		Title:  title,
		Header: append([]string{"Date"}, t.Symbols...),
		Total:  t.Len(),
	}

	first := ex.Max(0, t.Len()-maxRows)
	view.Omitted = first > 0
	for i := first; i < t.Len(); i++ {
		row := make([]string, 0, len(t.Symbols)+1)
		row = append(row, ex.FmtShort(t.Dates[i]))
		for _, symbol := range t.Symbols {
			row = append(row, format(t.At(symbol, i)))
		}
		view.Rows = append(view.Rows, row)
	}

	return view
}

// stockDataTable shows the fetched rows of one symbol as the source sent them
func stockDataTable(symbol string, rows []*m.TimeSeriesData, maxRows int) tableView {
	view := tableView{
		Title:  "Stock Data: " + symbol,
		Header: []string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"},
		Total:  len(rows),
	}

	first := ex.Max(0, len(rows)-maxRows)
	view.Omitted = first > 0
	for _, row := range rows[first:] {
		view.Rows = append(view.Rows, []string{
			ex.FmtShort(row.Timestamp),
			formatNullPrice(row.Open),
			formatNullPrice(row.High),
			formatNullPrice(row.Low),
			formatNullPrice(row.Close),
			formatNullPrice(row.AdjustedClose),
			formatVolume(row.Volume),
		})
	}
	return view
}

func correlationTable(cm *m.CorrelationMatrix) tableView {
	view := tableView{
		Title:  "Correlation Matrix",
		Header: append([]string{""}, cm.Symbols...),
		Total:  len(cm.Symbols),
	}
	for i, a := range cm.Symbols {
		row := []string{a}
		for j := range cm.Symbols {
			row = append(row, formatCoefficient(cm.Matrix.At(i, j)))
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

func formatPrice(v float64) string {
	if math.IsNaN(v) {
		return missingCell
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatNullPrice(v null.Float) string {
	if !v.Valid {
		return missingCell
	}
	return formatPrice(v.Float64)
}

func formatVolume(v null.Float) string {
	if !v.Valid || math.IsNaN(v.Float64) {
		return missingCell
	}
	return strconv.FormatFloat(v.Float64, 'f', 0, 64)
}

func formatPercent(v float64) string {
	if math.IsNaN(v) {
		return missingCell
	}
	return strconv.FormatFloat(v*100, 'f', 2, 64) + "%"
}

func formatCoefficient(v float64) string {
	if math.IsNaN(v) {
		return missingCell
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func renderTemplate(data reportView) (string, error) {
	funcs := template.FuncMap{"join": strings.Join}

	mainContent, err := fs.ReadFile(templates, "templates/report.md")
	if err != nil {
		return "", fmt.Errorf("error reading main template: %w", err)
	}

	tmpl, err := template.New(mainTemplateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return "", fmt.Errorf("error parsing main template: %w", err)
	}

	for name, file := range partials {
		content, err := fs.ReadFile(templates, file)
		if err != nil {
			return "", fmt.Errorf("error reading partial template %q: %w", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return "", fmt.Errorf("error parsing partial template %q for %q: %w", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, mainTemplateName, data); err != nil {
		return "", fmt.Errorf("error executing template: %w", err)
	}
	return b.String(), nil
}
