package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gradtrends/domain/core"
	"gradtrends/internal/derive"
	"gradtrends/internal/pipeline"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// ViewReport is the analysis of one filtered view.
type ViewReport struct {
	View         pipeline.View      `json:"view"`
	Category     string             `json:"category,omitempty"`
	Rows         int                `json:"rows"`
	Institutions int                `json:"institutions"`
	X            Summary            `json:"x"`
	Y            Summary            `json:"y"`
	Fit          *Fit               `json:"fit,omitempty"`
	MeanFit      *Fit               `json:"mean_fit,omitempty"`
	Means        []InstitutionMeans `json:"means"`
	Note         string             `json:"note,omitempty"`
}

// Report is the summary of a pipeline run.
type Report struct {
	Title       string       `json:"title"`
	RunID       string       `json:"run_id"`
	Fingerprint string       `json:"fingerprint"`
	Rows        int          `json:"rows"`
	Columns     []string     `json:"columns"`
	Ambiguous   []string     `json:"ambiguous,omitempty"`
	Views       []ViewReport `json:"views"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Request selects what Build analyses.
type Request struct {
	Views      []pipeline.View
	Categories []string // "" is the whole table
}

// DefaultRequest mirrors the published analyses: acceptance and financial aid,
// over everyone and per category.
func DefaultRequest(acceptanceMin, finAidMin int) Request {
	return Request{
		Views:      []pipeline.View{pipeline.AcceptanceView(acceptanceMin), pipeline.FinancialAidView(finAidMin)},
		Categories: []string{"", "public", "private"},
	}
}

// Build analyses every view x category pair. A view left with too little data
// still gets an entry with a note instead of failing the report.
func Build(result *pipeline.Result, req Request) (*Report, error) {
	r := &Report{
		Title:       "Graduation rate trends",
		RunID:       result.RunID.String(),
		Fingerprint: result.Fingerprint.String(),
		Rows:        result.Table.Len(),
		Columns:     result.Table.Columns(),
		Ambiguous:   result.Stats.Ambiguous,
		GeneratedAt: time.Now().UTC(),
	}
	categories := req.Categories
	if len(categories) == 0 {
		categories = []string{""}
	}

	for _, v := range req.Views {
		for _, cat := range categories {
			if _, ok := result.Categories.Get(cat); cat != "" && !ok {
				continue
			}
			vr, err := analyse(result, v, cat)
			if err != nil {
				return nil, err
			}
			r.Views = append(r.Views, vr)
		}
	}
	return r, nil
}

func analyse(result *pipeline.Result, v pipeline.View, category string) (ViewReport, error) {
	vr := ViewReport{View: v, Category: category}
	table, err := result.View(v, category)
	if err != nil {
		return vr, err
	}
	vr.Rows = table.Len()
	vr.Institutions = len(table.Institutions())
	if table.Len() == 0 {
		vr.Note = "no institution meets the threshold"
		return vr, nil
	}

	x, y := v.RequiredColumn, derive.GradRate
	if vr.X, err = DescribeColumn(table, x); err != nil {
		return vr, err
	}
	if vr.Y, err = DescribeColumn(table, y); err != nil {
		return vr, err
	}
	if vr.Means, err = Means(table, x, y); err != nil {
		return vr, err
	}

	var notes []string
	if fit, err := FitLine(table, x, y); err == nil {
		vr.Fit = &fit
	} else {
		notes = append(notes, "fit: "+err.Error())
	}
	if fit, err := FitMeans(vr.Means, x, y); err == nil {
		vr.MeanFit = &fit
	} else {
		notes = append(notes, "mean fit: "+err.Error())
	}
	vr.Note = strings.Join(notes, "; ")
	return vr, nil
}

// Markdown renders the report.
func (r *Report) Markdown() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", r.Title)
	fmt.Fprintf(&b, "Run `%s`, fingerprint `%s`, %d rows.\n\n", r.RunID, core.Hash(r.Fingerprint).Short(), r.Rows)
	fmt.Fprintf(&b, "Columns: %s\n\n", strings.Join(r.Columns, ", "))
	if len(r.Ambiguous) > 0 {
		fmt.Fprintf(&b, "Listed in both categories: %s\n\n", strings.Join(r.Ambiguous, ", "))
	}

	for _, v := range r.Views {
		scope := "all institutions"
		if v.Category != "" {
			scope = v.Category
		}
		fmt.Fprintf(&b, "## %s (%s)\n\n", v.View.Name, scope)
		fmt.Fprintf(&b, "%d rows from %d institutions with at least %d observations of `%s`.\n\n",
			v.Rows, v.Institutions, v.View.MinObservations, v.View.RequiredColumn)
		if v.Note != "" {
			fmt.Fprintf(&b, "> %s\n\n", v.Note)
		}
		if v.Rows == 0 {
			continue
		}

		b.WriteString("| | n | mean | median | sd | min | max |\n|---|---|---|---|---|---|---|\n")
		writeSummaryRow(&b, v.View.RequiredColumn, v.X)
		writeSummaryRow(&b, derive.GradRate, v.Y)
		b.WriteString("\n")

		if v.Fit != nil {
			writeFit(&b, "Yearly", v.Fit)
		}
		if v.MeanFit != nil {
			writeFit(&b, "Institution means", v.MeanFit)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// HTML renders the Markdown as an HTML page.
func (r *Report) HTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(r.Markdown()))
	renderer := html.NewRenderer(html.RendererOptions{
		Title: r.Title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.Render(doc, renderer)
}

func writeSummaryRow(b *bytes.Buffer, name string, s Summary) {
	fmt.Fprintf(b, "| %s | %d | %.2f | %.2f | %.2f | %.2f | %.2f |\n", name, s.N, s.Mean, s.Median, s.StdDev, s.Min, s.Max)
}

func writeFit(b *bytes.Buffer, label string, f *Fit) {
	fmt.Fprintf(b, "- %s: %s = %.3f + %.3f * %s, r = %.3f (p = %.3g, n = %d)\n", label, f.Y, f.Intercept, f.Slope, f.X, f.R, f.PValue, f.N)
}
