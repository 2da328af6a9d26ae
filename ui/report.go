package ui

import (
	"fmt"
	"math"
	"strings"

	"epifam/domain/inference"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// BuildMarkdown renders the run results as a markdown report: one table
// row per grid cell with test statistics, ICC and Bayes factor.
func BuildMarkdown(results []inference.AnalysisResult) string {
	var b strings.Builder
	b.WriteString("# Familial aggregation analysis\n\n")
	b.WriteString("| Outcome | Scope | Prior | Status | LRT | p (Self-Liang) | p (naive) | ICC family | BF |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	for _, r := range results {
		lrt, pSL, pNaive := "-", "-", "-"
		if r.Frequentist != nil {
			lrt = fmtNum(r.Frequentist.LRT)
			pSL = fmtNum(r.Frequentist.PValue)
			pNaive = fmtNum(r.Frequentist.NaivePValue)
		}
		icc := "-"
		if r.ICCFamily != nil {
			icc = fmtInterval(*r.ICCFamily)
		}
		bf := "-"
		if r.BF != nil {
			bf = fmtNum(r.BF.BF)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			r.Outcome, r.Scope, r.PriorVariant, r.Status, lrt, pSL, pNaive, icc, bf)
	}
	return b.String()
}

// RenderHTML converts the markdown report into a standalone HTML page.
func RenderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.CompletePage})
	return markdown.ToHTML([]byte(md), p, renderer)
}

func fmtNum(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.4g", v)
}

func fmtInterval(iv inference.Interval) string {
	if math.IsNaN(iv.Lower) && math.IsNaN(iv.Upper) {
		return fmtNum(iv.Point)
	}
	return fmt.Sprintf("%s [%s, %s]", fmtNum(iv.Point), fmtNum(iv.Lower), fmtNum(iv.Upper))
}
