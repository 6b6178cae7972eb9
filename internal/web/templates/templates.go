// Package templates renders the HTML fragments returned to HTMX clients.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/trutrend/internal/core"
)

// ErrorAlert renders a dismissible error box with the support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="alert alert-error" role="alert">`)
		fmt.Fprintf(&b, `<p class="alert-message">%s</p>`, templ.EscapeString(message))
		if action != "" {
			fmt.Fprintf(&b, `<p class="alert-action">%s</p>`, templ.EscapeString(action))
		}
		fmt.Fprintf(&b, `<p class="alert-code">Error code: %s</p>`, templ.EscapeString(code))
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// AnalysisPanel renders the outcome of one analysis: ingestion counts, the
// glycemic summary and every finding with its evidence count.
func AnalysisPanel(a *core.Analysis) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, `<section class="analysis" id="analysis-%s">`, templ.EscapeString(a.ID))
		fmt.Fprintf(&b, `<h2>%s export</h2>`, templ.EscapeString(string(a.Device)))

		r := a.Report
		fmt.Fprintf(&b, `<p class="report">%d rows read, %d glucose readings accepted, %d dropped</p>`,
			r.RowsSeen, r.RowsAcceptedByStream.Glucose, r.DroppedTotal())
		if len(r.Dropped) > 0 {
			b.WriteString(`<ul class="dropped">`)
			for _, d := range r.Dropped {
				fmt.Fprintf(&b, `<li>%s (%s): %d</li>`,
					templ.EscapeString(string(d.Reason)), templ.EscapeString(string(d.Stream)), d.Count)
			}
			b.WriteString(`</ul>`)
		}

		if s := a.Summary; s != nil {
			fmt.Fprintf(&b, `<p class="summary">Mean %.1f mg/dL, time in range %.1f%%, GMI %.1f%%, data quality %s</p>`,
				s.MeanGlucose, s.TimeInRange, s.GMI, templ.EscapeString(string(s.Quality.Reliability)))
		}

		if len(a.Findings) == 0 {
			b.WriteString(`<p class="no-findings">No patterns detected.</p>`)
		}
		for _, f := range a.Findings {
			writeFinding(&b, f)
		}

		b.WriteString(`</section>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeFinding(b *strings.Builder, f core.Finding) {
	fmt.Fprintf(b, `<article class="finding severity-%s">`, templ.EscapeString(string(f.Severity)))
	fmt.Fprintf(b, `<h3>%s <span class="badge">%s</span></h3>`,
		templ.EscapeString(f.RuleName), templ.EscapeString(string(f.Severity)))
	fmt.Fprintf(b, `<p>%s</p>`, templ.EscapeString(f.Description))
	fmt.Fprintf(b, `<p class="significance">%s</p>`, templ.EscapeString(f.ClinicalSignificance))
	fmt.Fprintf(b, `<p class="evidence-count">%d supporting events</p>`, len(f.Evidence))
	b.WriteString(`</article>`)
}
