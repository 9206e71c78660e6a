package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"TrialFeeds/internal/domain"
)

// Chart layout constants; the SVG is sized for an embed iframe.
const (
	chartWidth   = 860
	chartHeight  = 420
	plotTop      = 40
	plotBottom   = 80
	plotLeft     = 60
	plotRight    = 20
	barGapRatio  = 0.25
	chartTitle   = "ClinicalTrials.gov — Trials by Phase"
	timeRegister = "2006-01-02 15:04 UTC"
)

type chartBar struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	LabelX float64
	Label  string
	Count  int
}

type chartData struct {
	Title    string
	AsOf     string
	Bars     []chartBar
	BaseY    int
	Width    int
	Height   int
	DataJSON template.JS
}

var chartTemplate = template.Must(template.New("chart").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, "Segoe UI", Arial, sans-serif; margin: 16px; }
h1 { font-size: 18px; }
.asof { color: #555; font-size: 12px; }
.bar { fill: #2171b5; }
.bar:hover { fill: #6baed6; }
text.count { font-size: 11px; text-anchor: middle; }
text.label { font-size: 11px; text-anchor: end; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="asof">as of {{.AsOf}}</p>
<svg viewBox="0 0 {{.Width}} {{.Height}}" width="{{.Width}}" height="{{.Height}}" role="img" aria-label="{{.Title}}">
{{- range .Bars}}
  <rect class="bar" x="{{printf "%.1f" .X}}" y="{{printf "%.1f" .Y}}" width="{{printf "%.1f" .Width}}" height="{{printf "%.1f" .Height}}"></rect>
  <text class="count" x="{{printf "%.1f" .LabelX}}" y="{{printf "%.1f" .Y}}" dy="-4">{{.Count}}</text>
  <text class="label" x="{{printf "%.1f" .LabelX}}" y="{{$.BaseY}}" dy="12" transform="rotate(-40 {{printf "%.1f" .LabelX}} {{$.BaseY}})">{{.Label}}</text>
{{- end}}
</svg>
<script type="application/json" id="counts-by-phase">{{.DataJSON}}</script>
</body>
</html>
`))

// Chart renders counts_by_phase as a self-contained HTML page: an inline SVG
// bar chart plus the data embedded as JSON, so the artifact needs no runtime
// fetch and can be iframed standalone.
func (w *Writer) Chart(rows []domain.PhaseCount, meta domain.Meta) (domain.Artifact, error) {
	if err := validateMeta(meta); err != nil {
		return domain.Artifact{}, fmt.Errorf("chart: %w", err)
	}

	embedded, err := json.Marshal(struct {
		Meta   domain.Meta         `json:"meta"`
		Phases []domain.PhaseCount `json:"phases"`
	}{meta, rows})
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("chart: %w: %w", domain.ErrSerialization, err)
	}

	data := chartData{
		Title:    chartTitle,
		AsOf:     meta.AsOfUTC.In(time.UTC).Format(timeRegister),
		Bars:     layoutBars(rows),
		BaseY:    chartHeight - plotBottom,
		Width:    chartWidth,
		Height:   chartHeight,
		DataJSON: template.JS(embedded),
	}

	var buf bytes.Buffer
	if err := chartTemplate.Execute(&buf, data); err != nil {
		return domain.Artifact{}, fmt.Errorf("chart: %w: %w", domain.ErrSerialization, err)
	}

	return domain.Artifact{Name: domain.ChartArtifact, Data: buf.Bytes()}, nil
}

func layoutBars(rows []domain.PhaseCount) []chartBar {
	if len(rows) == 0 {
		return nil
	}

	maxCount := 0
	for _, row := range rows {
		if row.Count > maxCount {
			maxCount = row.Count
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	plotW := float64(chartWidth - plotLeft - plotRight)
	plotH := float64(chartHeight - plotTop - plotBottom)
	slot := plotW / float64(len(rows))
	barW := slot * (1 - barGapRatio)

	bars := make([]chartBar, 0, len(rows))
	for i, row := range rows {
		h := plotH * float64(row.Count) / float64(maxCount)
		x := float64(plotLeft) + slot*float64(i) + (slot-barW)/2
		bars = append(bars, chartBar{
			X:      x,
			Y:      float64(plotTop) + plotH - h,
			Width:  barW,
			Height: h,
			LabelX: x + barW/2,
			Label:  row.Phase,
			Count:  row.Count,
		})
	}
	return bars
}

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>AACT Trial Feeds</title>
</head>
<body style="font-family:system-ui,Segoe UI,Arial,sans-serif;padding:24px;">
<h1>AACT Trial Feeds</h1>
<p>Snapshot as of {{.AsOf}}</p>
<ul>
{{- range .Entries}}
<li><a href="{{.}}">{{.}}</a></li>
{{- end}}
</ul>
</body>
</html>
`))

// Index renders the landing page listing every artifact of the snapshot.
func (w *Writer) Index(meta domain.Meta, entries []string) (domain.Artifact, error) {
	if err := validateMeta(meta); err != nil {
		return domain.Artifact{}, fmt.Errorf("index: %w", err)
	}

	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, struct {
		AsOf    string
		Entries []string
	}{meta.AsOfUTC.In(time.UTC).Format(timeRegister), entries})
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("index: %w: %w", domain.ErrSerialization, err)
	}

	return domain.Artifact{Name: domain.IndexArtifact, Data: buf.Bytes()}, nil
}
