package reports

import (
	"bytes"
	"fmt"
	"html/template"
)

// documentTemplate is the printable report layout served to the browser,
// which handles PDF conversion via its print dialog.
var documentTemplate = template.Must(template.New("report").Parse(`<html>
    <head>
        <style>
            body { font-family: sans-serif; color: #333; }
            .header { text-align: center; border-bottom: 2px solid #0d9488; padding-bottom: 10px; }
            .header h1 { color: #0d9488; margin: 0; }
            .report-title { margin-top: 30px; }
            .section { margin-top: 25px; }
            .section h3 { background-color: #f0fdfa; color: #064e3b; padding: 10px; border-left: 4px solid #10b981; }
            .content { padding: 5px 10px; white-space: pre-wrap; line-height: 1.6; }
            .footer { position: fixed; bottom: 0; width: 100%; text-align: center; font-size: 12px; color: #999; }
        </style>
    </head>
    <body>
        <div class="header"><h1>CareConnect Health Report</h1></div>
        <div class="report-title">
            <h2>{{.Title}}</h2>
            <p>Generated on: {{.Date}}</p>
        </div>
        <div class="section">
            <h3>Official Diagnosis</h3>
            <div class="content">{{.Diagnosis}}</div>
        </div>
        <div class="section">
            <h3>Doctor's Recommendations</h3>
            <div class="content">{{.Recommendations}}</div>
        </div>
        <div class="footer">This is an official patient record from CareConnect.</div>
    </body>
</html>`))

// RenderDocument produces the printable HTML for a report.
func RenderDocument(report Report) ([]byte, error) {
	diagnosis := report.Content.Diagnosis
	if diagnosis == "" {
		diagnosis = "Not provided."
	}
	recommendations := report.Content.Recommendations
	if recommendations == "" {
		recommendations = "Not provided."
	}

	var buf bytes.Buffer
	err := documentTemplate.Execute(&buf, struct {
		Title, Date, Diagnosis, Recommendations string
	}{
		Title:           report.Title,
		Date:            report.FormattedDate(),
		Diagnosis:       diagnosis,
		Recommendations: recommendations,
	})
	if err != nil {
		return nil, fmt.Errorf("reports: render document: %w", err)
	}
	return buf.Bytes(), nil
}
