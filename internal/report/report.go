// Package report renders a search response as a standalone HTML
// document for download. Layout and palette follow the BPK document
// card style.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/santara-labs/statuta/internal/domain/search/result"
)

const reportHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>BPK Legal Document Report: {{.Query}}</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            margin: 0;
            padding: 20px;
            color: #333;
        }
        .container {
            max-width: 1200px;
            margin: 0 auto;
            background-color: #fff;
            padding: 20px;
            box-shadow: 0 0 10px rgba(0, 0, 0, 0.1);
        }
        header {
            background-color: #005A9C;
            color: white;
            padding: 20px;
            text-align: center;
            margin-bottom: 20px;
        }
        h1 {
            margin: 0;
            font-size: 24px;
        }
        h2 {
            color: #005A9C;
            border-bottom: 1px solid #ddd;
            padding-bottom: 10px;
            margin-top: 30px;
        }
        .query-info {
            background-color: #f5f5f5;
            padding: 15px;
            border-radius: 5px;
            margin-bottom: 20px;
        }
        .document {
            margin-bottom: 30px;
            padding: 15px;
            background-color: #f9f9f9;
            border-radius: 5px;
            border-left: 5px solid #005A9C;
        }
        .document-header {
            margin-bottom: 10px;
        }
        .document-title {
            font-weight: bold;
            font-size: 18px;
            color: #005A9C;
        }
        .document-meta {
            color: #666;
            font-size: 14px;
            margin: 5px 0;
        }
        .document-content {
            max-height: 300px;
            overflow-y: auto;
            padding: 10px;
            background-color: #fff;
            border: 1px solid #ddd;
            border-radius: 3px;
            margin-top: 10px;
        }
        .document-content pre {
            white-space: pre-wrap;
            font-family: monospace;
            margin: 0;
        }
        .response {
            background-color: #e6f7ff;
            padding: 20px;
            border-radius: 5px;
            margin-bottom: 30px;
            border-left: 5px solid #1890ff;
        }
        footer {
            text-align: center;
            margin-top: 30px;
            padding-top: 20px;
            border-top: 1px solid #ddd;
            color: #666;
            font-size: 14px;
        }
        .relevance-score {
            display: inline-block;
            padding: 3px 8px;
            background-color: #005A9C;
            color: white;
            border-radius: 12px;
            font-size: 12px;
            margin-left: 10px;
        }
        .pdf-badge {
            display: inline-block;
            padding: 3px 8px;
            background-color: #d9534f;
            color: white;
            border-radius: 12px;
            font-size: 12px;
            margin-left: 10px;
        }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>BPK Legal Document Report</h1>
        </header>

        <div class="query-info">
            <h2>Query Information</h2>
            <p><strong>Original Query:</strong> {{.Query}}</p>
            <p><strong>Search Date:</strong> {{.GeneratedAt}}</p>
            <p><strong>Documents Found:</strong> {{len .Documents}}</p>
        </div>

        <div class="response">
            <h2>Response</h2>
            <p>{{.Answer}}</p>
        </div>

        <h2>Retrieved Documents</h2>
{{range .Documents}}
        <div class="document">
            <div class="document-header">
                <div class="document-title">{{.Index}}. {{.Title}}{{if .IsPDF}} <span class="pdf-badge">PDF</span>{{end}} <span class="relevance-score">Relevance: {{.Score}}</span></div>
                <div class="document-meta"><strong>Source:</strong> <a href="{{.Source}}" target="_blank">{{.Source}}</a></div>
                <div class="document-meta"><strong>Type:</strong> {{.Type}}</div>
{{if .Date}}                <div class="document-meta"><strong>Date:</strong> {{.Date}}</div>
{{end}}            </div>
            <div class="document-content">{{.Content}}</div>
        </div>
{{end}}
    </div>

    <footer>
        <p>This report was generated using the BPK Legal Document API.</p>
    </footer>
</body>
</html>
`

var reportTmpl = template.Must(template.New("report").Parse(reportHTML))

type reportDoc struct {
	Index   int
	Title   string
	Source  string
	Type    string
	Date    string
	IsPDF   bool
	Score   string
	Content template.HTML
}

type reportData struct {
	Query       string
	GeneratedAt string
	Answer      template.HTML
	Documents   []reportDoc
}

// Render renders a search response as a standalone HTML report.
func Render(resp *result.Response) ([]byte, error) {
	results := resp.Results()
	docs := make([]reportDoc, len(results))
	for i := range results {
		doc := results[i].Document()
		isPDF := strings.Contains(doc.DocType(), "PDF")

		var content template.HTML
		if isPDF {
			// PDF text keeps its original layout.
			content = template.HTML("<pre>" + template.HTMLEscapeString(doc.Content()) + "</pre>")
		} else {
			content = brLines(doc.Content())
		}

		docs[i] = reportDoc{
			Index:   i + 1,
			Title:   doc.Title(),
			Source:  doc.SourceURL(),
			Type:    doc.DocType(),
			Date:    doc.Date(),
			IsPDF:   isPDF,
			Score:   fmt.Sprintf("%.2f", results[i].Score()),
			Content: content,
		}
	}

	data := reportData{
		Query:       resp.OriginalQuery(),
		GeneratedAt: resp.Timestamp().Format("2006-01-02 15:04:05"),
		Answer:      brLines(resp.Answer()),
		Documents:   docs,
	}

	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute report template: %w", err)
	}
	return buf.Bytes(), nil
}

// brLines escapes text and converts newlines to <br> for HTML flow.
func brLines(s string) template.HTML {
	escaped := template.HTMLEscapeString(s)
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

// Filename builds the download filename from the query text, spaces to
// underscores, quote and control characters dropped.
func Filename(queryText string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r == '"' || r == '\\' || r < 0x20:
			return -1
		}
		return r
	}, queryText)
	return "legal_report_" + name + ".html"
}
