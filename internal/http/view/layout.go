package view

import (
	"bytes"
	"html/template"
	"time"
)

const timeLayout = "2006-01-02 15:04:05 MST"

var funcs = template.FuncMap{
	"fmtTime": func(t time.Time) string { return t.Local().Format(timeLayout) },
}

var layoutTmpl = template.Must(template.New("layout").Funcs(funcs).Parse(`
{{define "head"}}
<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<title>{{.}}</title>
	<style>
		:root {
			--bg: #090a0f;
			--card: rgba(255, 255, 255, 0.05);
			--border: rgba(255, 255, 255, 0.15);
			--text: #e7ecff;
			--muted: #a1acc5;
			--accent: #7dd3fc;
			--accent-strong: #38bdf8;
			--danger: #fca5a5;
			font-family: "Inter", -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
		}
		* { box-sizing: border-box; }
		body {
			margin: 0;
			min-height: 100vh;
			display: flex;
			justify-content: center;
			padding: 48px 16px;
			background: radial-gradient(circle at 20% 20%, #111827, #030712 60%);
			color: var(--text);
		}
		main { width: min(960px, 96vw); }
		.card {
			background: var(--card);
			border: 1px solid var(--border);
			border-radius: 18px;
			padding: 28px;
			margin-bottom: 20px;
			box-shadow: 0 45px 100px rgba(0,0,0,0.35);
		}
		h1 { font-size: 1.6rem; margin: 0 0 18px; }
		p, .muted { color: var(--muted); }
		form { display: flex; flex-wrap: wrap; gap: 12px; }
		input {
			flex: 1 1 200px;
			height: 46px;
			padding: 0 14px;
			border-radius: 12px;
			border: 1px solid var(--border);
			background: rgba(0,0,0,0.25);
			color: var(--text);
		}
		input[name="url"] { flex-basis: 100%; }
		button, a.button {
			display: inline-flex;
			align-items: center;
			justify-content: center;
			padding: 0 28px;
			height: 46px;
			border: 0;
			border-radius: 999px;
			background: linear-gradient(120deg, var(--accent), var(--accent-strong));
			color: #050708;
			font-weight: 600;
			text-decoration: none;
			cursor: pointer;
		}
		a.link { color: var(--accent); word-break: break-all; }
		.alert {
			padding: 14px 18px;
			border-radius: 12px;
			border: 1px solid rgba(252, 165, 165, 0.4);
			background: rgba(252, 165, 165, 0.08);
			color: var(--danger);
			margin-bottom: 16px;
		}
		table { width: 100%; border-collapse: collapse; }
		th, td { text-align: left; padding: 10px 8px; border-bottom: 1px solid var(--border); vertical-align: top; }
		th { color: var(--muted); font-weight: 500; font-size: 0.85rem; text-transform: uppercase; letter-spacing: 0.06em; }
		td.url { word-break: break-all; }
		tr.expired td { opacity: 0.55; }
	</style>
</head>
<body>
<main>
{{end}}

{{define "foot"}}
</main>
</body>
</html>
{{end}}
`))

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func page(name, body string) *template.Template {
	return template.Must(template.Must(layoutTmpl.Clone()).New(name).Parse(body))
}
