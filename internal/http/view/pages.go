package view

import (
	"encoding/json"
	"time"
)

// MaxResults bounds how many earlier result cards the form carries forward.
const MaxResults = 50

// ShortenResult is one successfully shortened URL shown on the form page.
type ShortenResult struct {
	LongURL  string    `json:"longUrl"`
	ShortURL string    `json:"shortUrl"`
	Expiry   time.Time `json:"expiry"`
}

// HomePageData feeds the submission form.
type HomePageData struct {
	Alert   string
	Results []ShortenResult
	// Form values echoed back after a failed submit.
	URL       string
	Validity  string
	ShortCode string
}

var homeTmpl = page("home", `
{{template "head" "URL Shortener"}}
<div class="card">
	<h1>URL Shortener</h1>
	{{if .Alert}}<div class="alert" role="alert">{{.Alert}}</div>{{end}}
	<form method="post" action="/shorten">
		<input name="url" type="text" placeholder="Enter Long URL" value="{{.URL}}" required />
		<input name="validity" type="number" min="1" max="525600" placeholder="Validity (minutes)" value="{{.Validity}}" />
		<input name="shortcode" type="text" placeholder="Custom Shortcode (optional)" value="{{.ShortCode}}" />
		{{with .ResultsState}}<input name="results" type="hidden" value="{{.}}" />{{end}}
		<button type="submit">Shorten</button>
	</form>
</div>
{{range .Results}}
<div class="card">
	<div>Original: <span class="muted">{{.LongURL}}</span></div>
	<div>Short: <a class="link" href="{{.ShortURL}}" target="_blank" rel="noreferrer">{{.ShortURL}}</a></div>
	<div class="muted">Expires {{fmtTime .Expiry}}</div>
</div>
{{end}}
<a class="button" href="/stats">View Statistics</a>
{{template "foot"}}
`)

// ResultsState serializes Results for the hidden form field that carries
// them into the next submission.
func (d HomePageData) ResultsState() string {
	if len(d.Results) == 0 {
		return ""
	}
	data, err := json.Marshal(d.Results)
	if err != nil {
		return ""
	}
	return string(data)
}

// DecodeResults parses a ResultsState value. Malformed input yields no results
// and only the newest MaxResults entries are kept.
func DecodeResults(state string) []ShortenResult {
	if state == "" {
		return nil
	}
	var results []ShortenResult
	if err := json.Unmarshal([]byte(state), &results); err != nil {
		return nil
	}
	if len(results) > MaxResults {
		results = results[len(results)-MaxResults:]
	}
	return results
}

// RenderHome renders the submission form with the results of this session.
func RenderHome(data HomePageData) (string, error) {
	return render(homeTmpl, data)
}

// StatsRow is one line of the statistics table.
type StatsRow struct {
	ShortURL  string
	LongURL   string
	CreatedAt time.Time
	Expiry    time.Time
	Clicks    int
	Expired   bool
}

type StatsPageData struct {
	Rows []StatsRow
}

var statsTmpl = page("stats", `
{{template "head" "Statistics"}}
<div class="card">
	<h1>Statistics</h1>
	{{if .Rows}}
	<table>
		<thead>
			<tr><th>Short URL</th><th>Original URL</th><th>Created</th><th>Expiry</th><th>Clicks</th></tr>
		</thead>
		<tbody>
		{{range .Rows}}
			<tr{{if .Expired}} class="expired"{{end}}>
				<td><a class="link" href="{{.ShortURL}}" target="_blank" rel="noreferrer">{{.ShortURL}}</a></td>
				<td class="url">{{.LongURL}}</td>
				<td>{{fmtTime .CreatedAt}}</td>
				<td>{{fmtTime .Expiry}}</td>
				<td>{{.Clicks}}</td>
			</tr>
		{{end}}
		</tbody>
	</table>
	{{else}}
	<p>No links yet.</p>
	{{end}}
</div>
<a class="button" href="/">Back</a>
{{template "foot"}}
`)

// RenderStats renders the statistics table.
func RenderStats(data StatsPageData) (string, error) {
	return render(statsTmpl, data)
}

type AlertPageData struct {
	Title   string
	Message string
}

var alertTmpl = page("alert", `
{{template "head" .Title}}
<div class="card">
	<h1>{{.Title}}</h1>
	<div class="alert" role="alert">{{.Message}}</div>
	<a class="button" href="/">Back to shortener</a>
</div>
{{template "foot"}}
`)

// RenderAlert renders a standalone message page that links back to the form.
func RenderAlert(data AlertPageData) (string, error) {
	if data.Title == "" {
		data.Title = "QuickLink"
	}
	return render(alertTmpl, data)
}
