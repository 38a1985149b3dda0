package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/primendon/dailycut/internal/collector"
	"github.com/primendon/dailycut/internal/digest"
	"github.com/primendon/dailycut/internal/logging"
	"github.com/primendon/dailycut/internal/metrics"
	"github.com/primendon/dailycut/internal/processor"
)

const (
	resendEndpoint = "https://api.resend.com/emails"
	sendTimeout    = 15 * time.Second

	// 邮件里每个板块最多放几条、摘要截多长
	maxPerSection = 5
	maxDescRunes  = 150
)

// Mailer 通过 Resend 发送日报邮件
type Mailer struct {
	apiKey   string
	from     string
	to       string
	endpoint string
	client   *http.Client
	metrics  *metrics.Collector
	log      logging.Logger
}

func NewMailer(apiKey, from, to string, m *metrics.Collector, log logging.Logger) *Mailer {
	return &Mailer{
		apiKey:   apiKey,
		from:     from,
		to:       to,
		endpoint: resendEndpoint,
		client:   &http.Client{Timeout: sendTimeout},
		metrics:  m,
		log:      log,
	}
}

// Enabled 有 key 且配了收件人才算启用
func (m *Mailer) Enabled() bool {
	return m != nil && m.apiKey != "" && m.to != ""
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// SendDigest 渲染并发送日报，返回 Resend 的邮件 id
func (m *Mailer) SendDigest(ctx context.Context, items []processor.ContentItem, next *digest.Countdown) (string, error) {
	if !m.Enabled() {
		return "", fmt.Errorf("notify: mailer not configured")
	}

	now := time.Now().UTC()
	html, err := renderDigest(now, items, next)
	if err != nil {
		m.metrics.RecordEmail(err)
		return "", fmt.Errorf("notify: render digest: %w", err)
	}

	body, err := json.Marshal(sendRequest{
		From:    m.from,
		To:      []string{m.to},
		Subject: "The Daily Cut - " + now.Format("January 2, 2006"),
		HTML:    html,
	})
	if err != nil {
		return "", fmt.Errorf("notify: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		m.metrics.RecordEmail(err)
		return "", fmt.Errorf("notify: send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("notify: resend returned status %d", resp.StatusCode)
		m.metrics.RecordEmail(err)
		return "", err
	}

	var sr sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		m.metrics.RecordEmail(err)
		return "", fmt.Errorf("notify: decode response: %w", err)
	}

	m.metrics.RecordEmail(nil)
	m.log.Infof("notify: digest email sent to %s, id=%s", m.to, sr.ID)
	return sr.ID, nil
}

type digestItem struct {
	Title     string
	URL       string
	Source    string
	Summary   string
	Thumbnail string
}

type digestSection struct {
	Title string
	Color string
	Items []digestItem
}

type digestData struct {
	Today    string
	Sections []digestSection
	Empty    bool
	Next     *digest.Countdown
}

// 板块顺序与配色固定：播客绿、访谈红、颁奖金
var sectionOrder = []struct {
	kind  collector.SourceKind
	title string
	color string
}{
	{collector.KindPodcastSummary, "New Podcast Episodes", "#1DB954"},
	{collector.KindInterview, "Latest Interviews", "#FF0000"},
	{collector.KindHeadline, "Award News", "#FFD700"},
}

func renderDigest(now time.Time, items []processor.ContentItem, next *digest.Countdown) (string, error) {
	data := digestData{
		Today: now.Format("January 2, 2006"),
		Empty: len(items) == 0,
		Next:  next,
	}

	for _, sec := range sectionOrder {
		var list []digestItem
		for _, it := range items {
			if it.Kind != sec.kind {
				continue
			}
			list = append(list, digestItem{
				Title:     it.Title,
				URL:       linkOrFallback(it.URL),
				Source:    it.SourceName,
				Summary:   truncateDesc(it.Summary),
				Thumbnail: it.Thumbnail,
			})
			if len(list) == maxPerSection {
				break
			}
		}
		if len(list) > 0 {
			data.Sections = append(data.Sections, digestSection{Title: sec.title, Color: sec.color, Items: list})
		}
	}

	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func linkOrFallback(u string) string {
	if u == "" {
		return "#"
	}
	return u
}

func truncateDesc(s string) string {
	rs := []rune(s)
	if len(rs) <= maxDescRunes {
		return s
	}
	return string(rs[:maxDescRunes-3]) + "..."
}

var digestTmpl = template.Must(template.New("digest").Parse(digestTemplate))

const digestTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>The Daily Cut - {{.Today}}</title>
</head>
<body style="margin: 0; padding: 0; background-color: #0a0a0a; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif;">
<table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #0a0a0a;">
<tr><td align="center" style="padding: 20px;">
<table role="presentation" width="100%" style="max-width: 600px; background-color: #141414; border-radius: 12px; overflow: hidden;">
<tr>
<td style="background: linear-gradient(135deg, #e50914 0%, #b20710 100%); padding: 30px 20px; text-align: center;">
<h1 style="margin: 0; color: #ffffff; font-size: 28px; font-weight: 700; letter-spacing: -0.5px;">The Daily Cut</h1>
<p style="margin: 8px 0 0 0; color: rgba(255,255,255,0.85); font-size: 14px;">{{.Today}}</p>
</td>
</tr>
{{if .Next}}
<tr>
<td style="padding: 14px 20px; background-color: #1f1f1f; text-align: center;">
<p style="margin: 0; color: #FFD700; font-size: 13px; font-weight: 600;">{{if .Next.IsToday}}{{.Next.Name}} is tonight on {{.Next.Network}}!{{else if .Next.IsTomorrow}}{{.Next.Name}} is tomorrow on {{.Next.Network}}{{else}}{{.Next.DaysUntil}} days until the {{.Next.Name}} on {{.Next.Network}}{{end}}</p>
</td>
</tr>
{{end}}
<tr>
<td style="padding: 20px;">
{{range .Sections}}{{$color := .Color}}
<div style="margin-bottom: 30px;">
<h2 style="margin: 0 0 15px 0; color: #ffffff; font-size: 18px; font-weight: 600; padding-bottom: 10px; border-bottom: 2px solid {{$color}};">{{.Title}}</h2>
{{range .Items}}
<div style="margin-bottom: 15px; padding: 15px; background-color: #1a1a1a; border-radius: 8px;">
<table role="presentation" width="100%" cellspacing="0" cellpadding="0">
<tr>
{{if .Thumbnail}}
<td width="80" valign="top" style="padding-right: 12px;">
<img src="{{.Thumbnail}}" alt="" width="80" height="80" style="border-radius: 6px; display: block;">
</td>
{{end}}
<td valign="top">
<a href="{{.URL}}" style="color: #ffffff; text-decoration: none; font-size: 15px; font-weight: 600; line-height: 1.3; display: block; margin-bottom: 4px;">{{.Title}}</a>
<p style="margin: 0 0 6px 0; color: {{$color}}; font-size: 12px; font-weight: 500;">{{.Source}}</p>
<p style="margin: 0; color: #999999; font-size: 13px; line-height: 1.4;">{{.Summary}}</p>
</td>
</tr>
</table>
</div>
{{end}}
</div>
{{end}}
{{if .Empty}}
<div style="text-align: center; padding: 40px 20px; color: #888888;">
<p style="margin: 0; font-size: 16px;">No new content today. Check back tomorrow!</p>
</div>
{{end}}
</td>
</tr>
<tr>
<td style="padding: 20px; border-top: 1px solid #2a2a2a; text-align: center;">
<p style="margin: 0; color: #666666; font-size: 12px;">Your daily entertainment digest from The Daily Cut</p>
</td>
</tr>
</table>
</td></tr>
</table>
</body>
</html>`
