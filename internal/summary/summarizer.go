package summary

import (
	"context"
	"sync"

	"github.com/primendon/dailycut/internal/collector"
	"github.com/primendon/dailycut/internal/logging"
	"github.com/primendon/dailycut/internal/metrics"
	"github.com/primendon/dailycut/internal/processor"
)

const (
	summarizeConcurrency = 3
	// 正文抓取慢，每轮只补前几条没有摘要的头条
	maxExtractHeadlines = 4
	extractMaxChars     = 400
)

// Summarizer 给播客单集生成"值不值得听"的推荐语，
// 给没有摘要的头条补一段正文摘录。出错一律回落，不会让刷新失败。
type Summarizer struct {
	llm     *LLMClient
	extract *ExtractClient
	metrics *metrics.Collector
	log     logging.Logger
}

func New(apiKey, extractorURL string, m *metrics.Collector, log logging.Logger) *Summarizer {
	s := &Summarizer{metrics: m, log: log}
	if apiKey != "" {
		s.llm = NewLLMClient(apiKey)
	}
	if extractorURL != "" {
		s.extract = NewExtractClient(extractorURL)
	}
	return s
}

// Summarize 单条播客的推荐语，LLM 不可用或出错时回落到截断描述
func (s *Summarizer) Summarize(ctx context.Context, show, title, description string) string {
	if s.llm != nil {
		text, err := s.llm.Summarize(ctx, show, title, description)
		if err == nil && text != "" {
			s.metrics.RecordSummary("llm")
			return text
		}
		if err != nil {
			s.log.Warnf("summary: llm for %s: %v", show, err)
		}
	}
	s.metrics.RecordSummary("fallback")
	return fallbackSummary(description)
}

// Apply 批量补摘要，并发写的是不同下标，互不干扰
func (s *Summarizer) Apply(ctx context.Context, items []processor.ContentItem) []processor.ContentItem {
	if s == nil {
		return items
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, summarizeConcurrency)
	extracted := 0

	for i := range items {
		switch {
		case items[i].Kind == collector.KindPodcastSummary:
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				items[i].Summary = s.Summarize(ctx, items[i].SourceName, items[i].Title, items[i].Summary)
			}(i)
		case items[i].Kind == collector.KindHeadline && items[i].Summary == "" &&
			s.extract != nil && items[i].URL != "" && extracted < maxExtractHeadlines:
			extracted++
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				text, err := s.extract.Extract(ctx, items[i].URL, extractMaxChars)
				if err != nil {
					s.log.Warnf("summary: extract %s: %v", items[i].URL, err)
					return
				}
				if text != "" {
					items[i].Summary = text
					s.metrics.RecordSummary("extract")
				}
			}(i)
		}
	}
	wg.Wait()
	return items
}
