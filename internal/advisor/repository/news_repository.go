package repository

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"stock-insight-agent/internal/advisor/config"
	"stock-insight-agent/internal/advisor/dto"
	"stock-insight-agent/pkg/logger"
	"stock-insight-agent/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/mauidude/go-readability"
	"github.com/mmcdole/gofeed"
)

var positiveKeywords = []string{
	"beat", "beats", "upgrade", "upgraded", "surge", "soar", "record",
	"strong", "growth", "raises", "outperform", "buyback", "dividend increase",
}

var negativeKeywords = []string{
	"miss", "misses", "downgrade", "downgraded", "plunge", "slump", "lawsuit",
	"weak", "cuts", "layoff", "recall", "investigation", "warning", "decline",
}

type newsRepository struct {
	cfg    *config.Config
	logger *logger.Logger
	client *http.Client
	parser *gofeed.Parser
}

// NewNewsRepository creates a NewsRepository over Yahoo Finance RSS feeds.
func NewNewsRepository(cfg *config.Config, log *logger.Logger) NewsRepository {
	timeout := cfg.News.RequestTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &newsRepository{
		cfg:    cfg,
		logger: log,
		client: &http.Client{Timeout: timeout},
		parser: gofeed.NewParser(),
	}
}

// GetTickerNews fetches recent headlines per ticker and scores them with a
// keyword heuristic. Any per-ticker failure downgrades to an empty entry.
func (r *newsRepository) GetTickerNews(ctx context.Context, tickers []string) ([]dto.TickerNews, error) {
	var result []dto.TickerNews
	var wg sync.WaitGroup
	var mu sync.Mutex

	semaphore := make(chan struct{}, 3)

	for _, ticker := range tickers {
		if !utils.ShouldContinue(ctx, r.logger) {
			break
		}
		ticker := ticker
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			news, err := r.fetchTickerNews(ctx, ticker)
			if err != nil {
				r.logger.Warn("Failed to fetch news, continuing without",
					logger.ErrorField(err), logger.StringField("ticker", ticker))
				return
			}

			mu.Lock()
			result = append(result, news)
			mu.Unlock()
		})
	}
	wg.Wait()

	return result, nil
}

func (r *newsRepository) fetchTickerNews(ctx context.Context, ticker string) (dto.TickerNews, error) {
	url := fmt.Sprintf("%s?s=%s&region=US&lang=en-US", r.cfg.News.RSSBaseURL, ticker)
	feed, err := r.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return dto.TickerNews{}, fmt.Errorf("failed to parse RSS feed: %w", err)
	}

	maxItems := r.cfg.News.MaxPerTicker
	if maxItems <= 0 {
		maxItems = 5
	}

	news := dto.TickerNews{Ticker: ticker}
	total := 0.0
	for i, item := range feed.Items {
		if i >= maxItems {
			break
		}
		headline := dto.Headline{
			Title: item.Title,
			Link:  item.Link,
		}
		if item.PublishedParsed != nil {
			headline.Published = *item.PublishedParsed
		}

		text := item.Title
		if body := r.fetchArticleBody(ctx, item.Link); body != "" {
			text = text + " " + body
		}
		headline.SentimentScore = scoreSentiment(text)

		total += headline.SentimentScore
		news.Headlines = append(news.Headlines, headline)
	}

	if len(news.Headlines) > 0 {
		news.SentimentScore = utils.RoundFloat(total/float64(len(news.Headlines)), 2)
	}
	return news, nil
}

// fetchArticleBody pulls the readable text of an article. Extraction is
// best-effort; any failure returns "".
func (r *newsRepository) fetchArticleBody(ctx context.Context, link string) string {
	if link == "" {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ""
	}

	docReader, err := readability.NewDocument(string(raw))
	if err != nil {
		return ""
	}
	content := docReader.Content()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(doc.Text())
	if len(text) > 2000 {
		text = text[:2000]
	}
	return text
}

func scoreSentiment(text string) float64 {
	lower := strings.ToLower(text)
	score := 0.0
	for _, kw := range positiveKeywords {
		if strings.Contains(lower, kw) {
			score++
		}
	}
	for _, kw := range negativeKeywords {
		if strings.Contains(lower, kw) {
			score--
		}
	}
	if score > 3 {
		score = 3
	}
	if score < -3 {
		score = -3
	}
	return score / 3
}
