package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"stock-insight-agent/internal/advisor/config"
	"stock-insight-agent/internal/advisor/dto"
	"stock-insight-agent/pkg/common"
	"stock-insight-agent/pkg/logger"
	redisPkg "stock-insight-agent/pkg/redis"
	"stock-insight-agent/pkg/utils"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooFinanceRepository struct {
	cfg           *config.Config
	logger        *logger.Logger
	client        *http.Client
	limiter       *rate.Limiter
	inmemoryCache *cache.Cache
	redisClient   *redisPkg.Client
}

// NewYahooFinanceRepository creates a PriceRepository backed by the Yahoo
// Finance chart API. The redis client may be nil; last-price publishing is
// then skipped.
func NewYahooFinanceRepository(cfg *config.Config, log *logger.Logger, redisClient *redisPkg.Client) PriceRepository {
	perRequest := time.Minute / time.Duration(cfg.YahooFinance.MaxRequestPerMinute)
	timeout := cfg.YahooFinance.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	cacheTTL := cfg.YahooFinance.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}
	return &yahooFinanceRepository{
		cfg:           cfg,
		logger:        log,
		client:        &http.Client{Timeout: timeout},
		limiter:       rate.NewLimiter(rate.Every(perRequest), 1),
		inmemoryCache: cache.New(cacheTTL, 2*cacheTTL),
		redisClient:   redisClient,
	}
}

// GetPrices resolves current prices for a batch of tickers with a bounded
// worker pool. Per-ticker failures are logged and omitted from the result.
func (r *yahooFinanceRepository) GetPrices(ctx context.Context, param dto.GetPricesParam) (map[string]float64, error) {
	prices := make(map[string]float64, len(param.Tickers))

	maxConcurrent := r.cfg.YahooFinance.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	semaphore := make(chan struct{}, maxConcurrent)

	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for _, ticker := range param.Tickers {
		if !utils.ShouldContinue(ctx, r.logger) {
			break
		}
		ticker := ticker
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			price, err := r.getPrice(ctx, ticker)
			if err != nil {
				r.logger.Error("Failed to get price", logger.ErrorField(err), logger.StringField("ticker", ticker))
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}

			mu.Lock()
			prices[ticker] = price
			mu.Unlock()

			r.publishLastPrice(ctx, ticker, price)
		})
	}
	wg.Wait()

	if failed > 0 {
		r.logger.Warn("Some tickers could not be priced",
			logger.IntField("failed", failed),
			logger.IntField("requested", len(param.Tickers)),
		)
	}

	return prices, nil
}

// GetPeriodReturn computes a symbol's percentage return between the first
// and last close inside the window.
func (r *yahooFinanceRepository) GetPeriodReturn(ctx context.Context, param dto.GetPeriodReturnParam) (float64, error) {
	chart, err := r.fetchChart(ctx, fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d",
		r.cfg.YahooFinance.BaseURL, param.Ticker, param.Start.Unix(), param.End.Unix()))
	if err != nil {
		return 0, err
	}

	closes := closesOf(chart)
	var first, last float64
	for _, c := range closes {
		if c == nil || *c <= 0 {
			continue
		}
		if first == 0 {
			first = *c
		}
		last = *c
	}
	if first == 0 || last == 0 {
		return 0, fmt.Errorf("no usable closes for %s in window", param.Ticker)
	}
	return (last/first - 1) * 100, nil
}

func (r *yahooFinanceRepository) getPrice(ctx context.Context, ticker string) (float64, error) {
	if cached, ok := r.inmemoryCache.Get(ticker); ok {
		return cached.(float64), nil
	}

	chart, err := r.fetchChart(ctx, fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d",
		r.cfg.YahooFinance.BaseURL, ticker))
	if err != nil {
		return 0, err
	}

	price := 0.0
	if len(chart.Chart.Result) > 0 {
		price = chart.Chart.Result[0].Meta.RegularMarketPrice
	}
	if price <= 0 {
		// fall back to the last non-null close
		for _, c := range closesOf(chart) {
			if c != nil && *c > 0 {
				price = *c
			}
		}
	}
	if price <= 0 {
		return 0, fmt.Errorf("no price in chart response for %s", ticker)
	}

	r.inmemoryCache.Set(ticker, price, cache.DefaultExpiration)
	return price, nil
}

func (r *yahooFinanceRepository) fetchChart(ctx context.Context, url string) (*yahooChartResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("chart API returned %d: %s", resp.StatusCode, string(body))
	}

	var chart yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("failed to decode chart response: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error: %s", chart.Chart.Error.Description)
	}
	return &chart, nil
}

func (r *yahooFinanceRepository) publishLastPrice(ctx context.Context, ticker string, price float64) {
	if r.redisClient == nil {
		return
	}
	key := fmt.Sprintf(common.RedisKeyLastPrice, ticker)
	pipe := r.redisClient.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"price":     price,
		"timestamp": utils.TimeNowET().Unix(),
	})
	pipe.Expire(ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to publish last price", logger.ErrorField(err), logger.StringField("ticker", ticker))
	}
}

func closesOf(chart *yahooChartResponse) []*float64 {
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil
	}
	return chart.Chart.Result[0].Indicators.Quote[0].Close
}
