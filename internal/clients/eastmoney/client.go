// Package eastmoney talks to Eastmoney's public push2/secapi endpoints to
// fetch real-time quotes, daily K-lines, fuzzy symbol search and
// limit-up/limit-down lists for Chinese A-share stocks.
package eastmoney

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/arduino-watcher/internal/domain"
	"github.com/rs/zerolog"
)

// Client is an Eastmoney market-data client. Unlike a brokerage or
// fundamentals API, these endpoints are unauthenticated and best-effort:
// a single failed request is not retried, it's surfaced to the caller
// so a dispatcher can log it and move on to the next symbol.
type Client struct {
	httpClient *http.Client
	userAgent  string
	referer    string
	log        zerolog.Logger
}

// Config configures the headers and timeout a Client uses.
type Config struct {
	UserAgent string
	Referer   string
	Timeout   time.Duration
}

// NewClient creates an Eastmoney client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  cfg.UserAgent,
		referer:    cfg.Referer,
		log:        log.With().Str("client", "eastmoney").Logger(),
	}
}

// marketCode maps a 6-digit A-share symbol to Eastmoney's secid market
// prefix: 6xxxxx trades on Shanghai (1), 0xxxxx/3xxxxx on Shenzhen (0),
// anything else defaults to Shanghai.
func marketCode(symbol string) string {
	if symbol == "" {
		return "1"
	}
	switch symbol[0] {
	case '6':
		return "1"
	case '0', '3':
		return "0"
	default:
		return "1"
	}
}

// isChiNextOrSTAR reports whether a symbol trades on the ChiNext (30x) or
// STAR Market (68x) boards, which use a wider 19.9% limit-up/down band
// instead of the 9.9% main-board band.
func isChiNextOrSTAR(symbol string) bool {
	return strings.HasPrefix(symbol, "30") || strings.HasPrefix(symbol, "68")
}

func (c *Client) get(reqURL string, withReferer bool) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("eastmoney: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if withReferer {
		req.Header.Set("Referer", c.referer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eastmoney: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eastmoney: unexpected status %d", resp.StatusCode)
	}

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("eastmoney: read body: %w", err)
	}
	return buf, nil
}

// FetchQuote fetches a single symbol's real-time snapshot.
func (c *Client) FetchQuote(symbol string) (*domain.StockQuote, error) {
	market := marketCode(symbol)
	reqURL := fmt.Sprintf(
		"https://push2.eastmoney.com/api/qt/stock/get?secid=%s.%s&fields=f43,f44,f45,f46,f47,f48,f50,f57,f58,f60,f116,f170&fltt=2&invt=2",
		market, symbol,
	)

	body, err := c.get(reqURL, true)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("eastmoney: parse quote response: %w", err)
	}
	if raw.Data == nil || string(raw.Data) == "null" {
		return nil, fmt.Errorf("eastmoney: empty quote data for %s", symbol)
	}

	var data quoteFields
	if err := json.Unmarshal(raw.Data, &data); err != nil {
		return nil, fmt.Errorf("eastmoney: parse quote fields: %w", err)
	}

	price := data.F43
	prevClose := data.F60
	change := price - prevClose
	changePercent := data.F170
	if prevClose > 0 {
		changePercent = (change / prevClose) * 100
	}

	name := data.F58
	if name == "" {
		name = symbol
	}

	return &domain.StockQuote{
		Symbol:        symbolOr(data.F57, symbol),
		Name:          name,
		Price:         price,
		Change:        change,
		ChangePercent: changePercent,
		Volume:        data.F47,
		High:          data.F44,
		Low:           data.F45,
		Open:          data.F46,
		PrevClose:     prevClose,
		Turnover:      data.F48,
		VolumeRatio:   data.F50,
		MarketCap:     data.F116,
		Timestamp:     time.Now(),
	}, nil
}

func symbolOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// FetchBatchQuotes fetches quotes for several symbols sequentially,
// tolerating per-symbol failures: one bad symbol doesn't abort the rest.
func (c *Client) FetchBatchQuotes(symbols []string) []*domain.StockQuote {
	quotes := make([]*domain.StockQuote, 0, len(symbols))
	for _, symbol := range symbols {
		q, err := c.FetchQuote(symbol)
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("fetch quote failed")
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes
}

// SearchStocks fuzzily searches symbols by name or code, restricted to
// Shanghai/Shenzhen A-shares (MktNum 01/02).
func (c *Client) SearchStocks(keyword string) ([]domain.StockSearchResult, error) {
	reqURL := fmt.Sprintf(
		"https://searchapi.eastmoney.com/api/suggest/get?input=%s&type=14&token=D43BF722C8E33BDC906FB84D85E326E8&count=10",
		url.QueryEscape(keyword),
	)

	body, err := c.get(reqURL, false)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		QuotationCodeTable struct {
			Data []struct {
				Code   string `json:"Code"`
				Name   string `json:"Name"`
				MktNum string `json:"MktNum"`
			} `json:"Data"`
		} `json:"QuotationCodeTable"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("eastmoney: parse search response: %w", err)
	}

	var out []domain.StockSearchResult
	for _, item := range parsed.QuotationCodeTable.Data {
		var market string
		switch item.MktNum {
		case "01":
			market = "沪"
		case "02":
			market = "深"
		default:
			continue
		}
		out = append(out, domain.StockSearchResult{
			Symbol: item.Code,
			Name:   item.Name,
			Market: market,
		})
	}
	return out, nil
}

// LimitType selects the limit-up or limit-down scan in FetchLimitStocks.
type LimitType string

const (
	LimitUp   LimitType = "up"
	LimitDown LimitType = "down"
)

// FetchLimitStocks scans the market for stocks currently at their
// limit-up or limit-down band: 9.9% on the main board, 19.9% on the
// ChiNext/STAR boards.
func (c *Client) FetchLimitStocks(limitType LimitType) ([]*domain.StockQuote, error) {
	sortOrder := "1"
	if limitType == LimitDown {
		sortOrder = "0"
	} else if limitType != LimitUp {
		return nil, fmt.Errorf("eastmoney: invalid limit type %q", limitType)
	}

	reqURL := fmt.Sprintf(
		"https://push2.eastmoney.com/api/qt/clist/get?pn=1&pz=50&po=%s&np=1&fltt=2&invt=2&fields=f2,f3,f4,f5,f6,f7,f12,f14,f15,f16,f17,f18&fid=f3&fs=m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23",
		sortOrder,
	)

	body, err := c.get(reqURL, true)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data struct {
			Diff []limitListFields `json:"diff"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("eastmoney: parse limit list response: %w", err)
	}

	var out []*domain.StockQuote
	for _, item := range parsed.Data.Diff {
		threshold := 9.9
		if isChiNextOrSTAR(item.F12) {
			threshold = 19.9
		}

		var include bool
		switch limitType {
		case LimitUp:
			include = item.F3 >= threshold
		case LimitDown:
			include = item.F3 <= -threshold
		}
		if !include {
			continue
		}

		out = append(out, &domain.StockQuote{
			Symbol:        item.F12,
			Name:          item.F14,
			Price:         item.F2,
			Change:        item.F4,
			ChangePercent: item.F3,
			Volume:        item.F5,
			High:          item.F15,
			Low:           item.F16,
			Open:          item.F17,
			PrevClose:     item.F18,
			Turnover:      item.F6,
			VolumeRatio:   item.F7,
			Timestamp:     time.Now(),
		})
	}
	return out, nil
}

// FetchDailyKlines fetches the most recent `limit` daily bars for a
// symbol, oldest first.
func (c *Client) FetchDailyKlines(symbol string, limit int) ([]domain.KlineBar, error) {
	market := marketCode(symbol)
	reqURL := fmt.Sprintf(
		"https://push2his.eastmoney.com/api/qt/stock/kline/get?secid=%s.%s&klt=101&fqt=1&end=20500101&lmt=%d&fields1=f1,f2,f3,f4,f5,f6&fields2=f51,f52,f53,f54,f55,f56,f57",
		market, symbol, limit,
	)

	body, err := c.get(reqURL, true)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data struct {
			Klines []string `json:"klines"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("eastmoney: parse kline response: %w", err)
	}
	if len(parsed.Data.Klines) == 0 {
		return nil, fmt.Errorf("eastmoney: empty kline data for %s", symbol)
	}

	bars := make([]domain.KlineBar, 0, len(parsed.Data.Klines))
	for _, line := range parsed.Data.Klines {
		parts := strings.Split(line, ",")
		if len(parts) < 6 {
			continue
		}
		bars = append(bars, domain.KlineBar{
			Date:   parts[0],
			Open:   parseFloat(parts[1]),
			Close:  parseFloat(parts[2]),
			High:   parseFloat(parts[3]),
			Low:    parseFloat(parts[4]),
			Volume: parseFloat(parts[5]),
		})
	}
	return bars, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
