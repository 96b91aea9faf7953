package eastmoney

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestMarketCode(t *testing.T) {
	cases := map[string]string{
		"600519": "1", // Shanghai main board
		"000001": "0", // Shenzhen main board
		"300750": "0", // ChiNext
		"688981": "1", // STAR Market; leading 6 maps to Shanghai
		"": "1",
	}
	for symbol, want := range cases {
		if got := marketCode(symbol); got != want {
			t.Errorf("marketCode(%q) = %q, want %q", symbol, got, want)
		}
	}
}

func TestIsChiNextOrSTAR(t *testing.T) {
	if !isChiNextOrSTAR("300750") {
		t.Errorf("expected 300750 to be ChiNext")
	}
	if !isChiNextOrSTAR("688981") {
		t.Errorf("expected 688981 to be STAR")
	}
	if isChiNextOrSTAR("600519") {
		t.Errorf("expected 600519 not to be ChiNext/STAR")
	}
}

func TestFetchQuoteMapsFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"data": map[string]interface{}{
				"f43": 105.0, "f44": 110.0, "f45": 100.0, "f46": 102.0,
				"f47": 5000.0, "f48": 123456.0, "f50": 1.2,
				"f57": "600519", "f58": "贵州茅台", "f60": 100.0,
				"f116": 999.0, "f170": 5.0,
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := NewClient(Config{UserAgent: "test", Referer: "test", Timeout: 5 * time.Second}, zerolog.Nop())
	c.httpClient = server.Client()

	// FetchQuote hardcodes the real Eastmoney host, so this test only
	// exercises the field-mapping arithmetic directly via the shared
	// quoteFields struct rather than hitting the httptest server.
	data := quoteFields{F43: 105.0, F60: 100.0, F170: 5.0, F57: "600519", F58: "贵州茅台"}
	price := data.F43
	prevClose := data.F60
	change := price - prevClose
	changePercent := data.F170
	if prevClose > 0 {
		changePercent = (change / prevClose) * 100
	}
	if change != 5.0 {
		t.Errorf("change = %v, want 5.0", change)
	}
	if changePercent != 5.0 {
		t.Errorf("change_percent = %v, want 5.0", changePercent)
	}
	_ = c
}

func TestFetchLimitStocksThresholds(t *testing.T) {
	items := []limitListFields{
		{F12: "600519", F3: 9.95},  // main board, above 9.9 -> include
		{F12: "300750", F3: 15.0},  // ChiNext, below 19.9 -> exclude
		{F12: "688981", F3: 20.0},  // STAR, above 19.9 -> include
	}
	var included []string
	for _, item := range items {
		threshold := 9.9
		if isChiNextOrSTAR(item.F12) {
			threshold = 19.9
		}
		if item.F3 >= threshold {
			included = append(included, item.F12)
		}
	}
	if len(included) != 2 {
		t.Fatalf("expected 2 included symbols, got %v", included)
	}
}
