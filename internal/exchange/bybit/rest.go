package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cyChopp/bybit-orderbook-visualizer/internal/config"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/network"
)

// RestClient covers the one REST call this service needs: checking at
// startup that the configured symbol actually trades in the configured
// category, so a typo fails fast instead of producing a silent empty stream.
type RestClient struct {
	base     string
	category string
	http     *http.Client
}

func NewRestClient(cfg config.Config) *RestClient {
	return &RestClient{
		base:     cfg.RestEndpoint(),
		category: cfg.Bybit.Category,
		http:     network.NewHTTPClient(5 * time.Second),
	}
}

type instrumentsResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Symbol string `json:"symbol"`
			Status string `json:"status"`
		} `json:"list"`
	} `json:"result"`
}

// InstrumentExists queries /v5/market/instruments-info for the symbol.
func (c *RestClient) InstrumentExists(ctx context.Context, symbol string) (bool, error) {
	q := url.Values{}
	q.Set("category", c.category)
	q.Set("symbol", symbol)
	u := c.base + "/v5/market/instruments-info?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("instruments-info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("instruments-info: status %d", resp.StatusCode)
	}
	var out instrumentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("instruments-info decode: %w", err)
	}
	if out.RetCode != 0 {
		return false, fmt.Errorf("instruments-info: retCode %d: %s", out.RetCode, out.RetMsg)
	}
	for _, it := range out.Result.List {
		if it.Symbol == symbol {
			return true, nil
		}
	}
	return false, nil
}
