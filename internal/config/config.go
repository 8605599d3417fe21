package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Network struct {
		WSKeepAliveSeconds  int `yaml:"ws_keepalive_seconds"`
		WSDialTimeoutSecs   int `yaml:"ws_dial_timeout_seconds"`
		WSBackoffMaxSeconds int `yaml:"ws_backoff_max_seconds"`
	} `yaml:"network"`
	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
	Server struct {
		Addr                string   `yaml:"addr"`
		Pprof               bool     `yaml:"pprof"`
		ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
		IdleTimeoutSeconds  int      `yaml:"idle_timeout_seconds"`
		AdminAllowCIDRs     []string `yaml:"admin_allow_cidrs"`
		APIRatePerSecond    float64  `yaml:"api_rate_per_second"`
		APIBurst            int      `yaml:"api_burst"`
	} `yaml:"server"`
	Market struct {
		Symbol string `yaml:"symbol"`
		Depth  int    `yaml:"depth"`
	} `yaml:"market"`
	Bybit struct {
		Testnet        bool   `yaml:"testnet"`
		WSURL          string `yaml:"ws_url"`
		TestnetWSURL   string `yaml:"testnet_ws_url"`
		RestURL        string `yaml:"rest_url"`
		TestnetRestURL string `yaml:"testnet_rest_url"`
		Category       string `yaml:"category"`
	} `yaml:"bybit"`
	Replay struct {
		File       string `yaml:"file"`
		IntervalMs int    `yaml:"interval_ms"`
	} `yaml:"replay"`
}

// WSEndpoint returns the websocket URL honoring the testnet switch.
func (c Config) WSEndpoint() string {
	if c.Bybit.Testnet {
		return c.Bybit.TestnetWSURL
	}
	return c.Bybit.WSURL
}

// RestEndpoint returns the REST base URL honoring the testnet switch.
func (c Config) RestEndpoint() string {
	if c.Bybit.Testnet {
		return c.Bybit.TestnetRestURL
	}
	return c.Bybit.RestURL
}

func defaultConfig() Config {
	var c Config
	c.Network.WSKeepAliveSeconds = 20
	c.Network.WSDialTimeoutSecs = 15
	c.Network.WSBackoffMaxSeconds = 30
	c.Logging.Level = "info"
	c.Logging.Pretty = false
	c.Server.Addr = ":9090"
	c.Server.Pprof = false
	c.Server.ReadTimeoutSeconds = 5
	c.Server.WriteTimeoutSeconds = 10
	c.Server.IdleTimeoutSeconds = 60
	c.Server.AdminAllowCIDRs = []string{"127.0.0.0/8", "::1/128"}
	c.Server.APIRatePerSecond = 50
	c.Server.APIBurst = 100
	c.Market.Symbol = "BTCUSDT"
	c.Market.Depth = 50
	c.Bybit.Testnet = false
	c.Bybit.WSURL = "wss://stream.bybit.com/v5/public/linear"
	c.Bybit.TestnetWSURL = "wss://stream-testnet.bybit.com/v5/public/linear"
	c.Bybit.RestURL = "https://api.bybit.com"
	c.Bybit.TestnetRestURL = "https://api-testnet.bybit.com"
	c.Bybit.Category = "linear"
	return c
}

func Load() Config {
	c := defaultConfig()
	if path := os.Getenv("ORDERBOOK_CONFIG"); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}
	if v := os.Getenv("ORDERBOOK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ORDERBOOK_LOG_PRETTY"); v == "1" || v == "true" {
		c.Logging.Pretty = true
	}
	if v := os.Getenv("ORDERBOOK_HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("ORDERBOOK_PPROF"); v == "1" || v == "true" {
		c.Server.Pprof = true
	}
	if v := os.Getenv("ORDERBOOK_ADMIN_ALLOW_CIDRS"); v != "" {
		c.Server.AdminAllowCIDRs = splitCSV(v)
	}
	if v := os.Getenv("ORDERBOOK_SYMBOL"); v != "" {
		c.Market.Symbol = v
	}
	if v := os.Getenv("ORDERBOOK_DEPTH"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Market.Depth = n
		}
	}
	if v := os.Getenv("ORDERBOOK_TESTNET"); v == "1" || v == "true" {
		c.Bybit.Testnet = true
	}
	// Direct endpoint overrides are mostly useful for pointing at a local stub in tests.
	if v := os.Getenv("ORDERBOOK_BYBIT_WS_URL"); v != "" {
		c.Bybit.WSURL = v
		c.Bybit.TestnetWSURL = v
	}
	if v := os.Getenv("ORDERBOOK_BYBIT_REST_URL"); v != "" {
		c.Bybit.RestURL = v
		c.Bybit.TestnetRestURL = v
	}
	if v := os.Getenv("ORDERBOOK_REPLAY_FILE"); v != "" {
		c.Replay.File = v
	}
	if v := os.Getenv("ORDERBOOK_REPLAY_INTERVAL_MS"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n >= 0 {
			c.Replay.IntervalMs = n
		}
	}
	return c
}

func splitCSV(s string) []string {
	var out []string
	buf := []rune{}
	for _, r := range s {
		if r == ',' {
			if len(buf) > 0 {
				out = append(out, string(buf))
				buf = buf[:0]
			}
			continue
		}
		buf = append(buf, r)
	}
	if len(buf) > 0 {
		out = append(out, string(buf))
	}
	return out
}
