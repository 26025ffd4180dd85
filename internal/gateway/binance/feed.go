// Package binance fetches an external reference price used to seed the
// simulated market's initial tick.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
)

// Config controls the reference price fetch.
type Config struct {
	Symbol      string
	RESTBaseURL string
	HTTPTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	return c
}

// Feed wraps the spot REST client.
type Feed struct {
	cfg    Config
	client *binance.Client
}

func New(cfg Config) (*Feed, error) {
	final := cfg.withDefaults()
	if strings.TrimSpace(final.Symbol) == "" {
		return nil, fmt.Errorf("feed symbol is required")
	}
	client := binance.NewClient("", "")
	if base := strings.TrimSpace(final.RESTBaseURL); base != "" {
		client.BaseURL = base
	}
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Feed{cfg: final, client: client}, nil
}

// ReferencePrice returns the latest spot price for the configured symbol.
// Binance requires symbols without slashes (e.g. ETHUSDT).
func (f *Feed) ReferencePrice(ctx context.Context) (float64, error) {
	clean := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(f.cfg.Symbol), "/", ""))
	prices, err := f.client.NewListPricesService().Symbol(clean).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch price for %s: %w", clean, err)
	}
	for _, p := range prices {
		if p == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(p.Price), 64)
		if err != nil {
			return 0, fmt.Errorf("parse price %q: %w", p.Price, err)
		}
		if v > 0 {
			return v, nil
		}
	}
	return 0, fmt.Errorf("no price returned for %s", clean)
}
