// Package scraper extracts the featured daily deal, per-product metadata
// and exchange rates from their upstream endpoints. Selectors follow the
// deal site's Magento markup; any missing element is a parsing error and
// aborts the caller's current run, with no retry.
package scraper

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pupbodhi/dealbot/helpers"
	"pupbodhi/dealbot/pkg/errors"
	"pupbodhi/dealbot/services/cache"
)

const (
	selBanner     = ".promtion-banner"
	selTitle      = ".page-title span"
	selOldPrice   = ".old-price .price"
	selNewPrice   = ".special-price .price"
	selPriceBox   = ".price-final_price"
	selMetaName   = ".product-info-main span[itemprop=name]"
	attrProductID = "data-product-id"
)

var nonPrice = regexp.MustCompile(`[^0-9.\-]+`)

// Scraper fetches and parses the deal site and the exchange-rate API.
type Scraper struct {
	SiteURL   string
	RatesURL  string
	CacheKey  string
	CacheSvc  cache.CacheService
	BlockTime time.Duration
}

// New creates a Scraper. cacheSvc may be nil, which disables the
// rate-limit guard.
func New(siteURL, ratesURL string, cacheSvc cache.CacheService, blockTime time.Duration) *Scraper {
	return &Scraper{
		SiteURL:   strings.TrimRight(siteURL, "/"),
		RatesURL:  strings.TrimRight(ratesURL, "/"),
		CacheKey:  "libidex_rate_limited",
		CacheSvc:  cacheSvc,
		BlockTime: blockTime,
	}
}

// FetchFeaturedDeal locates the promotional banner on the home page,
// follows its first link and extracts the featured product's name,
// price pair and numeric id.
func (s *Scraper) FetchFeaturedDeal() (*Deal, error) {
	doc, err := s.fetchDocument(s.SiteURL)
	if err != nil {
		return nil, err
	}

	banner := doc.Find(selBanner)
	if banner.Length() == 0 {
		return nil, errors.NewParsing("scraper", "promotional banner not found", nil)
	}

	href, ok := banner.Find("a").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return nil, errors.NewParsing("scraper", "banner link not found", nil)
	}
	itemURL := s.resolveURL(strings.TrimSpace(href))

	itemDoc, err := s.fetchDocument(itemURL)
	if err != nil {
		return nil, err
	}

	title := itemDoc.Find(selTitle).First()
	if title.Length() == 0 {
		return nil, errors.NewParsing("scraper", "item title not found", nil)
	}

	original, err := parsePrice(itemDoc.Find(selOldPrice).First())
	if err != nil {
		return nil, errors.NewParsing("scraper", "old price not found", err)
	}
	discounted, err := parsePrice(itemDoc.Find(selNewPrice).First())
	if err != nil {
		return nil, errors.NewParsing("scraper", "special price not found", err)
	}

	id, err := productID(itemDoc)
	if err != nil {
		return nil, err
	}

	return &Deal{
		ID:            id,
		Name:          strings.TrimSpace(title.Text()),
		URL:           itemURL,
		OriginalPrice: original,
		NewPrice:      discounted,
	}, nil
}

// FetchItemMetadata recovers the product id and display name from a
// product page URL. Used by the add/remove watchlist commands.
func (s *Scraper) FetchItemMetadata(url string) (*ItemMeta, error) {
	doc, err := s.fetchDocument(url)
	if err != nil {
		return nil, err
	}

	id, err := productID(doc)
	if err != nil {
		return nil, err
	}

	name := doc.Find(selMetaName).First()
	if name.Length() == 0 {
		return nil, errors.NewParsing("scraper", "item name not found", nil)
	}

	return &ItemMeta{ID: id, Name: strings.TrimSpace(name.Text())}, nil
}

// FetchExchangeRates returns the current multiplier for every currency
// against the base currency. Called once per dispatcher run; no caching.
func (s *Scraper) FetchExchangeRates(base string) (map[string]float64, error) {
	data, err := helpers.FetchSimply(s.RatesURL + "/" + base)
	if err != nil {
		return nil, errors.NewNetwork("scraper", "fetching exchange rates", err)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.NewParsing("scraper", "parsing exchange rates", err)
	}
	if len(payload.Rates) == 0 {
		return nil, errors.NewParsing("scraper", "exchange rate response has no rates", nil)
	}

	return payload.Rates, nil
}

// fetchDocument fetches a URL behind the rate-limit guard and parses it.
func (s *Scraper) fetchDocument(url string) (*goquery.Document, error) {
	if s.CacheSvc != nil && s.CacheKey != "" {
		if _, err := s.CacheSvc.Get(s.CacheKey); err == nil {
			return nil, errors.NewNetwork("scraper",
				fmt.Sprintf("%s: blocked after rate limiting, not sending requests for %d seconds",
					s.CacheKey, int(s.BlockTime/time.Second)), nil)
		}
	}

	body, err := helpers.FetchWithRandomHeaders(url)
	if err != nil {
		if s.CacheSvc != nil && s.CacheKey != "" && strings.HasPrefix(err.Error(), "rate limited") {
			s.CacheSvc.Set(s.CacheKey, []byte(strconv.Itoa(int(s.BlockTime/time.Second))), s.BlockTime)
		}
		return nil, errors.NewNetwork("scraper", "fetching "+url, err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, errors.NewParsing("scraper", "parsing HTML from "+url, err)
	}
	return doc, nil
}

// resolveURL resolves a site-relative link against the site base.
func (s *Scraper) resolveURL(href string) string {
	if strings.HasPrefix(href, "/") {
		return s.SiteURL + href
	}
	return href
}

// productID reads the numeric product id carried as a data attribute on
// the price element.
func productID(doc *goquery.Document) (int, error) {
	attr, ok := doc.Find(selPriceBox).First().Attr(attrProductID)
	if !ok {
		return 0, errors.NewParsing("scraper", "product id attribute not found", nil)
	}
	id, err := strconv.Atoi(strings.TrimSpace(attr))
	if err != nil {
		return 0, errors.NewParsing("scraper", "product id is not numeric", err)
	}
	return id, nil
}

// parsePrice strips everything but digits, dots and minus signs from the
// selection's text and converts the remainder to a float.
func parsePrice(sel *goquery.Selection) (float64, error) {
	if sel.Length() == 0 {
		return 0, fmt.Errorf("price element missing")
	}
	raw := nonPrice.ReplaceAllString(sel.Text(), "")
	if raw == "" {
		return 0, fmt.Errorf("price text empty")
	}
	return strconv.ParseFloat(raw, 64)
}
