package scraper

// Deal represents the product currently featured in the daily-deal banner.
type Deal struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	URL           string  `json:"url"`
	OriginalPrice float64 `json:"original_price"`
	NewPrice      float64 `json:"new_price"`
}

// ItemMeta is the identifying metadata recovered from a product page.
type ItemMeta struct {
	ID   int
	Name string
}
