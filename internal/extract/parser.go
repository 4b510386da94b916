// internal/extract/parser.go
package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Prices outside this range are treated as extraction artifacts, not data.
const maxPlausiblePrice = 1000000

// amazonSelectors is the selector cascade for Amazon price displays, newest
// layouts first, legacy ids last.
var amazonSelectors = []string{
	"#corePrice_feature_div .a-offscreen",
	"#corePriceDisplay_desktop_feature_div .a-offscreen",
	"#apex_offerDisplay_desktop .a-offscreen",
	".apexPriceToPay .a-offscreen",
	"#tp_price_block_total_price_ww .a-offscreen",
	".priceToPay .a-offscreen",
	".reinventPricePriceToPayMargin .a-offscreen",
	"#priceblock_ourprice",
	"#priceblock_dealprice",
	"#priceblock_saleprice",
	".a-price .a-offscreen",
	"#price_inside_buybox",
	"#newBuyBoxPrice",
	"#kindle-price",
	"#price",
	".a-color-price",
	"span[data-a-color='price'] .a-offscreen",
}

// genericMetaSelectors cover the structured meta tags cooperative sites use.
var genericMetaSelectors = []string{
	"meta[property='og:price:amount']",
	"meta[property='product:price:amount']",
	"meta[name='price']",
	"meta[name='twitter:data1']",
	"meta[property='og:price']",
}

// genericClassSelectors are common storefront price class patterns.
var genericClassSelectors = []string{
	".product-price",
	".price",
	".current-price",
	".sale-price",
	".product__price",
	"[data-price]",
	"[data-product-price]",
	".price-value",
	".price__current",
	".product-single__price",
	"#product-price",
	".woocommerce-Price-amount",
}

// amazonScriptPatterns match price values embedded in Amazon page scripts.
var amazonScriptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"priceAmount":\s*([\d.]+)`),
	regexp.MustCompile(`"price":\s*"?\$?([\d,.]+)"?`),
	regexp.MustCompile(`buyingPrice["']?\s*:\s*["']?([\d,.]+)`),
}

// PriceFromHTML extracts a product price from page HTML, choosing the
// strategy by domain. Returns false when no plausible price is present.
func PriceFromHTML(domain, html string) (float64, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, false
	}
	return PriceFromDocument(domain, doc)
}

// PriceFromDocument extracts a price from a parsed document.
func PriceFromDocument(domain string, doc *goquery.Document) (float64, bool) {
	if isAmazonDomain(domain) {
		if price, ok := amazonPrice(doc); ok {
			return price, true
		}
	}
	return genericPrice(doc)
}

func isAmazonDomain(domain string) bool {
	if strings.Contains(domain, "amazon") {
		return true
	}
	switch domain {
	case "a.co", "amzn.to", "amzn.eu":
		return true
	}
	return false
}

// amazonPrice applies the Amazon-specific cascade: data attributes, the
// selector list, then prices embedded in scripts.
func amazonPrice(doc *goquery.Document) (float64, bool) {
	if attr, ok := doc.Find("[data-asin-price]").First().Attr("data-asin-price"); ok {
		if price, ok := ParsePrice(attr); ok {
			return price, true
		}
	}

	for _, selector := range amazonSelectors {
		text := doc.Find(selector).First().Text()
		if price, ok := ParsePrice(text); ok {
			return price, true
		}
	}

	var found float64
	doc.Find("script").EachWithBreak(func(i int, s *goquery.Selection) bool {
		content := s.Text()
		for _, pattern := range amazonScriptPatterns {
			if m := pattern.FindStringSubmatch(content); m != nil {
				if price, ok := ParsePrice(m[1]); ok {
					found = price
					return false
				}
			}
		}
		return true
	})
	if found > 0 {
		return found, true
	}
	return 0, false
}

// genericPrice walks the cooperative-site strategies in reliability order:
// meta tags, JSON-LD offers, microdata, then common class patterns.
func genericPrice(doc *goquery.Document) (float64, bool) {
	for _, selector := range genericMetaSelectors {
		if content, ok := doc.Find(selector).First().Attr("content"); ok {
			if price, ok := ParsePrice(content); ok {
				return price, true
			}
		}
	}

	if price, ok := jsonLDPrice(doc); ok {
		return price, true
	}

	micro := doc.Find("[itemprop='price']").First()
	if micro.Length() > 0 {
		value, ok := micro.Attr("content")
		if !ok {
			value = micro.Text()
		}
		if price, ok := ParsePrice(value); ok {
			return price, true
		}
	}

	for _, selector := range genericClassSelectors {
		var found float64
		doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
			value, ok := s.Attr("data-price")
			if !ok {
				value, ok = s.Attr("content")
			}
			if !ok {
				value = strings.TrimSpace(s.Text())
			}
			if price, ok := ParsePrice(value); ok && price < 100000 {
				found = price
				return false
			}
			return true
		})
		if found > 0 {
			return found, true
		}
	}

	return 0, false
}

// jsonLDPrice scans every JSON-LD block for Product/Offer price data.
func jsonLDPrice(doc *goquery.Document) (float64, bool) {
	var found float64
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(i int, s *goquery.Selection) bool {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		if price, ok := priceFromJSONLD(data); ok {
			found = price
			return false
		}
		return true
	})
	return found, found > 0
}

func priceFromJSONLD(data interface{}) (float64, bool) {
	switch v := data.(type) {
	case []interface{}:
		for _, item := range v {
			if price, ok := priceFromJSONLD(item); ok {
				return price, true
			}
		}
	case map[string]interface{}:
		if raw, ok := v["price"]; ok {
			if price, ok := parseJSONValue(raw); ok {
				return price, true
			}
		}

		switch offers := v["offers"].(type) {
		case map[string]interface{}:
			for _, field := range []string{"price", "lowPrice"} {
				if raw, ok := offers[field]; ok {
					if price, ok := parseJSONValue(raw); ok {
						return price, true
					}
				}
			}
		case []interface{}:
			for _, item := range offers {
				offer, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				if raw, ok := offer["price"]; ok {
					if price, ok := parseJSONValue(raw); ok {
						return price, true
					}
				}
			}
		}

		if graph, ok := v["@graph"]; ok {
			return priceFromJSONLD(graph)
		}
	}
	return 0, false
}

func parseJSONValue(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		if v > 0 && v <= maxPlausiblePrice {
			return v, true
		}
	case string:
		return ParsePrice(v)
	}
	return 0, false
}

var nonPriceChars = regexp.MustCompile(`[^\d.,\s]`)
var rangeSeparator = regexp.MustCompile(`\s*[-–]\s*|\s+[tT][oO]\s+`)

// ParsePrice normalizes a money string ("$1,299.99", "EUR 19,99",
// "12.50 - 19.00") into a float. Ranges collapse to the lower bound. Both
// US and European separator conventions are handled.
func ParsePrice(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	// Price ranges: take the first (lower) price.
	if strings.Contains(text, " - ") || strings.Contains(strings.ToLower(text), " to ") {
		text = rangeSeparator.Split(text, 2)[0]
	}

	cleaned := strings.TrimSpace(nonPriceChars.ReplaceAllString(text, ""))
	if fields := strings.Fields(cleaned); len(fields) > 1 {
		cleaned = fields[0]
	}
	if cleaned == "" {
		return 0, false
	}

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			// European format: 1.234,56
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			// US format: 1,234.56
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case hasComma:
		parts := strings.Split(cleaned, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			// European decimal: 19,99
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			// Thousands separator: 1,234
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || price <= 0 || price > maxPlausiblePrice {
		return 0, false
	}
	return price, true
}
