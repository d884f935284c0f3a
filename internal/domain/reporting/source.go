package reporting

import (
	"net/url"
	"strings"
)

// DirectSource labels traffic with no referrer.
const DirectSource = "Прямой"

var sourceParams = []string{"utm_source", "source", "utm"}

var utmParams = []string{"utm_source", "utm_medium", "utm_campaign"}

var sourceKeywords = []struct{ token, label string }{
	{"google", "Google"},
	{"yandex", "Yandex"},
	{"vk.com", "VK"},
	{"vk", "VK"},
	{"t.me", "Telegram"},
	{"telegram", "Telegram"},
	{"youtube", "YouTube"},
	{"instagram", "Instagram"},
}

// Source derives a coarse traffic label from a referrer URL. Explicit query
// parameters win, then known platforms, then the bare host.
func Source(page string) string {
	if page == "" {
		return DirectSource
	}
	var host string
	if u, err := url.Parse(page); err == nil {
		params := u.Query()
		for _, key := range sourceParams {
			if v := firstValue(params, key); v != "" {
				return truncate(v, 48)
			}
		}
		host = strings.ToLower(u.Host)
	}
	lower := strings.ToLower(page)
	for _, kw := range sourceKeywords {
		if strings.Contains(lower, kw.token) || strings.Contains(host, kw.token) {
			return kw.label
		}
	}
	if host != "" {
		return host
	}
	return DirectSource
}

// UTM holds campaign tags found on a referrer.
type UTM struct {
	Source   string `json:"utm_source,omitempty"`
	Medium   string `json:"utm_medium,omitempty"`
	Campaign string `json:"utm_campaign,omitempty"`
}

// ExtractUTM reads utm_source, utm_medium and utm_campaign from page.
func ExtractUTM(page string) UTM {
	if page == "" {
		return UTM{}
	}
	u, err := url.Parse(page)
	if err != nil {
		return UTM{}
	}
	params := u.Query()
	values := make([]string, len(utmParams))
	for i, key := range utmParams {
		values[i] = truncate(firstValue(params, key), 64)
	}
	return UTM{Source: values[0], Medium: values[1], Campaign: values[2]}
}

func firstValue(params url.Values, key string) string {
	for _, v := range params[key] {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
