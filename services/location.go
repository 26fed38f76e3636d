package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"cyber_case_app_go/config"
)

// Lookup sources
const (
	LocationSourceLive  = "live"
	LocationSourceLocal = "local"
	LocationSourceDemo  = "demo"
)

// IPLocation is the geolocation of an IP address or domain
type IPLocation struct {
	Query        string  `json:"query"`
	ResolvedIP   string  `json:"resolved_ip,omitempty"`
	Country      string  `json:"country"`
	City         string  `json:"city"`
	ISP          string  `json:"isp"`
	Organization string  `json:"organization"`
	IsMobile     bool    `json:"is_mobile"`
	IsProxy      bool    `json:"is_proxy"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	MapURL       string  `json:"map_url"`
	Source       string  `json:"source"`
	Note         string  `json:"note,omitempty"`
}

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Country string  `json:"country"`
	City    string  `json:"city"`
	ISP     string  `json:"isp"`
	Org     string  `json:"org"`
	Mobile  bool    `json:"mobile"`
	Proxy   bool    `json:"proxy"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// IPLocator resolves domains and geolocates public addresses through an
// ip-api compatible endpoint. Only the address leaves the system.
type IPLocator struct {
	lookupURL string // fmt pattern with one %s for the address
	client    *http.Client
	resolve   func(ctx context.Context, host string) ([]string, error)
}

// NewIPLocator builds a locator from GEO_LOOKUP_URL and GEO_LOOKUP_TIMEOUT_SECONDS
func NewIPLocator(cfg *config.Config) *IPLocator {
	return &IPLocator{
		lookupURL: cfg.GeoLookupURL,
		client:    &http.Client{Timeout: cfg.GeoLookupTimeout},
		resolve:   net.DefaultResolver.LookupHost,
	}
}

func mapURL(lat, lon float64) string {
	return fmt.Sprintf("https://www.google.com/maps/search/?api=1&query=%v,%v", lat, lon)
}

func isInternal(addr netip.Addr) bool {
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified()
}

// Lookup locates an IP address or domain name. Private addresses are answered
// locally. An unreachable lookup service yields a demo result marked as such.
func (l *IPLocator) Lookup(ctx context.Context, query string) (*IPLocation, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, NewValidationError("query", "IP address or domain is required")
	}

	resolved := ""
	addr, err := netip.ParseAddr(query)
	if err != nil {
		hosts, lookupErr := l.resolve(ctx, query)
		if lookupErr != nil || len(hosts) == 0 {
			return nil, NewValidationError("query", "invalid domain name or IP address")
		}
		if addr, err = netip.ParseAddr(hosts[0]); err != nil {
			return nil, NewValidationError("query", "domain resolved to an invalid address")
		}
		resolved = addr.String()
	}

	if isInternal(addr) {
		return &IPLocation{
			Query:        query,
			ResolvedIP:   addr.String(),
			Country:      "Local Network (LAN)",
			City:         "Internal Device",
			ISP:          "Private/Intranet",
			Organization: "Local System",
			MapURL:       "#",
			Source:       LocationSourceLocal,
			Note:         "Private address; it exists only inside a local network, not on the public internet.",
		}, nil
	}

	data, err := l.fetch(ctx, addr.String())
	if err != nil {
		log.Printf("[TOOLS] IP lookup for %s failed: %v; returning demo data", addr, err)
		return demoLocation(query, addr.String()), nil
	}
	if data.Status == "fail" {
		return nil, NewValidationError("query", "lookup failed: %s", data.Message)
	}

	return &IPLocation{
		Query:        query,
		ResolvedIP:   resolved,
		Country:      data.Country,
		City:         data.City,
		ISP:          data.ISP,
		Organization: data.Org,
		IsMobile:     data.Mobile,
		IsProxy:      data.Proxy,
		Lat:          data.Lat,
		Lon:          data.Lon,
		MapURL:       mapURL(data.Lat, data.Lon),
		Source:       LocationSourceLive,
	}, nil
}

func (l *IPLocator) fetch(ctx context.Context, ip string) (*ipAPIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(l.lookupURL, ip), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup service returned %d", resp.StatusCode)
	}
	var data ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode lookup response: %w", err)
	}
	return &data, nil
}

// demoLocation is shown when the lookup service cannot be reached
func demoLocation(query, ip string) *IPLocation {
	const lat, lon = 26.8467, 80.9462
	return &IPLocation{
		Query:        query,
		ResolvedIP:   ip,
		Country:      "India (Demo Result)",
		City:         "Lucknow",
		ISP:          "Reliance Jio Infocomm Ltd",
		Organization: "Jio",
		IsMobile:     true,
		Lat:          lat,
		Lon:          lon,
		MapURL:       mapURL(lat, lon),
		Source:       LocationSourceDemo,
		Note:         "External lookup unreachable. Showing demo data.",
	}
}
