package nameresolver

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/dhive/dhive/pkg/keys"
)

// requestTimeout bounds a single provider round-trip.
const requestTimeout = 5 * time.Second

// txtRecordPrefix is the conventional DNS TXT record prefix this resolver
// expects a hostname's archive key to be published under, following the
// established "dat" well-known TXT record convention.
const txtRecordPrefix = "datkey="

// dohResponse is the subset of the DNS-over-HTTPS JSON response format
// (RFC 8484 / draft-ietf-doh-dns-over-https JSON variant) this resolver
// reads.
type dohResponse struct {
	Answer []struct {
		Type int    `json:"type"`
		Data string `json:"data"`
	} `json:"Answer"`
}

// httpProvider implements Provider against a DoH endpoint returning the
// JSON response format both Cloudflare and Google serve.
type httpProvider struct {
	name     string
	endpoint string
	client   *http.Client
}

func newHTTPProvider(name, endpoint string) *httpProvider {
	return &httpProvider{
		name:     name,
		endpoint: endpoint,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

func (p *httpProvider) Name() string { return p.name }

func (p *httpProvider) Resolve(ctx context.Context, name string) (keys.Key, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	query := url.Values{}
	query.Set("name", name)
	query.Set("type", "TXT")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return keys.Key{}, errors.Wrap(err, "unable to construct doh request")
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := p.client.Do(req)
	if err != nil {
		return keys.Key{}, errors.Wrap(err, "doh request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return keys.Key{}, fmt.Errorf("doh provider %s returned status %d", p.name, resp.StatusCode)
	}

	var decoded dohResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return keys.Key{}, errors.Wrap(err, "unable to decode doh response")
	}

	for _, answer := range decoded.Answer {
		// TXT type per RFC 1035.
		if answer.Type != 16 {
			continue
		}
		record := unquoteTXT(answer.Data)
		if len(record) <= len(txtRecordPrefix) || record[:len(txtRecordPrefix)] != txtRecordPrefix {
			continue
		}
		raw, err := hex.DecodeString(record[len(txtRecordPrefix):])
		if err != nil || len(raw) != keys.Size {
			continue
		}
		var key keys.Key
		copy(key[:], raw)
		return key, nil
	}

	return keys.Key{}, fmt.Errorf("no datkey TXT record found for %s", name)
}

// unquoteTXT strips the surrounding quotes DoH JSON responses wrap TXT
// record data in.
func unquoteTXT(data string) string {
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		return data[1 : len(data)-1]
	}
	return data
}

// NewCloudflareProvider returns a Provider backed by Cloudflare's public
// DoH resolver.
func NewCloudflareProvider() Provider {
	return newHTTPProvider("cloudflare", "https://cloudflare-dns.com/dns-query")
}

// NewGoogleProvider returns a Provider backed by Google's public DoH
// resolver.
func NewGoogleProvider() Provider {
	return newHTTPProvider("google", "https://dns.google/resolve")
}
