/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package probe implements the public-IP lookup performed by the probe
// sidecar (cmd/vpn-probe) and its baseline counterpart (cmd/vpn-ip-init).
// Verification compares the two: if the VPN tunnel is actually routing
// traffic, the probe's view of the pod's public IP differs from the
// baseline captured before the tunnel came up.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// IPLookupServices lists the endpoints queried, in order, to discover the
// caller's public IP. Plain text and JSON-object responses are both
// accepted; this package falls through to the next service on any error.
var IPLookupServices = []string{
	"https://api.ipify.org?format=json",
	"https://ifconfig.me/ip",
	"https://icanhazip.com",
}

// FetchPublicIP queries url and returns its parsed address. If url is
// empty, it queries IPLookupServices in order instead and returns the first
// successfully parsed address, falling through to the next service on any
// error.
func FetchPublicIP(ctx context.Context, client *http.Client, url string) (string, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	if url != "" {
		return fetchOne(ctx, client, url)
	}

	var lastErr error
	for _, svc := range IPLookupServices {
		ip, err := fetchOne(ctx, client, svc)
		if err != nil {
			lastErr = err
			continue
		}
		return ip, nil
	}
	return "", fmt.Errorf("all public IP lookup services failed: %w", lastErr)
}

func fetchOne(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request %s: %w", url, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("read response from %s: %w", url, err)
	}

	text := strings.TrimSpace(string(body))
	if strings.HasPrefix(text, "{") {
		var doc struct {
			IP string `json:"ip"`
		}
		if err := json.Unmarshal(body, &doc); err != nil {
			return "", fmt.Errorf("parse json response from %s: %w", url, err)
		}
		text = strings.TrimSpace(doc.IP)
	}

	if text == "" {
		return "", fmt.Errorf("%s returned an empty address", url)
	}
	return text, nil
}
