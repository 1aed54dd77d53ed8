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

// vpn-ip-init is the probe pod's init container: it records the host's
// unmasked public IP to a file shared with the probe container, before the
// vpn container has a chance to bring up a tunnel.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/thavlik/vpn-operator/internal/probe"
)

func main() {
	ipFile := os.Getenv("IP_FILE")
	if ipFile == "" {
		ipFile = "/shared/ip"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	ip, err := probe.FetchPublicIP(ctx, nil, os.Getenv("IP_ECHO_URL"))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to fetch baseline public IP: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(ipFile, []byte(ip), 0o644); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", ipFile, err)
		os.Exit(1)
	}

	fmt.Printf("baseline public ip %s written to %s\n", ip, ipFile)
}
