// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package remote

import (
	"fmt"
	"net"
	"os"

	"github.com/hashicorp/go-sockaddr"
)

// isUnspecified reports whether host binds every interface
func isUnspecified(host string) bool {
	if host == "" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsUnspecified()
}

// GetBindIP returns the IP a service bound to host is reachable at.
// An unspecified host resolves to a private IP, then a public one.
func GetBindIP(host string) (string, error) {
	if !isUnspecified(host) {
		return host, nil
	}

	ipStr, err := sockaddr.GetPrivateIP()
	if err != nil {
		return "", fmt.Errorf("failed to get private interface addresses: %w", err)
	}

	// if we could not find a private address, we need to expand our search to a public
	// ip address
	if ipStr == "" {
		ipStr, err = sockaddr.GetPublicIP()
		if err != nil {
			return "", fmt.Errorf("failed to get public interface addresses: %w", err)
		}
	}

	if ipStr == "" {
		return "", fmt.Errorf("no private IP address found, and explicit IP not provided")
	}

	parsed := net.ParseIP(ipStr)
	if parsed == nil {
		return "", fmt.Errorf("failed to parse private IP address: %q", ipStr)
	}
	return parsed.String(), nil
}

// bindHosts returns the hosts a service bound to host can be reached at, best first
func bindHosts(host string) []string {
	if !isUnspecified(host) {
		return []string{host}
	}

	hosts := make([]string, 0, 2)
	if ip, err := GetBindIP(host); err == nil {
		hosts = append(hosts, ip)
	}
	return append(hosts, "127.0.0.1")
}

// advertisedHost returns the host name used in service URIs
func advertisedHost(cfg *config) string {
	if cfg.advertisedHost != "" {
		return cfg.advertisedHost
	}
	if name, err := os.Hostname(); err == nil && name != "" {
		return name
	}
	return bindHosts(cfg.bindHost)[0]
}
