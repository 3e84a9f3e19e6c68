package tlsutil

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/dnscache"
	"github.com/rs/zerolog/log"
)

const resolverRefreshTTL = 5 * time.Minute

var (
	globalResolver     *dnscache.Resolver
	globalResolverOnce sync.Once
)

// GetDNSResolver returns the shared caching DNS resolver. The Proxmox host is
// resolved on every API call otherwise, which is wasteful for a server that
// talks to a single cluster endpoint.
func GetDNSResolver() *dnscache.Resolver {
	globalResolverOnce.Do(func() {
		globalResolver = &dnscache.Resolver{}

		go func() {
			ticker := time.NewTicker(resolverRefreshTTL)
			defer ticker.Stop()

			for range ticker.C {
				globalResolver.Refresh(true)
				log.Debug().Dur("ttl", resolverRefreshTTL).Msg("DNS cache refreshed")
			}
		}()
	})
	return globalResolver
}

// DialContextWithCache is a DialContext function that uses the DNS cache.
func DialContextWithCache(ctx context.Context, network, address string) (net.Conn, error) {
	resolver := GetDNSResolver()

	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}

	ips, err := resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, &net.DNSError{
			Err:  "no IP addresses found",
			Name: host,
		}
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0], port))
}
