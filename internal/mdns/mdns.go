// Package mdns advertises and discovers baseband control endpoints over
// multicast DNS.
package mdns

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	Service = "_baseband._tcp"
	Domain  = "local."
)

// Host represents a discovered baseband endpoint.
type Host struct {
	Instance  string // Advertised name: "baseband on bench"
	Hostname  string // DNS hostname: "bench.local."
	Addresses []net.IP
	Port      int
	TXT       map[string]string
}

// URL returns the HTTP base URL of the first address, or of the hostname when
// no address resolved.
func (h Host) URL() string {
	host := strings.TrimSuffix(h.Hostname, ".")
	if len(h.Addresses) > 0 {
		host = h.Addresses[0].String()
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(h.Port))
}

// Register advertises the endpoint until ctx is canceled.
func Register(ctx context.Context, instance string, port int, txt map[string]string) error {
	server, err := zeroconf.Register(instance, Service, Domain, port, encodeTXT(txt), nil)
	if err != nil {
		return fmt.Errorf("register %s: %w", Service, err)
	}
	<-ctx.Done()
	server.Shutdown()
	return nil
}

// Discover performs a blocking browse for baseband endpoints. It returns
// cleaned and deduplicated hosts sorted by instance name.
func Discover(ctx context.Context, timeout time.Duration) ([]Host, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("resolver error: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var found []*zeroconf.ServiceEntry

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case e, ok := <-entries:
				if !ok {
					return
				}
				if e != nil {
					found = append(found, e)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, Service, Domain, entries); err != nil {
		return nil, fmt.Errorf("browse error: %w", err)
	}

	<-done
	return collect(found), nil
}

// collect merges entries by hostname and port.
func collect(entries []*zeroconf.ServiceEntry) []Host {
	byKey := make(map[string]Host)
	for _, e := range entries {
		addrs := make([]net.IP, 0, len(e.AddrIPv4)+len(e.AddrIPv6))
		addrs = append(addrs, e.AddrIPv4...)
		addrs = append(addrs, e.AddrIPv6...)

		byKey[fmt.Sprintf("%s|%d", e.HostName, e.Port)] = Host{
			Instance:  cleanInstance(e.Instance),
			Hostname:  e.HostName,
			Addresses: addrs,
			Port:      e.Port,
			TXT:       decodeTXT(e.Text),
		}
	}

	out := make([]Host, 0, len(byKey))
	for _, h := range byKey {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })
	return out
}

// cleanInstance removes Zeroconf escape sequences: "\ " => " "
func cleanInstance(s string) string {
	return strings.ReplaceAll(s, `\ `, " ")
}

func encodeTXT(txt map[string]string) []string {
	keys := make([]string, 0, len(txt))
	for k := range txt {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+txt[k])
	}
	return out
}

func decodeTXT(records []string) map[string]string {
	out := make(map[string]string, len(records))
	for _, r := range records {
		k, v, _ := strings.Cut(r, "=")
		if k != "" {
			out[k] = v
		}
	}
	return out
}
