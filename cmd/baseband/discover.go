package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/rjboer/GoBaseband/internal/mdns"
)

func newDiscoverCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Browse the local network for running baseband services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start := time.Now()
			hosts, err := mdns.Discover(cmd.Context(), timeout)
			if err != nil {
				return fmt.Errorf("discovery: %w", err)
			}
			printHosts(cmd.OutOrStdout(), hosts, time.Since(start))
			return nil
		},
	}
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 5*time.Second, "how long to browse")
	return cmd
}

func printHosts(w io.Writer, hosts []mdns.Host, took time.Duration) {
	if len(hosts) == 0 {
		fmt.Fprintf(w, "No services found (%s)\n", took.Truncate(time.Millisecond))
		return
	}
	fmt.Fprintf(w, "Discovered %d service(s) in %s\n", len(hosts), took.Truncate(time.Millisecond))
	for i, h := range hosts {
		fmt.Fprintf(w, " #%d %s\n", i+1, h.Instance)
		fmt.Fprintf(w, "    URL      : %s\n", h.URL())
		fmt.Fprintf(w, "    Hostname : %s\n", h.Hostname)
		keys := make([]string, 0, len(h.TXT))
		for k := range h.TXT {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "    %-9s: %s\n", k, h.TXT[k])
		}
	}
}
