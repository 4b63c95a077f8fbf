package sensor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// NmcliScanner scans with NetworkManager's command-line client.
type NmcliScanner struct {
	// run executes a command and returns its stdout. Replaced in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewNmcliScanner creates a scanner that shells out to nmcli.
func NewNmcliScanner() *NmcliScanner {
	return &NmcliScanner{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, name, args...).Output()
	}}
}

// Scan forces a rescan and returns one entry per access point.
func (s *NmcliScanner) Scan(ctx context.Context) ([]string, error) {
	out, err := s.run(ctx, "nmcli", "-t", "-f", "SSID", "device", "wifi", "list", "--rescan", "yes")
	if err != nil {
		return nil, fmt.Errorf("nmcli scan: %w", err)
	}
	return parseNmcli(string(out)), nil
}

// parseNmcli splits terse nmcli output. Hidden networks appear as empty
// entries and still count as visible.
func parseNmcli(out string) []string {
	out = strings.TrimRight(out, "\n")
	if out == "" {
		return nil
	}
	lines := strings.Split(out, "\n")
	ssids := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		line = strings.ReplaceAll(line, `\:`, ":")
		line = strings.ReplaceAll(line, `\\`, `\`)
		ssids = append(ssids, line)
	}
	return ssids
}
