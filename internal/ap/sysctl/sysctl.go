// Package sysctl toggles kernel parameters in the persistent sysctl
// configuration file.
package sysctl

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	commentedForward = regexp.MustCompile(`^\s*#\s*net\.ipv4\.ip_forward\s*=\s*1\s*$`)
	enabledForward   = regexp.MustCompile(`^\s*net\.ipv4\.ip_forward\s*=\s*1\s*$`)
)

// EnableIPForwarding uncomments the net.ipv4.ip_forward line in the sysctl
// configuration at path. Already-enabled lines are left alone, and a file
// without the line at all is not modified: the step reports no change rather
// than inventing configuration the administrator never wrote.
func EnableIPForwarding(path string) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	lines := strings.Split(string(raw), "\n")
	changed := false
	for i, line := range lines {
		if enabledForward.MatchString(line) {
			return false, nil
		}
		if commentedForward.MatchString(line) {
			lines[i] = "net.ipv4.ip_forward=1"
			changed = true
			break
		}
	}

	if !changed {
		return false, nil
	}

	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}

	return true, nil
}
