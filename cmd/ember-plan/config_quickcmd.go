package main

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var (
	tableHeaderRe     = regexp.MustCompile(`^\s*\[([^\]]+)\]\s*$`)
	epsilonPpmAssignRe = regexp.MustCompile(`^(\s*epsilon_ppm\s*=\s*)(-?\d+)(.*)$`)
)

func setEpsilonPpmInConfigFile(path, epsilonPpm string) (bool, error) {
	value := strings.TrimSpace(epsilonPpm)
	if value == "" {
		return false, fmt.Errorf("epsilon_ppm is required")
	}
	if _, err := strconv.Atoi(value); err != nil {
		return false, fmt.Errorf("invalid epsilon_ppm %q: %w", value, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read config %s: %w", path, err)
	}

	updated, changed, err := setEpsilonPpmInConfigContent(string(raw), value)
	if err != nil {
		return false, fmt.Errorf("update epsilon_ppm in %s: %w", path, err)
	}
	if !changed {
		return false, nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return false, fmt.Errorf("write config %s: %w", path, err)
	}
	return true, nil
}

func setEpsilonPpmInConfigContent(input, epsilonPpm string) (output string, changed bool, err error) {
	if strings.TrimSpace(input) == "" {
		return input, false, fmt.Errorf("config content is empty")
	}

	lines := strings.Split(input, "\n")
	currentTable := ""
	found := false

	for i, line := range lines {
		if header, ok := parseTableHeader(line); ok {
			currentTable = strings.ToLower(strings.TrimSpace(header))
		}
		if currentTable != "risk" {
			continue
		}
		m := epsilonPpmAssignRe.FindStringSubmatch(line)
		if len(m) != 4 {
			continue
		}
		found = true
		updated := m[1] + epsilonPpm + m[3]
		if updated != line {
			lines[i] = updated
			changed = true
		}
	}

	if !found {
		return input, false, fmt.Errorf("no [risk].epsilon_ppm assignment found in config")
	}

	return strings.Join(lines, "\n"), changed, nil
}

func parseTableHeader(line string) (string, bool) {
	m := tableHeaderRe.FindStringSubmatch(line)
	if len(m) != 2 {
		return "", false
	}
	return m[1], true
}
