package sensor

import (
	"fmt"
	"sort"
	"strings"
)

// ConsoleFormatter renders sensor readings for terminal output
type ConsoleFormatter struct{}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter() *ConsoleFormatter {
	return &ConsoleFormatter{}
}

// FormatSensors formats the current reading of every sensor as a tree
func (f *ConsoleFormatter) FormatSensors(sensors []*Sensor) string {
	if len(sensors) == 0 {
		return "No sensors"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\nSensors (%d):\n\n", len(sensors))

	for i, s := range sensors {
		isLast := i == len(sensors)-1
		f.formatSensor(&sb, s, s.Reading(), isLast)

		if !isLast {
			sb.WriteString("\u2502\n")
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

func (f *ConsoleFormatter) formatSensor(sb *strings.Builder, s *Sensor, r Reading, isLast bool) {
	prefix := "\u251c"
	indent := "\u2502   "
	if isLast {
		prefix = "\u2570"
		indent = "    "
	}

	fmt.Fprintf(sb, "%s\u2500\u2500 %s: %s\n", prefix, s.Name(), r.StateString())
	fmt.Fprintf(sb, "%sEntity: %s\n", indent, s.EntityID())
	if !r.UpdatedAt.IsZero() {
		fmt.Fprintf(sb, "%sUpdated: %s\n", indent, r.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	for _, k := range sortedKeys(r.Attributes) {
		switch v := r.Attributes[k].(type) {
		case nil:
			continue
		case map[string]any:
			fmt.Fprintf(sb, "%s%s:\n", indent, k)
			for _, sub := range sortedKeys(v) {
				fmt.Fprintf(sb, "%s  %s: %v\n", indent, sub, v[sub])
			}
		default:
			fmt.Fprintf(sb, "%s%s: %v\n", indent, k, v)
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
