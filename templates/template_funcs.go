package templates

import (
	"encoding/json"
	"fmt"
	"html/template"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/benson/survivor/models"
)

// GetTemplateFuncs returns the template function map for HTML templates
func GetTemplateFuncs() template.FuncMap {
	return template.FuncMap{
		// Basic math functions
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"seq": func(start, end int) []int {
			result := make([]int, end-start+1)
			for i := range result {
				result[i] = start + i
			}
			return result
		},

		// String functions
		"lower":    strings.ToLower,
		"contains": strings.Contains,
		"join":     strings.Join,

		// JSON and data functions
		"toJSON": func(v interface{}) template.JS {
			data, _ := json.Marshal(v)
			return template.JS(data)
		},
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("dict: number of arguments must be even")
			}
			result := make(map[string]interface{})
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict: key must be string, got %T", values[i])
				}
				result[key] = values[i+1]
			}
			return result, nil
		},

		// Scoring display functions
		"formatPoints": formatPoints,
		"ordinal":      ordinal,
		"eventLabel":   eventLabel,
		"formatTime":   formatTime,

		// Entry form functions
		"hasPick":      hasPick,
		"hasAlternate": hasAlternate,
	}
}

// formatPoints renders a point value without float noise: 12 stays "12",
// 12.5 stays "12.5".
func formatPoints(points float64) string {
	return strconv.FormatFloat(points, 'f', -1, 64)
}

// ordinal formats a display rank: 1 -> "1st", 22 -> "22nd", 13 -> "13th".
func ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// eventLabel renders a scoring key for humans: "individualImmunity"
// becomes "Individual immunity".
func eventLabel(key string) string {
	spaced := strings.ToLower(camelBoundary.ReplaceAllString(key, "$1 $2"))
	if spaced == "" {
		return ""
	}
	return strings.ToUpper(spaced[:1]) + spaced[1:]
}

// formatTime renders a timestamp for page display, blank when unset.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006 3:04 PM MST")
}

// hasPick reports whether an entry already picked the named contestant,
// for pre-checking the roster checkboxes when a player edits their entry.
func hasPick(entry *models.Entry, name string) bool {
	if entry == nil {
		return false
	}
	for _, pick := range entry.Picks {
		if pick == name {
			return true
		}
	}
	return false
}

// hasAlternate reports whether an entry already lists the named
// contestant as an alternate.
func hasAlternate(entry *models.Entry, name string) bool {
	if entry == nil {
		return false
	}
	for _, alt := range entry.Alternates {
		if alt == name {
			return true
		}
	}
	return false
}
