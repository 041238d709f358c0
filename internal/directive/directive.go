package directive

import (
	"errors"
	"regexp"
	"strings"
)

// UserAttribute is the attribute holding the directory username. It is the
// only column shown when a directive configures no attributes.
const UserAttribute = "user"

const (
	keyGroups     = "groups"
	keyAttributes = "attributes"
	keyTitles     = "titles"
)

var ErrMissingGroups = errors.New("missing groups configuration")

// Pattern matches a complete groupmatrix block in page source, from the
// opening marker line to the closing line of dashes. Lines may end in CRLF.
var Pattern = regexp.MustCompile(`(?s)-{3,} *groupmatrix *-+\r?\n.*?\r?\n-{4,}`)

// Config is the normalized content of one directive.
type Config struct {
	Groups     []string `json:"groups"`
	Attributes []string `json:"attributes"`
	Titles     []string `json:"titles,omitempty"`
	Headers    []string `json:"headers"`
}

// FindAll returns the byte offsets of every directive in source.
func FindAll(source string) [][]int {
	return Pattern.FindAllStringIndex(source, -1)
}

// Parse reads a matched directive block. The opening and closing marker lines
// are discarded and every remaining line is read as "key: value".
func Parse(match string) (Config, error) {
	lines := strings.Split(strings.ReplaceAll(match, "\r\n", "\n"), "\n")
	if len(lines) >= 2 {
		lines = lines[1 : len(lines)-1]
	} else {
		lines = nil
	}

	return FromValues(parseLines(lines))
}

// FromValues builds a Config from raw key/value settings, as found in a
// directive body or passed as query parameters.
func FromValues(values map[string]string) (Config, error) {
	groups := SplitList(values[keyGroups])
	if len(groups) == 0 {
		return Config{}, ErrMissingGroups
	}

	attributes := SplitList(values[keyAttributes])
	if len(attributes) == 0 {
		attributes = []string{UserAttribute}
	}

	cfg := Config{
		Groups:     groups,
		Attributes: attributes,
		Titles:     SplitList(values[keyTitles]),
	}
	cfg.Headers = headers(cfg.Attributes, cfg.Groups, cfg.Titles)

	return cfg, nil
}

// SplitList splits a comma separated value, trims every item and drops the
// empty ones.
func SplitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

func parseLines(lines []string) map[string]string {
	values := make(map[string]string)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, _ := strings.Cut(line, ":")
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return values
}

// headers lists the attributes followed by one header per group. Titles
// replace group names by position; groups without a title keep their name.
func headers(attributes, groups, titles []string) []string {
	out := make([]string, 0, len(attributes)+len(groups))
	out = append(out, attributes...)
	for i, group := range groups {
		if i < len(titles) {
			out = append(out, titles[i])
			continue
		}
		out = append(out, group)
	}
	return out
}
