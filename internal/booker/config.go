package booker

import (
	"bytes"
	"errors"
	"fmt"
	"shiftbooker/lib/configutil"
	"shiftbooker/lib/scrapers/betterimpact"
	"shiftbooker/lib/shifts"
	"slices"

	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

const DefaultOpportunityGuid = "857823bf-2f37-447e-a841-a73e446aa916"

type Config struct {
	Username string   `json:"username" yaml:"username"`
	Password string   `json:"password" yaml:"password"`
	Time     Schedule `json:"time" yaml:"time"`

	// redirects are followed only to this host and hosts under betterimpact.com.
	BaseUrl         string `json:"base_url" yaml:"base_url"`
	OpportunityGuid string `json:"opportunity_guid" yaml:"opportunity_guid"`
	// IANA zone "today" is computed in, empty means the host's zone.
	Timezone    string `json:"timezone" yaml:"timezone"`
	VerifyLogin bool   `json:"verify_login" yaml:"verify_login"`
}

// LoadConfig reads the config file (and its .local override) and fills in
// the site defaults. the schedule is not validated here, bad weekday names
// surface when shifts are resolved.
func LoadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil {
		return Config{}, err
	}
	if cfg.BaseUrl == "" {
		cfg.BaseUrl = betterimpact.DefaultBaseUrl
	}
	if cfg.OpportunityGuid == "" {
		cfg.OpportunityGuid = DefaultOpportunityGuid
	}
	return cfg, nil
}

// DayShifts is one `<weekday>: <codes>` entry of the schedule.
type DayShifts struct {
	Weekday string
	Codes   Codes
}

// Schedule keeps the weekday entries in the order they were written in.
type Schedule []DayShifts

func (s *Schedule) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: time must be a mapping of weekday to shift codes", node.Line)
	}
	out := make(Schedule, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		var codes Codes
		err := node.Content[i+1].Decode(&codes)
		if err != nil {
			return err
		}
		out = append(out, DayShifts{Weekday: key.Value, Codes: codes})
	}
	*s = out
	return nil
}

// json5 objects decode into maps, which lose the written order, so entries
// are sorted back by where their key is written in the raw object.
func (s *Schedule) UnmarshalJSON(data []byte) error {
	var entries map[string]Codes
	err := json5.Unmarshal(data, &entries)
	if err != nil {
		return err
	}
	keys, err := objectKeys(data)
	if err != nil {
		return err
	}

	positions := make(map[string]int, len(keys))
	for i, key := range keys {
		if _, seen := positions[key]; !seen {
			positions[key] = i
		}
	}
	position := func(key string) int {
		if i, ok := positions[key]; ok {
			return i
		}
		return len(keys)
	}

	out := make(Schedule, 0, len(entries))
	for weekday, codes := range entries {
		out = append(out, DayShifts{Weekday: weekday, Codes: codes})
	}
	slices.SortStableFunc(out, func(a, b DayShifts) int {
		return position(a.Weekday) - position(b.Weekday)
	})
	*s = out
	return nil
}

var errUnterminated = errors.New("unterminated string or comment in object")

// objectKeys lists the keys of the outermost json5 object in data in the
// order they are written. comments, strings and nested values are skipped.
func objectKeys(data []byte) ([]string, error) {
	var keys []string
	depth := 0
	expectKey := false

	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case c == '/' && i+1 < len(data) && data[i+1] == '/':
			for i < len(data) && data[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(data) && data[i+1] == '*':
			end := bytes.Index(data[i+2:], []byte("*/"))
			if end < 0 {
				return nil, errUnterminated
			}
			i += 2 + end + 1
		case c == '"' || c == '\'':
			end := stringEnd(data, i)
			if end < 0 {
				return nil, errUnterminated
			}
			if depth == 1 && expectKey {
				keys = append(keys, unquoteKey(data[i:end+1]))
				expectKey = false
			}
			i = end
		case c == '{' || c == '[':
			depth++
			expectKey = depth == 1 && c == '{'
		case c == '}' || c == ']':
			depth--
		case depth == 1 && c == ',':
			expectKey = true
		case depth == 1 && c == ':':
			expectKey = false
		case depth == 1 && expectKey && isIdentStart(c):
			j := i
			for j < len(data) && isIdentPart(data[j]) {
				j++
			}
			keys = append(keys, string(data[i:j]))
			expectKey = false
			i = j - 1
		}
	}
	return keys, nil
}

// stringEnd returns the index of the quote closing the string that starts
// at data[start], or -1.
func stringEnd(data []byte, start int) int {
	quote := data[start]
	for i := start + 1; i < len(data); i++ {
		switch data[i] {
		case '\\':
			i++
		case quote:
			return i
		}
	}
	return -1
}

func unquoteKey(quoted []byte) string {
	var key string
	err := json5.Unmarshal(quoted, &key)
	if err != nil {
		return string(quoted[1 : len(quoted)-1])
	}
	return key
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// Codes accepts either a single time code or a list of them.
type Codes []shifts.TimeCode

func (c *Codes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var list []shifts.TimeCode
		err := node.Decode(&list)
		if err != nil {
			return err
		}
		*c = list
		return nil
	}
	var single shifts.TimeCode
	err := node.Decode(&single)
	if err != nil {
		return err
	}
	*c = Codes{single}
	return nil
}

func (c *Codes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []shifts.TimeCode
		err := json5.Unmarshal(trimmed, &list)
		if err != nil {
			return err
		}
		*c = list
		return nil
	}
	var single shifts.TimeCode
	err := json5.Unmarshal(trimmed, &single)
	if err != nil {
		return err
	}
	*c = Codes{single}
	return nil
}
