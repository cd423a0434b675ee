package config

import (
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	rigerrors "github.com/greenfuze/rig/pkg/errors"
)

// yaml.v3 exposes positions only through its error text ("yaml: line N: ...");
// the line is recovered from the message so ParseError can point at it.
var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// Load reads and validates a settings file. A missing file yields the zero
// Config with no error; anything else unreadable or invalid is reported.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, rigerrors.NewParseError(path, 0, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, rigerrors.NewParseError(path, extractLine(err), err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}
	match := yamlLinePattern.FindStringSubmatch(err.Error())
	if match == nil {
		return 0
	}
	line, convErr := strconv.Atoi(match[1])
	if convErr != nil {
		return 0
	}
	return line
}
