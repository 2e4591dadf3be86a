// Package user_agent recognises crawlers, uptime monitors and scripted
// clients whose traffic must not reach HubSpot.
package user_agent

import (
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

//go:embed database/bots.yml
var databaseFiles embed.FS

// Bot describes a matched non-human client.
type Bot struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	URL      string `yaml:"url"`
	Producer struct {
		Name string `yaml:"name"`
		URL  string `yaml:"url"`
	} `yaml:"producer"`
}

type botEntry struct {
	Regex string `yaml:"regex"`
	Bot   `yaml:",inline"`
}

type rule struct {
	re  *pcre.Regexp
	bot Bot
}

// emptyAgent is reported for requests without a User-Agent.
var emptyAgent = Bot{Name: "Empty User Agent", Category: "Crawler"}

// Detector matches user agents against an ordered bot list. The first
// matching rule wins.
type Detector struct {
	rules []rule
}

// NewDetector compiles a YAML bot list. Patterns match case-insensitively.
func NewDetector(botsYAML []byte) (*Detector, error) {
	var entries []botEntry
	if err := yaml.Unmarshal(botsYAML, &entries); err != nil {
		return nil, fmt.Errorf("parse bot list: %w", err)
	}

	d := &Detector{rules: make([]rule, 0, len(entries))}
	for _, e := range entries {
		re, err := pcre.Compile("(?i)" + e.Regex)
		if err != nil {
			return nil, fmt.Errorf("compile bot %q: %w", e.Name, err)
		}
		d.rules = append(d.rules, rule{re: re, bot: e.Bot})
	}
	return d, nil
}

// Len returns the number of loaded rules.
func (d *Detector) Len() int {
	return len(d.rules)
}

// Detect returns the bot userAgent belongs to. A blank user agent always
// counts as a bot.
func (d *Detector) Detect(userAgent string) (Bot, bool) {
	if strings.TrimSpace(userAgent) == "" {
		return emptyAgent, true
	}
	for _, r := range d.rules {
		if r.re.MatchString(userAgent) {
			return r.bot, true
		}
	}
	return Bot{}, false
}

var (
	defaultDetector *Detector
	once            sync.Once
)

// Default returns the detector built from the embedded bot list.
func Default() *Detector {
	once.Do(func() {
		data, err := databaseFiles.ReadFile("database/bots.yml")
		if err == nil {
			defaultDetector, err = NewDetector(data)
		}
		if err != nil {
			slog.Default().Error("Failed to load embedded bot list", slog.Any("error", err))
			defaultDetector = &Detector{}
		}
	})
	return defaultDetector
}

// Detect classifies userAgent with the embedded bot list.
func Detect(userAgent string) (Bot, bool) {
	return Default().Detect(userAgent)
}

// IsBot reports whether userAgent belongs to a crawler, monitor or script.
func IsBot(userAgent string) bool {
	_, ok := Detect(userAgent)
	return ok
}
