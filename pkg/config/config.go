// ABOUTME: Decoder configuration blocks loaded from a JSON file
// ABOUTME: Provides typed getters and unused-key reporting per block
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Config holds every decoder block
type Config struct {
	Decoders []Block `json:"decoder"`
}

// Block is one decoder section. The "plugin" key names the backend it
// configures; every other key is a backend setting. Copies of a block
// share usage tracking.
type Block struct {
	Plugin string
	values map[string]string
	used   map[string]bool
}

// NewBlock builds a block from literal settings
func NewBlock(plugin string, values map[string]string) Block {
	b := Block{
		Plugin: plugin,
		values: make(map[string]string, len(values)),
		used:   make(map[string]bool),
	}
	for k, v := range values {
		b.values[strings.ToLower(k)] = v
	}
	return b
}

// UnmarshalJSON accepts string, number and boolean values
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	b.values = make(map[string]string, len(raw))
	b.used = make(map[string]bool)
	for k, v := range raw {
		key := strings.ToLower(k)
		var s string
		switch val := v.(type) {
		case string:
			s = val
		case bool:
			s = strconv.FormatBool(val)
		case float64:
			s = strconv.FormatFloat(val, 'f', -1, 64)
		case nil:
			continue
		default:
			return fmt.Errorf("decoder block key %q: unsupported value %v", k, v)
		}
		if key == "plugin" {
			b.Plugin = s
			continue
		}
		b.values[key] = s
	}
	return nil
}

// Has reports whether key is set
func (b *Block) Has(key string) bool {
	_, ok := b.lookup(key)
	return ok
}

// String returns the value of key or def
func (b *Block) String(key, def string) string {
	if v, ok := b.lookup(key); ok {
		return v
	}
	return def
}

// Bool returns the value of key or def. Accepts yes/no, true/false,
// on/off and 1/0.
func (b *Block) Bool(key string, def bool) bool {
	v, ok := b.lookup(key)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "on", "1":
		return true
	case "no", "false", "off", "0":
		return false
	}
	log.Printf("config: %s: invalid boolean %q for %q", b.Plugin, v, key)
	return def
}

// Int returns the value of key or def
func (b *Block) Int(key string, def int) int {
	v, ok := b.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("config: %s: invalid integer %q for %q", b.Plugin, v, key)
		return def
	}
	return n
}

// Float returns the value of key or def
func (b *Block) Float(key string, def float64) float64 {
	v, ok := b.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		log.Printf("config: %s: invalid number %q for %q", b.Plugin, v, key)
		return def
	}
	return f
}

// Unused returns the keys no getter asked for, sorted
func (b *Block) Unused() []string {
	var keys []string
	for k := range b.values {
		if !b.used[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (b *Block) lookup(key string) (string, bool) {
	key = strings.ToLower(key)
	v, ok := b.values[key]
	if ok {
		if b.used == nil {
			b.used = make(map[string]bool)
		}
		b.used[key] = true
	}
	return v, ok
}

// Load reads a configuration file. A missing path yields an empty config.
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes configuration JSON
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	for i, b := range cfg.Decoders {
		if b.Plugin == "" {
			return nil, fmt.Errorf("decoder block %d: missing plugin", i)
		}
	}
	return &cfg, nil
}

// FindBlock returns the first block for plugin. The returned pointer
// aliases the config so usage tracking is shared.
func (c *Config) FindBlock(plugin string) *Block {
	if c == nil {
		return nil
	}
	for i := range c.Decoders {
		if strings.EqualFold(c.Decoders[i].Plugin, plugin) {
			return &c.Decoders[i]
		}
	}
	return nil
}

// SetDefault sets key on the block of every named plugin that leaves it
// unset, adding blocks as needed. Defaults are never reported as unused.
func (c *Config) SetDefault(key, value string, plugins ...string) {
	key = strings.ToLower(key)
	for _, plugin := range plugins {
		b := c.FindBlock(plugin)
		if b == nil {
			c.Decoders = append(c.Decoders, NewBlock(plugin, nil))
			b = &c.Decoders[len(c.Decoders)-1]
		}
		if _, ok := b.values[key]; ok {
			continue
		}
		if b.values == nil {
			b.values = make(map[string]string)
		}
		if b.used == nil {
			b.used = make(map[string]bool)
		}
		b.values[key] = value
		b.used[key] = true
	}
}

// WarnUnused logs every setting that no backend read
func (c *Config) WarnUnused() {
	if c == nil {
		return
	}
	for i := range c.Decoders {
		b := &c.Decoders[i]
		for _, k := range b.Unused() {
			log.Printf("config: decoder %q: unused setting %q", b.Plugin, k)
		}
	}
}
