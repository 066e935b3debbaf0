package trackingid

import "strings"

const (
	DefaultPrefix     = "ALF"
	DefaultDateDigits = 8
)

// Config describes the tracking identifier grammar an operator has configured.
type Config struct {
	Prefix     string `json:"prefix"`
	DateDigits int    `json:"dateDigits"`
}

// DefaultConfig returns the ALF / 8-digit grammar.
func DefaultConfig() Config {
	return Config{Prefix: DefaultPrefix, DateDigits: DefaultDateDigits}
}

// Normalized fills defaults and upper-cases the prefix.
// Date digit counts other than 6 and 8 fall back to 8.
func (c Config) Normalized() Config {
	c.Prefix = strings.ToUpper(strings.TrimSpace(c.Prefix))
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.DateDigits != 6 && c.DateDigits != 8 {
		c.DateDigits = DefaultDateDigits
	}
	return c
}
