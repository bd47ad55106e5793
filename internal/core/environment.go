package core

import (
	"fmt"
	"strings"
)

// Environment is the deployment environment. It selects the log format and level.
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

var environments = map[string]Environment{
	"development": Development,
	"dev":         Development,
	"local":       Development,
	"testing":     Testing,
	"test":        Testing,
	"staging":     Staging,
	"production":  Production,
	"prod":        Production,
}

func (e Environment) String() string { return string(e) }

// StructuredLogs reports whether logs are written as JSON lines instead of console text.
func (e Environment) StructuredLogs() bool {
	return e == Production || e == Staging
}

// Decode lets envconfig populate an Environment from ENVIRONMENT.
func (e *Environment) Decode(value string) error {
	env, err := ParseEnvironment(value)
	if err != nil {
		return err
	}
	*e = env
	return nil
}

// ParseEnvironment accepts the known names and their short forms, case-insensitively.
// An empty value is Development.
func ParseEnvironment(v string) (Environment, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return Development, nil
	}
	if env, ok := environments[v]; ok {
		return env, nil
	}
	return "", fmt.Errorf("unknown environment %q", v)
}
