package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeReaper runs the expired invitation reaper.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, reaper)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// DashboardConfig controls dashboard aggregation.
type DashboardConfig struct {
	// Timezone is the IANA zone used for business-week and day boundaries.
	Timezone string `env:"TIMEZONE" envDefault:"UTC"`
	// MaxJobs caps the snapshot loaded for a single dashboard request.
	MaxJobs int `env:"MAX_JOBS" envDefault:"5000"`
}

// Sanitize applies guardrails to dashboard configuration values.
func (c *DashboardConfig) Sanitize() {
	if c.Timezone = strings.TrimSpace(c.Timezone); c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.MaxJobs <= 0 {
		c.MaxJobs = 5000
	}
}

// Location resolves Timezone, falling back to UTC when the zone is unknown.
func (c DashboardConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// InvitationConfig controls admin invitations.
type InvitationConfig struct {
	// TTL is how long an invitation token stays valid.
	TTL time.Duration `env:"TTL" envDefault:"168h"`
	// AcceptPath is appended to the base URL when building invitation links.
	AcceptPath string `env:"ACCEPT_PATH" envDefault:"/signup"`
}

// Sanitize applies guardrails to invitation configuration values.
func (c *InvitationConfig) Sanitize() {
	if c.TTL < time.Hour {
		c.TTL = 7 * 24 * time.Hour
	}
	if c.AcceptPath = strings.TrimSpace(c.AcceptPath); !strings.HasPrefix(c.AcceptPath, "/") {
		c.AcceptPath = "/" + c.AcceptPath
	}
}

// ReaperConfig contains configuration for the invitation reaper.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"1h"`

	// InvitationRetention keeps expired or revoked invitations around for auditing
	// before they are deleted.
	InvitationRetention time.Duration `env:"REAPER_INVITATION_RETENTION" envDefault:"720h"` // 30 days

	// BatchSize is the maximum number of rows to delete per tick.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"500"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < time.Minute {
		r.Interval = time.Minute
	}
	if r.InvitationRetention < 24*time.Hour {
		r.InvitationRetention = 24 * time.Hour
	}
	if r.BatchSize <= 0 {
		r.BatchSize = 500
	}
}
