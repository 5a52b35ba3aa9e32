// Package flow defines the screening conversation: its nodes, routers
// and canned copy, wired into an engine graph.
package flow

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"cleo-screening/internal/location"
	"cleo-screening/internal/otp"
	"cleo-screening/internal/report"
	"cleo-screening/pkg"
)

// Classifier maps an applicant answer onto one label from a fixed set.
type Classifier interface {
	Classify(ctx context.Context, question, answer string, allowed []string) (string, error)
}

// Extractor pulls one field value out of a free-form message.
type Extractor interface {
	Extract(ctx context.Context, kind, text string) (string, error)
}

// Scorer scores screening answers against per-question rules.
type Scorer interface {
	Score(ctx context.Context, answers map[string]string, rules map[string]pkg.ScoringRule) (map[string]float64, error)
}

// LocationChecker cross-verifies a typed address against GPS
// coordinates.
type LocationChecker interface {
	CrossCheck(ctx context.Context, typedAddress string, lat, lng float64) location.CheckResult
}

// Collaborators are the external services the flow talks to. All of
// them degrade softly: a failing collaborator changes wording or
// scoring, never crashes a session.
type Collaborators struct {
	Classifier Classifier
	Extractor  Extractor
	Scorer     Scorer
	Email      otp.EmailSender
	SMS        otp.SMSSender
	Location   LocationChecker
	Sink       report.Sink
}

// Config tunes the flow.
type Config struct {
	Company string `yaml:"company"`

	// ReArm restarts the conversation after finalization instead of
	// ending the session.
	ReArm bool `yaml:"re_arm"`

	EmailOTPTTL time.Duration `yaml:"email_otp_ttl"`
	PhoneOTPTTL time.Duration `yaml:"phone_otp_ttl"`

	MaxFieldAttempts int `yaml:"max_field_attempts"`
	MaxOTPAttempts   int `yaml:"max_otp_attempts"`

	ReportRetryBudget time.Duration `yaml:"report_retry_budget"`
}

func (c *Config) applyDefaults() {
	if c.EmailOTPTTL <= 0 {
		c.EmailOTPTTL = 5 * time.Minute
	}
	if c.PhoneOTPTTL <= 0 {
		c.PhoneOTPTTL = 2 * time.Minute
	}
	if c.MaxFieldAttempts <= 0 {
		c.MaxFieldAttempts = 3
	}
	if c.MaxOTPAttempts <= 0 {
		c.MaxOTPAttempts = 3
	}
	if c.ReportRetryBudget <= 0 {
		c.ReportRetryBudget = 30 * time.Second
	}
}

// Flow holds the screening conversation logic.
type Flow struct {
	cfg    Config
	deps   Collaborators
	logger zerolog.Logger
	now    func() time.Time
}

func New(cfg Config, deps Collaborators, logger zerolog.Logger) *Flow {
	cfg.applyDefaults()
	return &Flow{cfg: cfg, deps: deps, logger: logger, now: time.Now}
}
