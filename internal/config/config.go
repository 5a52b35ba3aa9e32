package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"cleo-screening/internal/flow"
	"cleo-screening/internal/llm"
	"cleo-screening/internal/logger"
	"cleo-screening/pkg"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig holds checkpoint store settings. The URL itself comes
// from the environment.
type RedisConfig struct {
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// Config is everything loaded from config.yaml.
type Config struct {
	Server   ServerConfig              `yaml:"server"`
	Log      logger.Config             `yaml:"log"`
	Model    llm.Config                `yaml:"model"`
	Workflow flow.Config               `yaml:"workflow"`
	Redis    RedisConfig               `yaml:"redis"`
	Jobs     map[string]pkg.JobContext `yaml:"jobs"`
}

// Load reads config.yaml and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing YAML: %w", err)
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.ShutdownTimeout <= 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Redis.SessionTTL <= 0 {
		config.Redis.SessionTTL = time.Hour
	}
	for id, job := range config.Jobs {
		if job.JobID == "" {
			job.JobID = id
			config.Jobs[id] = job
		}
	}

	return &config, nil
}

// Job resolves a job context by id, substituting the store location
// into knockout questions that reference it. Unknown ids fall back to
// a generic configuration so a stale link still gets a screening.
func (c *Config) Job(jobID, storeLocation string) pkg.JobContext {
	job, ok := c.Jobs[jobID]
	if !ok {
		job = FallbackJob()
		job.JobID = jobID
		job.Company = c.Workflow.Company
	}
	if storeLocation != "" {
		questions := make([]string, len(job.KnockoutQuestions))
		for i, q := range job.KnockoutQuestions {
			questions[i] = strings.ReplaceAll(q, "{address}", storeLocation)
		}
		job.KnockoutQuestions = questions
	}
	return job
}

// FallbackJob is the generic screening used when no job configuration
// matches.
func FallbackJob() pkg.JobContext {
	return pkg.JobContext{
		KnockoutQuestions: []string{
			"To work here, you must be legally eligible to work in the U.S. Can you confirm that you are?",
			"Next, You must be at least 18 years old for this role. Are you 18 or older?",
			"We are currently hiring specifically for evening and weekend shifts. Is your general availability a fit for that schedule?",
			"Do you have reliable transportation to and from our store located at {address}?",
		},
		Questions: []string{
			"How many years of relevant work experience do you have?",
			"What interests you about this position?",
			"Are you comfortable working in a fast-paced environment?",
		},
		ScoringRules: map[string]pkg.ScoringRule{
			"How many years of relevant work experience do you have?": {Rule: "Score = years * 3", Score: 9},
			"What interests you about this position?":                 {Rule: "Detailed answer -> 5, Brief -> 2", Score: 5},
			"Are you comfortable working in a fast-paced environment?": {Rule: "Yes -> 5, No -> 0", Score: 5},
		},
	}
}

// Secrets come from the environment, never from config.yaml.
type Secrets struct {
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	RedisURL     string `envconfig:"REDIS_URL" default:"redis://localhost:6379"`

	SendGridAPIKey    string `envconfig:"SENDGRID_API_KEY"`
	SendGridFromEmail string `envconfig:"SENDGRID_FROM_EMAIL"`
	SendGridFromName  string `envconfig:"SENDGRID_FROM_NAME"`

	TwilioAccountSID string `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `envconfig:"TWILIO_FROM_NUMBER"`

	GooglePlacesAPIKey string `envconfig:"GOOGLE_PLACES_API_KEY"`

	ReportSinkURL    string `envconfig:"REPORT_SINK_URL"`
	ReportSinkAPIKey string `envconfig:"REPORT_SINK_API_KEY"`
}

// LoadSecrets reads secrets from the environment.
func LoadSecrets() (*Secrets, error) {
	var secrets Secrets
	if err := envconfig.Process("", &secrets); err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %w", err)
	}
	return &secrets, nil
}
