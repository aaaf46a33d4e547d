package config

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/eval"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/gate"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/train"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// AppConfig is the environment shared by every binary. Flags in cmd/*
// override individual fields.
type AppConfig struct {
	DBPath    string `env:"ADVISOR_DB" env-default:"advisor.db" env-description:"SQLite file holding table versions"`
	TableFile string `env:"ADVISOR_TABLE_FILE" env-description:"binary table file served instead of the active version"`

	HTTPAddr        string        `env:"HTTP_ADDR" env-default:":8000" env-description:"HTTP listen address"`
	GRPCAddr        string        `env:"GRPC_ADDR" env-default:":50052" env-description:"gRPC listen address (empty disables)"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"5s"`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogPretty bool   `env:"LOG_PRETTY" env-default:"true"`

	DatabaseURL string `env:"DATABASE_URL" env-description:"Postgres DSN for run reports (optional)"`

	TrainRounds   int     `env:"TRAIN_ROUNDS" env-default:"1000000"`
	TrainSeed     int64   `env:"TRAIN_SEED" env-default:"0"`
	TrainAlpha    float64 `env:"TRAIN_ALPHA" env-default:"0.1"`
	TrainGamma    float64 `env:"TRAIN_GAMMA" env-default:"0.99"`
	TrainEpsStart float64 `env:"TRAIN_EPS_START" env-default:"1.0"`
	TrainEpsEnd   float64 `env:"TRAIN_EPS_END" env-default:"0.05"`

	EvalRounds int   `env:"EVAL_ROUNDS" env-default:"10000"`
	EvalSeed   int64 `env:"EVAL_SEED" env-default:"1"`

	GateMinRounds         int     `env:"GATE_MIN_ROUNDS" env-default:"10000"`
	GateMaxEdgeRegression float64 `env:"GATE_MAX_EDGE_REGRESSION" env-default:"0.02"`
}

// LoadAppConfig reads .env files into the process environment, then the
// environment into an AppConfig. With no files it tries ./.env and ignores
// its absence. Variables already set are never overridden by a file.
func LoadAppConfig(envFiles ...string) (*AppConfig, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	cfg := &AppConfig{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return cfg, nil
}

// Usage describes every variable for --help output.
func Usage() string {
	desc, err := cleanenv.GetDescription(&AppConfig{}, nil)
	if err != nil {
		return ""
	}
	return desc
}

// TrainConfig returns the training schedule from the environment.
func (c *AppConfig) TrainConfig() train.Config {
	cfg := train.DefaultConfig()
	cfg.Rounds = c.TrainRounds
	cfg.Seed = c.TrainSeed
	cfg.Alpha = c.TrainAlpha
	cfg.Gamma = c.TrainGamma
	cfg.EpsStart = c.TrainEpsStart
	cfg.EpsEnd = c.TrainEpsEnd
	return cfg
}

// EvalConfig returns the evaluation settings from the environment.
func (c *AppConfig) EvalConfig() eval.EvalConfig {
	cfg := eval.DefaultEvalConfig()
	cfg.Rounds = c.EvalRounds
	cfg.Seed = c.EvalSeed
	return cfg
}

// GateConfig returns the promotion thresholds from the environment.
func (c *AppConfig) GateConfig() gate.GateConfig {
	return gate.GateConfig{
		MinRounds:         c.GateMinRounds,
		MaxEdgeRegression: c.GateMaxEdgeRegression,
	}
}
