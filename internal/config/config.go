package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/davidahmann/verity/internal/crypto"
)

type Config struct {
	Level         string           `yaml:"level"`
	LedgerPath    string           `yaml:"ledger_path"`
	ContractsPath string           `yaml:"contracts_path"`
	Signing       SigningConfig    `yaml:"signing"`
	Escalation    EscalationConfig `yaml:"escalation"`
	Reputation    ReputationConfig `yaml:"reputation"`
	Anchor        AnchorConfig     `yaml:"anchor"`
}

type SigningConfig struct {
	Scheme         string `yaml:"scheme"` // none | hmac | ed25519
	KeyID          string `yaml:"key_id"`
	HMACKey        string `yaml:"hmac_key"`
	PrivateKeyPath string `yaml:"private_key_path"`
}

type EscalationConfig struct {
	WindowHours int `yaml:"window_hours"`
	Threshold   int `yaml:"threshold"`
}

type ReputationConfig struct {
	DecayEnabled bool    `yaml:"decay_enabled"`
	HalfLifeDays float64 `yaml:"half_life_days"`
}

type AnchorConfig struct {
	Enabled        bool `yaml:"enabled"`
	BatchThreshold int  `yaml:"batch_threshold"`
}

func Load(path string) (Config, error) {
	// #nosec G304 -- path is operator-provided config path.
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	expanded := os.ExpandEnv(string(raw))
	expanded = strings.ReplaceAll(expanded, "\r\n", "\n")

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Level {
	case "", "basic", "standard", "full", "anchored":
	default:
		return fmt.Errorf("level must be one of basic, standard, full, anchored")
	}

	switch c.Signing.Scheme {
	case "", "none":
	case "hmac":
		if c.Signing.HMACKey == "" {
			return fmt.Errorf("signing.hmac_key is required when signing.scheme=hmac")
		}
	case "ed25519":
		if c.Signing.PrivateKeyPath == "" {
			return fmt.Errorf("signing.private_key_path is required when signing.scheme=ed25519")
		}
	default:
		return fmt.Errorf("signing.scheme must be one of none, hmac, ed25519")
	}

	if c.Level == "anchored" && !c.Anchor.Enabled {
		return fmt.Errorf("anchor.enabled is required when level=anchored")
	}
	return nil
}

// BuildSigner constructs the configured event signer, or nil when events
// are unsigned.
func (c SigningConfig) BuildSigner() (crypto.Signer, error) {
	switch c.Scheme {
	case "", "none":
		return nil, nil
	case "hmac":
		return crypto.NewHMACSigner(c.KeyID, []byte(c.HMACKey))
	case "ed25519":
		priv, _, err := crypto.LoadEd25519PrivateKey(c.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		return crypto.NewEd25519Signer(c.KeyID, priv), nil
	default:
		return nil, fmt.Errorf("unknown signing scheme: %q", c.Scheme)
	}
}
