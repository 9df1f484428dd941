package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// SecretSource defines where secrets are loaded from
type SecretSource string

const (
	// SourceEnvironment loads secrets from environment variables
	SourceEnvironment SecretSource = "environment"
	// SourceVault loads secrets from Azure Key Vault, falling back to the environment
	SourceVault SecretSource = "vault"
	// SourceAuto uses vault outside development
	SourceAuto SecretSource = "auto"
)

// Provider resolves secrets from Key Vault with environment fallback.
// After the first unexpected vault failure the vault is disabled and
// every lookup goes to the environment.
type Provider struct {
	source        SecretSource
	vaultClient   *VaultClient
	vaultDisabled atomic.Bool
	logger        *zap.Logger
	environment   string
}

// ProviderConfig holds configuration for the secrets provider
type ProviderConfig struct {
	Source       SecretSource
	VaultName    string
	Environment  string // "development", "staging", "production"
	CacheEnabled bool
	CacheTTL     time.Duration
}

// openVault creates the vault client of a provider
var openVault = NewVaultClient

// NewProvider creates a new secrets provider
func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	source := cfg.Source
	if source == "" {
		source = SourceEnvironment
	}

	if source == SourceAuto {
		switch cfg.Environment {
		case "development", "local", "":
			source = SourceEnvironment
		default:
			source = SourceVault
		}
	}

	provider := &Provider{
		source:      source,
		logger:      logger,
		environment: cfg.Environment,
	}

	switch source {
	case SourceEnvironment:
	case SourceVault:
		if cfg.VaultName == "" {
			return nil, fmt.Errorf("vault name required when using vault secret source")
		}
		vaultClient, err := openVault(&VaultConfig{
			VaultName:    cfg.VaultName,
			CacheEnabled: cfg.CacheEnabled,
			CacheTTL:     cfg.CacheTTL,
		}, logger)
		if err != nil {
			// Credentials are unavailable on developer machines
			logger.Warn("Key Vault unavailable, using environment variables", zap.Error(err))
			provider.vaultDisabled.Store(true)
		} else {
			provider.vaultClient = vaultClient
		}
	default:
		return nil, fmt.Errorf("unknown secret source: %s", source)
	}

	logger.Info("Secrets provider initialized",
		zap.String("source", string(source)),
		zap.String("environment", cfg.Environment),
	)
	return provider, nil
}

// GetSecret retrieves a secret by key. In vault mode the key is mapped to a
// vault name and looked up first; a missing secret logs a warning and an
// unexpected error disables the vault. Both fall back to the environment.
func (p *Provider) GetSecret(ctx context.Context, key string) (string, error) {
	if p.IsVaultEnabled() {
		value, err := p.vaultClient.GetSecret(ctx, key)
		switch {
		case err == nil:
			return value, nil
		case errors.Is(err, ErrSecretNotFound):
			p.logger.Warn("Secret not found in Key Vault, trying environment",
				zap.String("secret_name", VaultSecretName(key)),
			)
		default:
			p.logger.Error("Key Vault lookup failed, disabling vault", zap.Error(err))
			p.vaultDisabled.Store(true)
		}
	}

	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("environment variable '%s' not set", key)
	}
	return value, nil
}

// GetSecretOrEnv returns envName when explicitly set, otherwise resolves secretName
func (p *Provider) GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error) {
	if envValue := os.Getenv(envName); envValue != "" {
		return envValue, nil
	}
	return p.GetSecret(ctx, secretName)
}

// GetSecretWithDefault retrieves a secret, returning defaultValue if not found
func (p *Provider) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := p.GetSecret(ctx, key)
	if err != nil {
		return defaultValue
	}
	return value
}

// Source returns the configured secret source
func (p *Provider) Source() SecretSource {
	return p.source
}

// IsVaultEnabled returns true while lookups still consult the vault
func (p *Provider) IsVaultEnabled() bool {
	return p.source == SourceVault && p.vaultClient != nil && !p.vaultDisabled.Load()
}
