package secrets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeVault serves secrets from a map and counts lookups
type fakeVault struct {
	values map[string]string
	err    error
	names  []string
}

func (f *fakeVault) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.names = append(f.names, name)
	if f.err != nil {
		return azsecrets.GetSecretResponse{}, f.err
	}
	value, ok := f.values[name]
	if !ok {
		return azsecrets.GetSecretResponse{}, notFound()
	}
	return azsecrets.GetSecretResponse{Secret: azsecrets.Secret{Value: &value}}, nil
}

func notFound() error {
	return &azcore.ResponseError{
		ErrorCode:  "SecretNotFound",
		StatusCode: http.StatusNotFound,
		RawResponse: &http.Response{
			StatusCode: http.StatusNotFound,
			Request:    httptest.NewRequest(http.MethodGet, "https://vault.example/secrets/x", nil),
		},
	}
}

func vaultProvider(fake *fakeVault, logger *zap.Logger) *Provider {
	return &Provider{
		source:      SourceVault,
		vaultClient: newVaultClient(fake, &VaultConfig{VaultName: "test"}, logger),
		logger:      logger,
	}
}

func TestVaultSecretName(t *testing.T) {
	tests := map[string]string{
		"AZURE_STORAGE_CONNECTION_STRING": "AZURE-STORAGE-CONNECTION-STRING",
		"ADMIN_API_KEY":                   "ADMIN-API-KEY",
		"already-dashed":                  "already-dashed",
	}
	for key, expected := range tests {
		t.Run(key, func(t *testing.T) {
			assert.Equal(t, expected, VaultSecretName(key))
		})
	}
}

func TestProvider_GetSecret(t *testing.T) {
	tests := []struct {
		name          string
		vault         *fakeVault
		env           string
		expected      string
		expectErr     bool
		vaultEnabled  bool
		expectWarning string
	}{
		{
			name:         "vault value",
			vault:        &fakeVault{values: map[string]string{"ADMIN-API-KEY": "from-vault"}},
			env:          "from-env",
			expected:     "from-vault",
			vaultEnabled: true,
		},
		{
			name:          "not found falls back to environment",
			vault:         &fakeVault{values: map[string]string{}},
			env:           "from-env",
			expected:      "from-env",
			vaultEnabled:  true,
			expectWarning: "Secret not found in Key Vault, trying environment",
		},
		{
			name:         "other error disables vault",
			vault:        &fakeVault{err: errors.New("forbidden by firewall")},
			env:          "from-env",
			expected:     "from-env",
			vaultEnabled: false,
		},
		{
			name:         "missing everywhere",
			vault:        &fakeVault{values: map[string]string{}},
			expectErr:    true,
			vaultEnabled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ADMIN_API_KEY", tt.env)
			core, logs := observer.New(zap.WarnLevel)
			p := vaultProvider(tt.vault, zap.New(core))

			value, err := p.GetSecret(context.Background(), "ADMIN_API_KEY")
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, value)
			}
			assert.Equal(t, []string{"ADMIN-API-KEY"}, tt.vault.names)
			assert.Equal(t, tt.vaultEnabled, p.IsVaultEnabled())
			if tt.expectWarning != "" {
				assert.Equal(t, 1, logs.FilterMessage(tt.expectWarning).Len())
			}
		})
	}
}

func TestProvider_DisabledVaultIsNotConsultedAgain(t *testing.T) {
	t.Setenv("ADMIN_API_KEY", "from-env")
	fake := &fakeVault{err: errors.New("connection reset")}
	p := vaultProvider(fake, zap.NewNop())

	for i := 0; i < 3; i++ {
		value, err := p.GetSecret(context.Background(), "ADMIN_API_KEY")
		require.NoError(t, err)
		assert.Equal(t, "from-env", value)
	}
	assert.Len(t, fake.names, 1)
}

func TestNewProvider_CredentialFailureFallsBackToEnvironment(t *testing.T) {
	original := openVault
	t.Cleanup(func() { openVault = original })
	openVault = func(cfg *VaultConfig, logger *zap.Logger) (*VaultClient, error) {
		return nil, errors.New("no credential available")
	}
	t.Setenv("ADMIN_API_KEY", "from-env")

	p, err := NewProvider(&ProviderConfig{Source: SourceVault, VaultName: "kv-labelling"}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.IsVaultEnabled())

	value, err := p.GetSecret(context.Background(), "ADMIN_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)
}

func TestNewProvider_Sources(t *testing.T) {
	p, err := NewProvider(&ProviderConfig{Source: SourceAuto, Environment: "development"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, SourceEnvironment, p.Source())

	_, err = NewProvider(&ProviderConfig{Source: SourceVault}, zap.NewNop())
	assert.Error(t, err, "vault source needs a vault name")

	_, err = NewProvider(&ProviderConfig{Source: "ssm"}, zap.NewNop())
	assert.Error(t, err)
}

func TestVaultClient_CacheTTL(t *testing.T) {
	fake := &fakeVault{values: map[string]string{"DATABASE-PASSWORD": "first"}}
	client := newVaultClient(fake, &VaultConfig{VaultName: "test", CacheEnabled: true, CacheTTL: time.Minute}, zap.NewNop())
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }
	ctx := context.Background()

	value, err := client.GetSecret(ctx, "DATABASE_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "first", value)

	fake.values["DATABASE-PASSWORD"] = "second"
	now = now.Add(30 * time.Second)
	value, err = client.GetSecret(ctx, "DATABASE_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "first", value, "served from cache within the ttl")
	assert.Len(t, fake.names, 1)

	now = now.Add(time.Minute)
	value, err = client.GetSecret(ctx, "DATABASE_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "second", value)
	assert.Len(t, fake.names, 2)

	client.ClearCache()
	_, err = client.GetSecret(ctx, "DATABASE_PASSWORD")
	require.NoError(t, err)
	assert.Len(t, fake.names, 3)
}

func TestVaultClient_NotFound(t *testing.T) {
	client := newVaultClient(&fakeVault{values: map[string]string{}}, &VaultConfig{VaultName: "test"}, zap.NewNop())

	_, err := client.GetSecret(context.Background(), "MISSING_KEY")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}
