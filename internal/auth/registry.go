package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// UserRecord is one entry of credentials.usernames
type UserRecord struct {
	Email         string `yaml:"email"`
	Name          string `yaml:"name"`
	Password      string `yaml:"password"`
	DataScientist bool   `yaml:"data_scientist,omitempty"`
}

// CookieConfig configures the session cookie
type CookieConfig struct {
	Name       string  `yaml:"name"`
	Key        string  `yaml:"key"`
	ExpiryDays float64 `yaml:"expiry_days"`
}

// UserConfig is the YAML user registry stored next to the labelling data
type UserConfig struct {
	Credentials struct {
		Usernames map[string]UserRecord `yaml:"usernames"`
	} `yaml:"credentials"`
	Cookie CookieConfig `yaml:"cookie"`
}

// RegisterInput is the self-service registration form
type RegisterInput struct {
	Email          string `json:"email" validate:"required,email,max=254"`
	Username       string `json:"username" validate:"required,username"`
	Name           string `json:"name" validate:"required,min=1,max=100"`
	Password       string `json:"password" validate:"required,password"`
	RepeatPassword string `json:"repeatPassword" validate:"required,eqfield=Password"`
}

// PasswordCriteria lists the password policy for display
var PasswordCriteria = []string{
	"It contains at least one lowercase letter.",
	"It contains at least one uppercase letter.",
	"It contains at least one digit.",
	"It contains at least one special character from the set @$!%*?&.",
	"It has a length between 8 and 20 characters.",
}

const passwordSpecials = "@$!%*?&"

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,20}$`)
	validate        = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return ValidPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidPassword checks the password policy: lower, upper, digit, one of
// @$!%*?& and 8 to 20 characters drawn only from those classes
func ValidPassword(p string) bool {
	if len(p) < 8 || len(p) > 20 {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return lower && upper && digit && special
}

// Registry loads and updates the YAML user registry in blob storage. The
// parsed registry is served from memory for ttl; the raw document is kept so
// registration writes back keys the typed config does not model.
type Registry struct {
	store    storage.Storage
	blobName string
	ttl      time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	config   *UserConfig
	doc      *yaml.Node
	loadedAt time.Time
	now      func() time.Time
}

// NewRegistry creates a registry backed by blobName. A ttl of zero or less
// reads the blob on every lookup.
func NewRegistry(store storage.Storage, blobName string, ttl time.Duration, logger *zap.Logger) *Registry {
	return &Registry{store: store, blobName: blobName, ttl: ttl, logger: logger, now: time.Now}
}

// Load returns the cached registry, reading it from storage when the cache
// is empty or older than the ttl
func (r *Registry) Load(ctx context.Context) (*UserConfig, error) {
	r.mu.RLock()
	cfg := r.config
	fresh := cfg != nil && r.ttl > 0 && r.now().Sub(r.loadedAt) < r.ttl
	r.mu.RUnlock()
	if fresh {
		return cfg, nil
	}
	return r.Reload(ctx)
}

// Reload reads the registry from storage
func (r *Registry) Reload(ctx context.Context) (*UserConfig, error) {
	data, err := r.store.Get(ctx, r.blobName)
	if err != nil {
		return nil, fmt.Errorf("failed to read user registry: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse user registry: %w", err)
	}
	cfg, err := decodeUserConfig(&doc)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.config = cfg
	r.doc = &doc
	r.loadedAt = r.now()
	r.mu.Unlock()

	r.logger.Debug("User registry loaded",
		zap.String("blob_name", r.blobName),
		zap.Int("users", len(cfg.Credentials.Usernames)),
	)
	return cfg, nil
}

func decodeUserConfig(doc *yaml.Node) (*UserConfig, error) {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("user registry is not a YAML mapping")
	}
	var cfg UserConfig
	if err := doc.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user registry: %w", err)
	}
	if cfg.Credentials.Usernames == nil {
		cfg.Credentials.Usernames = map[string]UserRecord{}
	}
	if cfg.Cookie.Key == "" {
		return nil, errors.New("user registry has no cookie key")
	}
	if cfg.Cookie.Name == "" {
		cfg.Cookie.Name = "labelling_session"
	}
	if cfg.Cookie.ExpiryDays <= 0 {
		cfg.Cookie.ExpiryDays = 30
	}
	return &cfg, nil
}

// Lookup returns the record of username
func (r *Registry) Lookup(ctx context.Context, username string) (UserRecord, bool, error) {
	cfg, err := r.Load(ctx)
	if err != nil {
		return UserRecord{}, false, err
	}
	rec, ok := cfg.Credentials.Usernames[username]
	return rec, ok, nil
}

// Register validates input, adds the user with a bcrypt password hash and
// writes the registry back to storage. Keys outside the typed config are
// written back unchanged.
func (r *Registry) Register(ctx context.Context, input RegisterInput) error {
	input.Email = strings.TrimSpace(input.Email)
	input.Username = strings.TrimSpace(input.Username)
	input.Name = strings.TrimSpace(input.Name)
	if err := validate.Struct(input); err != nil {
		return err
	}

	if _, err := r.Reload(ctx); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for name, rec := range r.config.Credentials.Usernames {
		if strings.EqualFold(name, input.Username) {
			return fmt.Errorf("%w: %s", domain.ErrUserExists, input.Username)
		}
		if strings.EqualFold(rec.Email, input.Email) {
			return fmt.Errorf("%w: email %s", domain.ErrUserExists, input.Email)
		}
	}

	var record yaml.Node
	if err := record.Encode(UserRecord{
		Email:    input.Email,
		Name:     input.Name,
		Password: string(hash),
	}); err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	doc := cloneNode(r.doc)
	users := mappingAt(mappingAt(doc.Content[0], "credentials"), "usernames")
	users.Content = append(users.Content, stringNode(input.Username), &record)

	next, err := decodeUserConfig(doc)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode user registry: %w", err)
	}
	if err := r.store.Put(ctx, r.blobName, "application/yaml", data); err != nil {
		return fmt.Errorf("failed to save user registry: %w", err)
	}
	r.config = next
	r.doc = doc
	r.loadedAt = r.now()

	r.logger.Info("User registered", zap.String("user_name", input.Username))
	return nil
}

// mappingAt returns the mapping stored under key in parent, adding it or
// replacing an empty value
func mappingAt(parent *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(parent.Content); i += 2 {
		if parent.Content[i].Value != key {
			continue
		}
		value := parent.Content[i+1]
		if value.Kind != yaml.MappingNode {
			value = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			parent.Content[i+1] = value
		}
		return value
	}
	value := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	parent.Content = append(parent.Content, stringNode(key), value)
	return value
}

func stringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Content = make([]*yaml.Node, len(n.Content))
	for i, c := range n.Content {
		out.Content[i] = cloneNode(c)
	}
	out.Alias = cloneNode(n.Alias)
	return &out
}
