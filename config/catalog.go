package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/upb/multichat/services/providers"
)

// Defaults applied when the catalog omits them
const (
	DefaultTitle          = "AI Chatbot"
	DefaultTitleColor     = "blue"
	DefaultTitleCSS       = ".title-container { text-align: center; font-size: 5rem; }"
	DefaultWelcomeMessage = "Welcome to the Multi-Provider AI Chatbot!"
)

// Catalog is the provider, model and persona configuration read from YAML.
// It is loaded once at startup and treated as read-only afterwards.
type Catalog struct {
	Providers       ProviderList       `yaml:"providers"`
	Personas        []Persona          `yaml:"personas"`
	GenericSettings string             `yaml:"generic_settings"`
	UI              UIConfig           `yaml:"ui"`
	FileHandling    FileHandlingConfig `yaml:"file_handling"`
}

// ProviderDescriptor describes one configured provider
type ProviderDescriptor struct {
	ID        string                  `yaml:"-" json:"id" validate:"required"`
	Name      string                  `yaml:"name" json:"name"`
	Endpoint  string                  `yaml:"endpoint" json:"-"`
	APIKeyEnv string                  `yaml:"api_key_env" json:"-"`
	Timeout   time.Duration           `yaml:"timeout" json:"-" validate:"gte=0"`
	Models    []providers.ModelConfig `yaml:"models" json:"models" validate:"dive"`
}

// DisplayName returns the configured name, or the id when none is set
func (p ProviderDescriptor) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// ProviderList keeps providers in the order they appear in the YAML mapping
type ProviderList []ProviderDescriptor

// UnmarshalYAML decodes the providers mapping, keyed by provider id
func (l *ProviderList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("providers: expected a mapping at line %d", node.Line)
	}

	out := make(ProviderList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		id := node.Content[i].Value
		var desc ProviderDescriptor
		if err := node.Content[i+1].Decode(&desc); err != nil {
			return fmt.Errorf("provider %q: %w", id, err)
		}
		desc.ID = id
		out = append(out, desc)
	}
	*l = out
	return nil
}

// Persona is a named system instruction
type Persona struct {
	ID          string `yaml:"id" json:"id" validate:"required"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// UIConfig carries presentation settings for front ends
type UIConfig struct {
	Title          string `yaml:"title" json:"title"`
	TitleColor     string `yaml:"title_color" json:"title_color"`
	TitleCSS       string `yaml:"title_css" json:"title_css"`
	WelcomeMessage string `yaml:"welcome_message" json:"welcome_message"`
}

// FileHandlingConfig limits what may be attached to a conversation
type FileHandlingConfig struct {
	AllowedExtensions []string `yaml:"allowed_extensions" json:"allowed_extensions"`
	MaxFileSizeMB     float64  `yaml:"max_file_size_mb" json:"max_file_size_mb"`
	MaxFilesPerUpload int      `yaml:"max_files_per_upload" json:"max_files_per_upload"`
	MaxTextSizeMB     float64  `yaml:"max_text_size_mb" json:"max_text_size_mb"`
}

// DefaultCatalog is the catalog used when the YAML file is missing or unreadable
func DefaultCatalog() *Catalog {
	c := &Catalog{
		Providers: ProviderList{},
		Personas:  []Persona{},
	}
	c.applyDefaults()
	return c
}

// LoadCatalog reads the catalog at path. A missing or malformed file is
// logged and yields DefaultCatalog; invalid entries are dropped.
func LoadCatalog(path string, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("Error loading config", zap.String("path", path), zap.Error(err))
		return DefaultCatalog()
	}

	cat, err := ParseCatalog(data)
	if err != nil {
		logger.Error("Error loading config", zap.String("path", path), zap.Error(err))
		return DefaultCatalog()
	}

	cat.dropInvalid(logger)
	cat.applyDefaults()

	logger.Info("Catalog loaded",
		zap.String("path", path),
		zap.Int("providers", len(cat.Providers)),
		zap.Int("personas", len(cat.Personas)),
	)
	return cat
}

// ParseCatalog decodes catalog YAML without applying defaults or validation
func ParseCatalog(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &cat, nil
}

func (c *Catalog) dropInvalid(logger *zap.Logger) {
	validate := validator.New()

	kept := make(ProviderList, 0, len(c.Providers))
	for _, p := range c.Providers {
		if err := validate.Struct(p); err != nil {
			logger.Warn("Dropping invalid provider", zap.String("provider", p.ID), zap.Error(err))
			continue
		}
		kept = append(kept, p)
	}
	c.Providers = kept

	personas := make([]Persona, 0, len(c.Personas))
	for _, p := range c.Personas {
		if err := validate.Struct(p); err != nil {
			logger.Warn("Dropping invalid persona", zap.String("persona", p.Name), zap.Error(err))
			continue
		}
		personas = append(personas, p)
	}
	c.Personas = personas
}

func (c *Catalog) applyDefaults() {
	if c.Providers == nil {
		c.Providers = ProviderList{}
	}
	if c.Personas == nil {
		c.Personas = []Persona{}
	}
	if c.UI.Title == "" {
		c.UI.Title = DefaultTitle
	}
	if c.UI.TitleColor == "" {
		c.UI.TitleColor = DefaultTitleColor
	}
	if c.UI.TitleCSS == "" {
		c.UI.TitleCSS = DefaultTitleCSS
	}
	if c.UI.WelcomeMessage == "" {
		c.UI.WelcomeMessage = DefaultWelcomeMessage
	}
}

// Provider looks up a provider by its catalog id
func (c *Catalog) Provider(id string) (ProviderDescriptor, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderDescriptor{}, false
}

// Models returns the models configured for a provider, or nil when the provider is unknown
func (c *Catalog) Models(providerID string) []providers.ModelConfig {
	p, ok := c.Provider(providerID)
	if !ok {
		return nil
	}
	return p.Models
}

// Model returns the model config for the pair, or an empty config when
// either id is unknown
func (c *Catalog) Model(providerID, modelID string) providers.ModelConfig {
	for _, m := range c.Models(providerID) {
		if m.ID == modelID {
			return m
		}
	}
	return providers.ModelConfig{}
}

// Persona looks up a persona by id
func (c *Catalog) Persona(id string) (Persona, bool) {
	for _, p := range c.Personas {
		if p.ID == id {
			return p, true
		}
	}
	return Persona{}, false
}

// PersonaDescription returns the persona text with the generic settings
// appended. An unknown persona yields the generic settings alone.
func (c *Catalog) PersonaDescription(personaID string) string {
	p, ok := c.Persona(personaID)
	if !ok {
		return c.GenericSettings
	}
	if c.GenericSettings == "" {
		return p.Description
	}
	return p.Description + "\n\n" + c.GenericSettings
}

// ExpandEndpoint substitutes ${VAR} placeholders from the environment.
// Placeholders for unset variables are left untouched.
func ExpandEndpoint(endpoint string) string {
	if !strings.Contains(endpoint, "${") {
		return endpoint
	}
	return placeholderPattern.ReplaceAllStringFunc(endpoint, func(match string) string {
		if value, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return value
		}
		return match
	})
}

var placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)
