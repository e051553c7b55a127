package questionnaire

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Catalog holds every registered questionnaire version. Registered versions
// are immutable; claims keep validating against the version they started with.
type Catalog struct {
	mu       sync.RWMutex
	versions map[string]*Questionnaire
	active   string
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{versions: make(map[string]*Questionnaire)}
}

// NewDefaultCatalog creates a catalog with the built-in version active
func NewDefaultCatalog() *Catalog {
	c := NewCatalog()
	if err := c.Register(Default()); err != nil {
		panic(fmt.Sprintf("built-in questionnaire is invalid: %v", err))
	}
	if err := c.Activate(DefaultVersion); err != nil {
		panic(err)
	}
	return c
}

// Register adds a new version. Re-registering an existing version fails.
func (c *Catalog) Register(q *Questionnaire) error {
	if q == nil {
		return fmt.Errorf("questionnaire is nil")
	}
	if err := q.Validate(); err != nil {
		return fmt.Errorf("invalid questionnaire: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.versions[q.Version]; exists {
		return fmt.Errorf("questionnaire version %s already registered", q.Version)
	}
	c.versions[q.Version] = q.clone()
	return nil
}

// Activate makes a registered version the one new claims start with
func (c *Catalog) Activate(version string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.versions[version]; !exists {
		return fmt.Errorf("questionnaire version %s not registered", version)
	}
	c.active = version
	return nil
}

// ActiveVersion returns the version new claims start with
func (c *Catalog) ActiveVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Get returns a registered version. The result must not be modified.
func (c *Catalog) Get(version string) (*Questionnaire, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.versions[version]
	return q, ok
}

// Versions returns the number of registered versions
func (c *Catalog) Versions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.versions)
}

// Parse decodes a questionnaire from YAML
func Parse(data []byte) (*Questionnaire, error) {
	var q Questionnaire
	if err := yaml.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("failed to parse questionnaire: %w", err)
	}
	return &q, nil
}

// LoadFile registers the questionnaire stored at path and optionally
// activates it. It returns the loaded version.
func (c *Catalog) LoadFile(path string, activate bool) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read questionnaire file: %w", err)
	}

	q, err := Parse(data)
	if err != nil {
		return "", err
	}
	if err := c.Register(q); err != nil {
		return "", err
	}
	if activate {
		if err := c.Activate(q.Version); err != nil {
			return "", err
		}
	}
	return q.Version, nil
}
