package core

// Config is INI-style data: ordered sections of ordered key/value pairs.
type Config struct {
	Sections []*ConfigSection
}

// ConfigSection is one [name] block.
type ConfigSection struct {
	Name string
	Keys []ConfigKey
}

// ConfigKey is a single key = value line.
type ConfigKey struct {
	Name  string
	Value string
}

// NewConfig returns an empty config.
func NewConfig() *Config {
	return &Config{}
}

// Lookup returns the named section if present.
func (c *Config) Lookup(name string) (*ConfigSection, bool) {
	for _, s := range c.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Section returns the named section, appending it when missing.
func (c *Config) Section(name string) *ConfigSection {
	if s, ok := c.Lookup(name); ok {
		return s
	}
	s := &ConfigSection{Name: name}
	c.Sections = append(c.Sections, s)
	return s
}

// SectionNames returns section names in file order.
func (c *Config) SectionNames() []string {
	names := make([]string, 0, len(c.Sections))
	for _, s := range c.Sections {
		names = append(names, s.Name)
	}
	return names
}

// Get returns section.key.
func (c *Config) Get(section, key string) (string, bool) {
	s, ok := c.Lookup(section)
	if !ok {
		return "", false
	}
	return s.Get(key)
}

// Set assigns section.key, creating the section if needed.
func (c *Config) Set(section, key, value string) {
	c.Section(section).Set(key, value)
}

// Get returns the value of key.
func (s *ConfigSection) Get(key string) (string, bool) {
	for _, k := range s.Keys {
		if k.Name == key {
			return k.Value, true
		}
	}
	return "", false
}

// Set replaces key in place or appends it.
func (s *ConfigSection) Set(key, value string) {
	for i := range s.Keys {
		if s.Keys[i].Name == key {
			s.Keys[i].Value = value
			return
		}
	}
	s.Keys = append(s.Keys, ConfigKey{Name: key, Value: value})
}
