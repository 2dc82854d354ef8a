package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPort is used for tunnels when the config file does not set default_port
const DefaultPort = 9999

// FileName is the config file name looked up in the working directory and ~/.config
const FileName = "aws-instance.yaml"

// SSH backends understood by ssh_backend
const (
	BackendExec   = "exec"
	BackendNative = "native"
)

// Instance is one configured name -> EC2 instance id pair
type Instance struct {
	Name string
	ID   string
}

// Instances keeps the instances mapping in the order it was declared
type Instances []Instance

// UnmarshalYAML decodes a mapping node pair by pair so that declaration order survives
func (in *Instances) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: instances must be a mapping of name to instance id", value.Line)
	}

	seen := make(map[string]bool, len(value.Content)/2)
	out := make(Instances, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var name, id string
		if err := value.Content[i].Decode(&name); err != nil {
			return fmt.Errorf("line %d: %w", value.Content[i].Line, err)
		}
		if err := value.Content[i+1].Decode(&id); err != nil {
			return fmt.Errorf("line %d: %w", value.Content[i+1].Line, err)
		}
		if seen[name] {
			return fmt.Errorf("line %d: duplicate instance name %q", value.Content[i].Line, name)
		}
		seen[name] = true
		out = append(out, Instance{Name: name, ID: id})
	}

	*in = out
	return nil
}

// file mirrors the YAML document; pointers mark fields whose absence must be detected
type file struct {
	Ident       *string    `yaml:"ident"`
	Username    *string    `yaml:"username"`
	Instances   *Instances `yaml:"instances"`
	DefaultPort *int       `yaml:"default_port"`
	Region      string     `yaml:"region"`
	Profile     string     `yaml:"profile"`
	SSHBackend  string     `yaml:"ssh_backend"`
	KnownHosts  string     `yaml:"known_hosts"`
}

// Config is the loaded registry of named instances and connection defaults.
// It is never modified after Load returns.
type Config struct {
	Ident       string
	Username    string
	Instances   Instances
	DefaultPort int

	// Optional AWS overrides; empty means the SDK defaults apply
	Region  string
	Profile string

	SSHBackend string
	KnownHosts string
}

// LoadError reports a config file that is missing, unreadable or invalid
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads and validates the YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("file not found: %w", err)}
		}
		return nil, &LoadError{Path: path, Err: fmt.Errorf("failed to read config file: %w", err)}
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return cfg, nil
}

// Parse builds a Config from raw YAML. Errors are *LoadError with an empty Path.
func Parse(data []byte) (*Config, error) {
	cfg, err := parse(data)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	var missing []string
	if f.Ident == nil || *f.Ident == "" {
		missing = append(missing, "ident")
	}
	if f.Username == nil || *f.Username == "" {
		missing = append(missing, "username")
	}
	if f.Instances == nil {
		missing = append(missing, "instances")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
	}

	if len(*f.Instances) == 0 {
		return nil, errors.New("no instances defined")
	}
	for _, inst := range *f.Instances {
		if inst.Name == "" {
			return nil, errors.New("instance names must not be empty")
		}
		if inst.ID == "" {
			return nil, fmt.Errorf("instance %q has no instance id", inst.Name)
		}
	}

	cfg := &Config{
		Username:    *f.Username,
		Instances:   *f.Instances,
		DefaultPort: DefaultPort,
		Region:      f.Region,
		Profile:     f.Profile,
		SSHBackend:  BackendExec,
	}

	if f.DefaultPort != nil {
		if *f.DefaultPort < 1 || *f.DefaultPort > 65535 {
			return nil, fmt.Errorf("default_port %d is out of range", *f.DefaultPort)
		}
		cfg.DefaultPort = *f.DefaultPort
	}

	switch f.SSHBackend {
	case "":
	case BackendExec, BackendNative:
		cfg.SSHBackend = f.SSHBackend
	default:
		return nil, fmt.Errorf("unknown ssh_backend %q (want %q or %q)", f.SSHBackend, BackendExec, BackendNative)
	}

	var err error
	if cfg.Ident, err = expandHome(*f.Ident); err != nil {
		return nil, err
	}
	knownHosts := f.KnownHosts
	if knownHosts == "" {
		knownHosts = "~/.ssh/known_hosts"
	}
	if cfg.KnownHosts, err = expandHome(knownHosts); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Names returns the configured instance names in declaration order
func (c *Config) Names() []string {
	names := make([]string, len(c.Instances))
	for i, inst := range c.Instances {
		names[i] = inst.Name
	}
	return names
}

// IDs returns the configured instance ids in declaration order
func (c *Config) IDs() []string {
	ids := make([]string, len(c.Instances))
	for i, inst := range c.Instances {
		ids[i] = inst.ID
	}
	return ids
}

// Contains reports whether name is a configured instance
func (c *Config) Contains(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// Lookup returns the instance id configured for name
func (c *Config) Lookup(name string) (string, bool) {
	for _, inst := range c.Instances {
		if inst.Name == name {
			return inst.ID, true
		}
	}
	return "", false
}

// DefaultPath picks the config file: ./aws-instance.yaml, then ~/.config/aws-instance.yaml.
// When neither exists the home location is returned so errors name the expected path.
func DefaultPath() string {
	candidates := []string{FileName}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", FileName))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return candidates[len(candidates)-1]
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path[1:], "/")), nil
}
