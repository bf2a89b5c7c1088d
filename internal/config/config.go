// Package config loads dirspace defaults from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

// FileName is the config file looked up in the working directory.
const FileName = ".dirspace.yaml"

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "DIRSPACE_"

// Config holds the settings that may be given outside of flags.
// Nil fields are unset.
type Config struct {
	Output     *string        `yaml:"output"`
	Engine     *string        `yaml:"engine"`
	Top        *int           `yaml:"top"`
	Depth      *int           `yaml:"depth"`
	MaxEntries *int64         `yaml:"max_entries"`
	Delay      *time.Duration `yaml:"delay"`
	Excludes   []string       `yaml:"exclude"`
	Extensions []string       `yaml:"ext"`
	MinSize    *string        `yaml:"min_size"`
	SameSize   *bool          `yaml:"same_size"`
	Blocks     *bool          `yaml:"blocks"`
	Volume     *bool          `yaml:"volume"`
	Debug      *bool          `yaml:"debug"`
}

// Load reads the YAML config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}

		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}

	return &cfg, nil
}

// LoadDefault loads FileName from dir, returning an empty Config if it is absent.
func LoadDefault(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if errors.Is(err, ErrConfigNotFound) {
		return &Config{}, nil
	}

	return cfg, err
}

// Environ returns the DIRSPACE_ variables of envFiles, overridden by the
// process environment.
func Environ(envFiles ...string) (map[string]string, error) {
	env := make(map[string]string)

	if len(envFiles) > 0 {
		read, err := godotenv.Read(envFiles...)
		if err != nil {
			return nil, fmt.Errorf("reading env files: %w", err)
		}

		for key, value := range read {
			if strings.HasPrefix(key, EnvPrefix) {
				env[key] = value
			}
		}
	}

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(key, EnvPrefix) {
			env[key] = value
		}
	}

	return env, nil
}

// ApplyEnv overrides cfg with DIRSPACE_ variables from env.
//
//nolint:cyclop // One branch per setting.
func (c *Config) ApplyEnv(env map[string]string) error {
	for key, value := range env {
		name := strings.TrimPrefix(key, EnvPrefix)

		var err error

		switch name {
		case "OUTPUT":
			c.Output = &value
		case "ENGINE":
			c.Engine = &value
		case "TOP":
			c.Top, err = parse(value, strconv.Atoi)
		case "DEPTH":
			c.Depth, err = parse(value, strconv.Atoi)
		case "MAX_ENTRIES":
			c.MaxEntries, err = parse(value, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
		case "DELAY":
			c.Delay, err = parse(value, time.ParseDuration)
		case "EXCLUDE":
			c.Excludes = strings.Split(value, ",")
		case "EXT":
			c.Extensions = strings.Split(value, ",")
		case "MIN_SIZE":
			c.MinSize = &value
		case "SAME_SIZE":
			c.SameSize, err = parse(value, strconv.ParseBool)
		case "BLOCKS":
			c.Blocks, err = parse(value, strconv.ParseBool)
		case "VOLUME":
			c.Volume, err = parse(value, strconv.ParseBool)
		case "DEBUG":
			c.Debug, err = parse(value, strconv.ParseBool)
		default:
			continue
		}

		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", key, value, err)
		}
	}

	return nil
}

func parse[T any](value string, fn func(string) (T, error)) (*T, error) {
	v, err := fn(value)
	if err != nil {
		return nil, err
	}

	return &v, nil
}
