package config

import (
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Loglevel string `yaml:"loglevel"`

	// DefaultTopic receives input lines that do not name a topic.
	DefaultTopic string `yaml:"defaultTopic"`

	Topics        []Topic        `yaml:"topics"`
	Subscriptions []Subscription `yaml:"subscriptions"`
}

type Topic struct {
	Name string `yaml:"name"`

	// MaxLogSize bounds the topic log; unset means unbounded.
	MaxLogSize *int `yaml:"maxLogSize"`
}

type Subscription struct {
	Topic    string `yaml:"topic"`
	ID       *int64 `yaml:"id"`
	Backlog  string `yaml:"backlog"`
	Inactive bool   `yaml:"inactive"`

	Sink string                 `yaml:"sink"`
	Spec map[string]interface{} `yaml:"spec"`
}

// LoadSinkConfig decodes the sink-specific spec block into target.
func (s *Subscription) LoadSinkConfig(target interface{}) error {
	return mapstructure.Decode(s.Spec, target)
}

func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
