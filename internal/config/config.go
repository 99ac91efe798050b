package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	DicomFolder  string `yaml:"dicom_folder"`
	IndexPath    string `yaml:"index_path"`
	CachePath    string `yaml:"cache_path"`
	ApiUrl       string `yaml:"api_url"`
	Timeout      int    `yaml:"timeout"`
	PollInterval int    `yaml:"poll_interval"`
	BatchSize    int    `yaml:"batch_size"`
}

const (
	defaultTimeout      = 10
	defaultPollInterval = 5
	defaultBatchSize    = 64
)

func ReadConfig(filePath string) (*Config, error) {
	file, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var config Config
	err = yaml.Unmarshal(file, &config)
	if err != nil {
		return nil, err
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
}

func (c *Config) Validate() error {
	if c.DicomFolder == "" {
		return errors.New("config: dicom_folder is required")
	}
	if c.IndexPath == "" {
		return errors.New("config: index_path is required")
	}
	return nil
}

// TimeoutDuration is how long the folder must stay quiet before the index
// is saved.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c *Config) PollDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}
