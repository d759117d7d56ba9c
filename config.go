package vk_downloader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) " +
	"Version/17.4.1 Safari/605.1.15"

var (
	ErrInvalidConfig   = errors.New("invalid config")
	ErrInvalidFilename = errors.New("invalid target filename")
)

type Config struct {
	// Directory that downloaded videos are saved into.
	TargetDir string `yaml:"target_dir"`
	// Number of downloads to run at the same time.
	Jobs int `yaml:"jobs"`
	// Preferred resolution when a page has several: "best", "worst", a label like "720p", or empty to always ask.
	Quality   string `yaml:"quality"`
	UserAgent string `yaml:"user_agent"`
	// Upper bound on fetching a single page; zero means no limit.
	PageTimeout time.Duration `yaml:"page_timeout"`
	// text/template producing the file name, see FilenameArgs.
	FilenameTemplate string `yaml:"filename_template"`
	// Run each download in its own OS process instead of a goroutine.
	Subprocess bool `yaml:"subprocess"`
}

var DefaultConfig = Config{
	TargetDir:        ".",
	Jobs:             4,
	Quality:          "",
	UserAgent:        DefaultUserAgent,
	PageTimeout:      30 * time.Second,
	FilenameTemplate: "{{.Title}}.{{.Ext}}",
	Subprocess:       false,
}

// LoadConfig reads a YAML file over the top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Jobs < 1 {
		return fmt.Errorf("%w: jobs must be at least 1, got %d", ErrInvalidConfig, c.Jobs)
	}
	if c.TargetDir == "" {
		return fmt.Errorf("%w: empty target_dir", ErrInvalidConfig)
	}
	if _, err := c.filenameTemplate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// FilenameArgs are the values available to Config.FilenameTemplate.
type FilenameArgs struct {
	Title      string
	Resolution Resolution
	Ext        string
}

// Filename renders FilenameTemplate. The result must be a plain file name, without any directory part.
func (c *Config) Filename(args FilenameArgs) (string, error) {
	tmpl, err := c.filenameTemplate()
	if err != nil {
		return "", err
	}
	builder := strings.Builder{}
	if err := tmpl.Execute(&builder, &args); err != nil {
		return "", err
	}
	filename := builder.String()
	if filename == "" || filename != filepath.Base(filename) || strings.ReplaceAll(filename, ".", "") == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return filename, nil
}

// TargetPath joins a file name onto TargetDir.
func (c *Config) TargetPath(filename string) string {
	return filepath.Join(c.TargetDir, filename)
}

func (c *Config) filenameTemplate() (*template.Template, error) {
	return template.New("filename").Option("missingkey=error").Parse(c.FilenameTemplate)
}
