package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"cardmint/internal/config"
	"cardmint/internal/history"
	"cardmint/internal/logging"
	"cardmint/internal/pipeline"
)

const defaultEnvFile = ".env"

type commandContext struct {
	configFlag  *string
	envFileFlag *string
	buildOpts   []pipeline.BuildOption

	envOnce sync.Once
	envErr  error

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, envFileFlag *string, opts []pipeline.BuildOption) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		envFileFlag: envFileFlag,
		buildOpts:   opts,
	}
}

// loadEnv reads KEY=value pairs into the process environment. Variables that
// are already set win. A missing default .env is not an error.
func (c *commandContext) loadEnv() error {
	c.envOnce.Do(func() {
		path := defaultEnvFile
		explicit := false
		if c.envFileFlag != nil && strings.TrimSpace(*c.envFileFlag) != "" {
			path = strings.TrimSpace(*c.envFileFlag)
			explicit = true
		}
		if err := godotenv.Load(path); err != nil {
			if !explicit && errors.Is(err, fs.ErrNotExist) {
				return
			}
			c.envErr = fmt.Errorf("load env file %s: %w", path, err)
		}
	})
	return c.envErr
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) buildRunner(mode pipeline.Mode) (*pipeline.Runner, func() error, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	opts := append([]pipeline.BuildOption{pipeline.WithLogger(logger)}, c.buildOpts...)
	return pipeline.Build(cfg, mode, opts...)
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.New("run history is disabled (history.enabled = false)")
	}
	if _, err := os.Stat(cfg.History.Path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("no run history at %s; runs are recorded by cardmint run and cardmint identify", cfg.History.Path)
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
