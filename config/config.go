// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"
)

const (
	DefaultConfigPath   = "./config.json"
	DefaultKeystorePath = "./keys"
	DefaultChainType    = "ethereum"
)

type Config struct {
	Chains []RawChainConfig `json:"chains"`
	Timer  Timer            `json:"timer,omitempty"`
	Other  Construction     `json:"other,omitempty"`
}

// RawChainConfig is parsed directly from the config file and should be using to construct the core.ChainConfig
type RawChainConfig struct {
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	Id           string            `json:"id"`       // ChainID
	Peer         string            `json:"peer"`     // ChainID of the paired chain
	Endpoint     string            `json:"endpoint"` // url for rpc endpoint
	From         string            `json:"from"`     // address of key to use
	KeystorePath string            `json:"keystorePath"`
	Opts         map[string]string `json:"opts"`
}

// Timer holds intervals as time.ParseDuration strings
type Timer struct {
	Fast string `json:"fast,omitempty"`
	Slow string `json:"slow,omitempty"`
}

type Construction struct {
	MonitorUrl string `json:"monitor_url,omitempty"`
	Env        string `json:"env,omitempty"`
	Redis      string `json:"redis,omitempty"`
}

func NewConfig() *Config {
	return &Config{
		Chains: []RawChainConfig{},
	}
}

func (c *Config) validate() error {
	if len(c.Chains) < 2 {
		return fmt.Errorf("at least two chains required, got %d", len(c.Chains))
	}
	for idx, chain := range c.Chains {
		if chain.Type == "" {
			c.Chains[idx].Type = DefaultChainType
		}
		if chain.Endpoint == "" {
			return fmt.Errorf("required field chain.Endpoint empty for chain %s", chain.Id)
		}
		if chain.Name == "" {
			return fmt.Errorf("required field chain.Name empty for chain %s", chain.Id)
		}
		if chain.Id == "" {
			return fmt.Errorf("required field chain.Id empty for chain %s", chain.Name)
		}
		if chain.Peer == "" {
			return fmt.Errorf("required field chain.Peer empty for chain %s", chain.Name)
		}
		if chain.Opts == nil {
			c.Chains[idx].Opts = map[string]string{}
		}
	}
	if _, _, err := c.Timer.Intervals(); err != nil {
		return err
	}
	return nil
}

// Intervals parses the timer section; zero means use the default
func (t Timer) Intervals() (fast, slow time.Duration, err error) {
	if t.Fast != "" {
		if fast, err = time.ParseDuration(t.Fast); err != nil {
			return 0, 0, fmt.Errorf("invalid timer.fast %q: %v", t.Fast, err)
		}
	}
	if t.Slow != "" {
		if slow, err = time.ParseDuration(t.Slow); err != nil {
			return 0, 0, fmt.Errorf("invalid timer.slow %q: %v", t.Slow, err)
		}
	}
	return fast, slow, nil
}

func GetConfig(ctx *cli.Context) (*Config, error) {
	var fig Config
	path := DefaultConfigPath
	if file := ctx.String(ConfigFileFlag.Name); file != "" {
		path = file
	}

	err := loadConfig(path, &fig)
	if err != nil {
		return &fig, err
	}

	err = fig.validate()
	if err != nil {
		return nil, err
	}
	return &fig, nil
}

func loadConfig(file string, config *Config) error {
	ext := filepath.Ext(file)
	fp, err := filepath.Abs(file)
	if err != nil {
		return err
	}

	f, err := os.Open(filepath.Clean(fp))
	if err != nil {
		return err
	}
	defer f.Close()

	if ext == ".json" {
		if err = json.NewDecoder(f).Decode(&config); err != nil {
			return err
		}
	} else {
		return fmt.Errorf("unrecognized extention: %s", ext)
	}

	return nil
}
