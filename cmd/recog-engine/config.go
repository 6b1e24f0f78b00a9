// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/pdiddy/recog-engine/pkg/types"
)

const envPrefix = "RECOG_ENGINE"

// configDefaults registers every key so AutomaticEnv can see it.
var configDefaults = map[string]any{
	"llm.provider":              string(types.ProviderOpenAI),
	"llm.model":                 "",
	"llm.base_url":              "",
	"llm.api_key":               "",
	"llm.temperature":           0.1,
	"llm.default_max_tokens":    1024,
	"llm.extraction_max_tokens": 4096,
	"llm.judgment_max_tokens":   8192,
	"llm.judgment_model":        "",
	"llm.stream_only":           false,
	"llm.timeout":               5 * time.Minute,
	"llm.max_retries":           0,

	"index.backend":                  string(types.IndexChroma),
	"index.chroma_url":               "http://localhost:8000",
	"index.chroma_tenant":            "default_tenant",
	"index.chroma_database":          "default_database",
	"index.chroma_collection":        "modules",
	"index.chroma_token":             "",
	"index.sqlite_path":              "data/modules.db",
	"index.embedding.provider":       "openai",
	"index.embedding.model":          "",
	"index.embedding.base_url":       "",
	"index.embedding.api_key":        "",
	"index.embedding.query_prefix":   "",
	"index.embedding.passage_prefix": "",
	"index.embedding.max_retries":    5,

	"recognition.max_input_chars":      10000,
	"recognition.suggestion_limit":     5,
	"recognition.institution":          "",
	"recognition.attribution_model":    "gemma-3-27b-it",
	"recognition.attribution_provider": "[KISSKI](https://kisski.gwdg.de)",

	"server.addr":          ":8080",
	"server.read_timeout":  30 * time.Second,
	"server.write_timeout": 10 * time.Minute,

	"logging.level":  "info",
	"logging.format": "json",
}

// envAliases are the environment names the deployed service already uses.
var envAliases = map[string]string{
	"llm.model":    "LLM_MODEL",
	"llm.base_url": "LLM_URL",
	"llm.api_key":  "LLM_API_KEY",
}

// loadConfig resolves the configuration from defaults, the config file and
// the environment, in increasing precedence. It returns the config file
// used, if any.
func loadConfig(cfgFile string) (types.Config, string, error) {
	v := viper.New()
	for k, d := range configDefaults {
		v.SetDefault(k, d)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("recog-engine")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "recog-engine"))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return types.Config{}, "", fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return types.Config{}, "", fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }); err != nil {
		return types.Config{}, "", fmt.Errorf("decoding config: %w", err)
	}
	return cfg, v.ConfigFileUsed(), nil
}
