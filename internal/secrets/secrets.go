// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: llm-api-key, embedding-api-key, genai-api-key,
// cohere-api-key, chroma-token.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/recog-engine/internal/logging"
	"github.com/pdiddy/recog-engine/pkg/types"
)

// Key file names.
const (
	LLMAPIKey       = "llm-api-key"
	EmbeddingAPIKey = "embedding-api-key"
	GenAIAPIKey     = "genai-api-key"
	CohereAPIKey    = "cohere-api-key"
	ChromaToken     = "chroma-token"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings but do not abort.
func Load(dir string, logger *zap.Logger) (map[string]string, error) {
	logger = logging.OrNop(logger)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply fills credentials in cfg that are still empty. Values already set
// by the config file or environment win.
//
// The GenAI key backs whichever of chat or embedding uses the genai provider
// when its own key is missing.
func Apply(s map[string]string, cfg *types.Config) {
	fill := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v := s[k]; v != "" {
				*dst = v
				return
			}
		}
	}

	if cfg.LLM.Provider == types.ProviderGenAI {
		fill(&cfg.LLM.APIKey, GenAIAPIKey, LLMAPIKey)
	} else {
		fill(&cfg.LLM.APIKey, LLMAPIKey)
	}

	switch cfg.Index.Embedding.Provider {
	case string(types.ProviderGenAI):
		fill(&cfg.Index.Embedding.APIKey, GenAIAPIKey, EmbeddingAPIKey)
	case "cohere":
		fill(&cfg.Index.Embedding.APIKey, CohereAPIKey, EmbeddingAPIKey)
	default:
		fill(&cfg.Index.Embedding.APIKey, EmbeddingAPIKey, LLMAPIKey)
	}

	fill(&cfg.Index.ChromaToken, ChromaToken)
}
