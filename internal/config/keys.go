package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "CTXCHAT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "gemini.api_key", typ: kString, env: "CTXCHAT_GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.APIKey },
	},
	{
		key: "gemini.default_model", typ: kString, env: "CTXCHAT_GEMINI_DEFAULT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.DefaultModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.DefaultModel },
	},
	{
		key: "context.root_dir", typ: kString, env: "CTXCHAT_CONTEXT_ROOT_DIR",
		apply:   func(cfg *Config, v any) { cfg.Context.RootDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Context.RootDir },
	},
	{
		key: "context.max_file_bytes", typ: kInt, env: "CTXCHAT_CONTEXT_MAX_FILE_BYTES",
		apply:   func(cfg *Config, v any) { cfg.Context.MaxFileBytes = v.(int) },
		extract: func(cfg Config) any { return cfg.Context.MaxFileBytes },
	},
	{
		key: "context.max_url_bytes", typ: kInt, env: "CTXCHAT_CONTEXT_MAX_URL_BYTES",
		apply:   func(cfg *Config, v any) { cfg.Context.MaxURLBytes = v.(int) },
		extract: func(cfg Config) any { return cfg.Context.MaxURLBytes },
	},
	{
		key: "context.max_dir_entries", typ: kInt, env: "CTXCHAT_CONTEXT_MAX_DIR_ENTRIES",
		apply:   func(cfg *Config, v any) { cfg.Context.MaxDirEntries = v.(int) },
		extract: func(cfg Config) any { return cfg.Context.MaxDirEntries },
	},
	{
		key: "context.fetch_timeout", typ: kString, env: "CTXCHAT_CONTEXT_FETCH_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Context.FetchTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Context.FetchTimeout },
	},
	{
		key: "context.inline_errors", typ: kBool, env: "CTXCHAT_CONTEXT_INLINE_ERRORS",
		apply:   func(cfg *Config, v any) { cfg.Context.InlineErrors = v.(bool) },
		extract: func(cfg Config) any { return cfg.Context.InlineErrors },
	},
	{
		key: "storage.data_dir", typ: kString, env: "CTXCHAT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "CTXCHAT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
