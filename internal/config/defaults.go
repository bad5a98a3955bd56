package config

const (
	defaultConfigPath           = "~/.config/shotsort/config.toml"
	defaultLogDir               = "~/.local/share/shotsort/logs"
	defaultStateDir             = "~/.local/share/shotsort"
	defaultSocketName           = "shotsort.sock"
	defaultAnthropicBaseURL     = "https://api.anthropic.com/v1/messages"
	defaultAnthropicModel       = "claude-opus-4-5-20251101"
	defaultAnthropicMaxTokens   = 1024
	defaultRefineMaxTokens      = 256
	defaultAnthropicTimeout     = 60
	defaultPipelineConcurrency  = 4
	defaultPipelineDebounceMS   = 2000
	defaultPipelineCallTimeout  = 30
	defaultPipelineMaxFileBytes = 5 * 1024 * 1024
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Anthropic: Anthropic{
			BaseURL:         defaultAnthropicBaseURL,
			Model:           defaultAnthropicModel,
			MaxTokens:       defaultAnthropicMaxTokens,
			RefineMaxTokens: defaultRefineMaxTokens,
			TimeoutSeconds:  defaultAnthropicTimeout,
		},
		Pipeline: Pipeline{
			Concurrency:        defaultPipelineConcurrency,
			DebounceMillis:     defaultPipelineDebounceMS,
			CallTimeoutSeconds: defaultPipelineCallTimeout,
			MaxFileBytes:       defaultPipelineMaxFileBytes,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunCompleted:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
