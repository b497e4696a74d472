package config

import "time"

// PipelineConfig configures the tool metadata pipeline.
type PipelineConfig struct {
	// RichToolDescriptions turns on schema augmentation for every tool, not
	// just MCP-namespaced ones.
	RichToolDescriptions bool

	// RedisAddr, when set, backs the metadata store with Redis instead of
	// process memory.
	RedisAddr string

	// MetadataTTL is the optional expiry for Redis-stored metadata. Zero
	// keeps entries indefinitely.
	MetadataTTL time.Duration

	// HistoryTokenBudget caps the conversation history sent upstream per
	// request, in estimated tokens. Zero disables trimming.
	HistoryTokenBudget int
}

// LoadPipelineConfig reads pipeline settings from the environment.
func LoadPipelineConfig() PipelineConfig {
	return PipelineConfig{
		RichToolDescriptions: getEnvBool("AGENTWIRE_RICH_TOOL_DESCRIPTIONS", true),
		RedisAddr:            getEnv("AGENTWIRE_REDIS_ADDR", ""),
		MetadataTTL:          getEnvDuration("AGENTWIRE_METADATA_TTL", 0),
		HistoryTokenBudget:   getEnvInt("AGENTWIRE_HISTORY_TOKEN_BUDGET", 0),
	}
}

// ServerConfig configures the relay server.
type ServerConfig struct {
	Port        int
	CORSOrigins string
}

// LoadServerConfig reads server settings from the environment.
func LoadServerConfig() ServerConfig {
	return ServerConfig{
		Port:        getEnvInt("AGENTWIRE_PORT", 8080),
		CORSOrigins: getEnv("AGENTWIRE_CORS_ORIGINS", "*"),
	}
}
