// cmd/container.go
//
// Composition root for the relay server. Owns the metadata store backend and
// the Anthropic provider with the pipeline middleware installed.
package main

import (
	"github.com/Abraxas-365/agentwire/pkg/ai/llm/toolmeta"
	"github.com/Abraxas-365/agentwire/pkg/ai/llm/toolmeta/toolmetaredis"
	"github.com/Abraxas-365/agentwire/pkg/ai/providers/aianthropic"
	"github.com/Abraxas-365/agentwire/pkg/config"
	"github.com/Abraxas-365/agentwire/pkg/logx"
	"github.com/redis/go-redis/v9"
)

// Container holds the shared infrastructure of the relay server.
type Container struct {
	PipelineConfig config.PipelineConfig
	ToolConfig     toolmeta.Config

	Redis    *redis.Client
	Store    toolmeta.Store
	Provider *aianthropic.Provider
}

func NewContainer(cfg config.PipelineConfig) *Container {
	logx.Info("🔧 Initializing relay container...")

	c := &Container{
		PipelineConfig: cfg,
		ToolConfig:     toolmeta.Config{RichToolDescriptions: cfg.RichToolDescriptions},
	}

	if cfg.RedisAddr != "" {
		c.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		c.Store = toolmetaredis.NewRedisStore(c.Redis, toolmetaredis.WithTTL(cfg.MetadataTTL))
		logx.Infof("✓ Metadata store: redis (%s)", cfg.RedisAddr)
	} else {
		c.Store = toolmeta.NewMemoryStore()
		logx.Info("✓ Metadata store: in-memory")
	}

	c.Provider = aianthropic.NewProvider("", c.ToolConfig, c.Store)
	logx.Info("✓ Anthropic provider wired with pipeline middleware")

	logx.Info("✅ Relay container initialized")
	return c
}

// Cleanup releases infrastructure owned by the container.
func (c *Container) Cleanup() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Warnf("redis close: %v", err)
		}
	}
}
