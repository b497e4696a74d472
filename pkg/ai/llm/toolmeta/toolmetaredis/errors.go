package toolmetaredis

import "github.com/Abraxas-365/agentwire/pkg/errx"

var redisErrors = errx.NewRegistry("TOOLMETA_REDIS")

var (
	ErrSet     = redisErrors.Register("SET", errx.TypeExternal, 500, "Redis set failed")
	ErrGet     = redisErrors.Register("GET", errx.TypeExternal, 500, "Redis get failed")
	ErrMarshal = redisErrors.Register("MARSHAL", errx.TypeInternal, 500, "Failed to encode metadata")
)
