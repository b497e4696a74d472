package toolmeta

import (
	"net/http"

	"github.com/Abraxas-365/agentwire/pkg/errx"
)

var (
	errorRegistry = errx.NewRegistry("TOOLMETA")

	ErrNotAnObject = errorRegistry.Register(
		"NOT_AN_OBJECT",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Expected a JSON object",
	)

	ErrInvalidToolSchema = errorRegistry.Register(
		"INVALID_TOOL_SCHEMA",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Tool definition is not valid JSON",
	)

	ErrInvalidRequestBody = errorRegistry.Register(
		"INVALID_REQUEST_BODY",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Request body is not a valid Messages API payload",
	)

	ErrNilStore = errorRegistry.Register(
		"NIL_STORE",
		errx.TypeInternal,
		http.StatusInternalServerError,
		"Metadata store is required",
	)
)
