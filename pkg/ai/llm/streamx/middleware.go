package streamx

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/Abraxas-365/agentwire/pkg/ai/llm/toolmeta"
	"github.com/Abraxas-365/agentwire/pkg/logx"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Middleware returns an anthropic-sdk-go request middleware that closes the
// metadata loop around every Messages API call: outgoing tool schemas are
// augmented and prior-turn metadata re-injected, and streaming response
// bodies are wrapped with the stripping transform before the SDK parses
// them. The transport stays injectable; nothing global is patched.
//
// Rewrite failures fall back to the original request untouched. Metadata is
// cosmetic and must never fail the turn.
func Middleware(cfg toolmeta.Config, store toolmeta.Store) option.Middleware {
	return func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
		prepareRequest(req, cfg, store)

		resp, err := next(req)
		if err != nil || resp == nil {
			return resp, err
		}

		if strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
			resp.Body = NewReader(resp.Body, NewTransform(req.Context(), store))
		}
		return resp, nil
	}
}

func prepareRequest(req *http.Request, cfg toolmeta.Config, store toolmeta.Store) {
	if req.Body == nil || req.Method != http.MethodPost || !strings.HasSuffix(req.URL.Path, "/messages") {
		return
	}

	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		logx.Debugf("streamx: failed to read request body: %v", err)
		setBody(req, body)
		return
	}

	newBody, changed, err := toolmeta.PrepareRequestBody(req.Context(), body, cfg, store)
	if err != nil {
		logx.Debugf("streamx: request rewrite skipped: %v", err)
		newBody = body
	} else if !changed {
		newBody = body
	}
	setBody(req, newBody)
}

func setBody(req *http.Request, body []byte) {
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
}
