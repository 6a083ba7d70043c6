package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/reoring/marshal"
	"github.com/reoring/marshal/representation"
)

// CacheControlNoCache is the Cache-Control value NoCache sets.
const CacheControlNoCache = "no-cache=true, private=true, no-store, must-revalidate"

// ctxKeyParams is a typed context key for the marshaled query parameters.
type ctxKeyParams struct{}

// ContextWithParams attaches marshaled query parameters to the context.
func ContextWithParams(ctx context.Context, params map[string]any) context.Context {
	return context.WithValue(ctx, ctxKeyParams{}, params)
}

// ParamsFromContext retrieves the parameters stored by ValidateParams.
func ParamsFromContext(ctx context.Context) (map[string]any, bool) {
	v, ok := ctx.Value(ctxKeyParams{}).(map[string]any)
	return v, ok
}

type config struct {
	logger zerolog.Logger
	reps   *representation.Set
}

// Option configures ValidateParams and MarshalWith.
type Option func(*config)

// WithLogger logs rejected requests and handler failures to l.
func WithLogger(l zerolog.Logger) Option { return func(c *config) { c.logger = l } }

// WithRepresentations replaces DefaultRepresentations for decoding bodies and
// encoding responses.
func WithRepresentations(s *representation.Set) Option {
	return func(c *config) {
		if s != nil {
			c.reps = s
		}
	}
}

// DefaultRepresentations returns the set used unless WithRepresentations
// overrides it: JSON (default, duplicate keys are errors), YAML and HTML.
func DefaultRepresentations() *representation.Set {
	return representation.NewSet(
		representation.JSON{RejectDuplicateKeys: true},
		representation.YAML{},
		representation.HTML{},
	)
}

func newConfig(opts []Option) *config {
	c := &config{logger: zerolog.Nop(), reps: DefaultRepresentations()}
	for _, o := range opts {
		if o != nil {
			o(c)
		}
	}
	return c
}

// ValidateParams marshals the query string (input direction) against s and
// stores the result in the request context. Requests without a query string
// pass through untouched. Marshaling failures are answered with 400.
func ValidateParams(s *marshal.Schema, opts ...Option) func(http.Handler) http.Handler {
	c := newConfig(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if len(q) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			raw := flatten(q)
			out, err := marshal.Marshal(raw, raw, s, marshal.Input)
			if err != nil {
				c.reject(w, r, err)
				return
			}
			params, _ := out.(map[string]any)
			next.ServeHTTP(w, r.WithContext(ContextWithParams(r.Context(), params)))
		})
	}
}

// flatten turns single-valued parameters into strings and repeated ones into
// lists.
func flatten(q url.Values) map[string]any {
	out := make(map[string]any, len(q))
	for k, vs := range q {
		if len(vs) == 1 {
			out[k] = vs[0]
			continue
		}
		l := make([]any, len(vs))
		for i, v := range vs {
			l[i] = v
		}
		out[k] = l
	}
	return out
}

// Response is what a MarshalWith handler returns. A zero Code means 200.
type Response struct {
	Data   any
	Code   int
	Header http.Header
}

// HandlerFunc receives the marshaled request body (nil when the body is
// empty): a map[string]any, or a []any for list bodies.
type HandlerFunc func(r *http.Request, fields any) (Response, error)

// MarshalWith decodes the request body by Content-Type, marshals it (input
// direction) against s and hands it to h. The returned data is marshaled
// (output direction) against s and written in the representation negotiated
// from the Accept header.
func MarshalWith(s *marshal.Schema, h HandlerFunc, opts ...Option) http.Handler {
	c := newConfig(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fields, err := c.decodeBody(r, s)
		if err != nil {
			var unsupported *unsupportedTypeError
			if errors.As(err, &unsupported) {
				c.logger.Debug().Str("content_type", unsupported.contentType).Msg("unsupported request content type")
				c.writeError(w, r, http.StatusUnsupportedMediaType, err)
				return
			}
			c.reject(w, r, err)
			return
		}

		resp, err := h(r, fields)
		if err != nil {
			c.logger.Error().Err(err).Str("path", r.URL.Path).Msg("handler failed")
			c.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		code := resp.Code
		if code == 0 {
			code = http.StatusOK
		}
		if code == http.StatusNoContent {
			copyHeader(w.Header(), resp.Header)
			w.WriteHeader(code)
			return
		}

		out, err := marshal.MarshalOutput(resp.Data, s)
		if err != nil {
			c.logger.Error().Err(err).Str("path", r.URL.Path).Msg("response marshaling failed")
			c.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		rep := c.reps.Negotiate(r.Header.Get("Accept"))
		if err := representation.Write(w, rep, out, code, resp.Header); err != nil {
			c.logger.Error().Err(err).Str("path", r.URL.Path).Msg("response write failed")
			c.writeError(w, r, http.StatusInternalServerError, err)
		}
	})
}

type unsupportedTypeError struct{ contentType string }

func (e *unsupportedTypeError) Error() string {
	return "unsupported content type " + e.contentType
}

func (c *config) decodeBody(r *http.Request, s *marshal.Schema) (any, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	ct := r.Header.Get("Content-Type")
	rep, ok := c.reps.ForContentType(ct)
	if !ok {
		return nil, &unsupportedTypeError{contentType: ct}
	}
	data, err := rep.Decode(body)
	if err != nil {
		return nil, err
	}
	return marshal.MarshalInput(data, s)
}

// reject answers a request whose input could not be marshaled. Schema
// declaration mistakes are server errors.
func (c *config) reject(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusBadRequest
	if me, ok := marshal.AsMarshallingError(err); ok && me.IsContract() {
		code = http.StatusInternalServerError
		c.logger.Error().Err(err).Str("path", r.URL.Path).Msg("invalid schema declaration")
	} else {
		c.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected")
	}
	c.writeError(w, r, code, err)
}

func (c *config) writeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	rep := c.reps.Negotiate(r.Header.Get("Accept"))
	if _, ok := rep.(representation.HTML); ok {
		rep = representation.JSON{}
	}
	if werr := representation.Write(w, rep, ErrorPayload(err), code, nil); werr != nil {
		c.logger.Error().Err(werr).Msg("error response write failed")
	}
}

// ErrorPayload shapes an error for responses. Marshaling errors expose their
// code, JSON Pointer path and translated message.
func ErrorPayload(err error) map[string]any {
	if me, ok := marshal.AsMarshallingError(err); ok {
		return map[string]any{"error": map[string]any{
			"code":    me.Code,
			"path":    me.Path,
			"message": me.Message,
		}}
	}
	return map[string]any{"error": map[string]any{"message": err.Error()}}
}

// NoCache marks every response of h as non-cacheable.
func NoCache(h HandlerFunc) HandlerFunc {
	return AddResponseHeaders(http.Header{"Cache-Control": []string{CacheControlNoCache}})(h)
}

// AddResponseHeaders adds header to every response of the wrapped handler.
// The header is copied per request, so handlers may modify their own.
func AddResponseHeaders(header http.Header) func(HandlerFunc) HandlerFunc {
	return func(h HandlerFunc) HandlerFunc {
		return func(r *http.Request, fields any) (Response, error) {
			resp, err := h(r, fields)
			if err != nil {
				return resp, err
			}
			if len(header) == 0 {
				return resp, nil
			}
			merged := header.Clone()
			copyHeader(merged, resp.Header)
			resp.Header = merged
			return resp, nil
		}
	}
}

// Headers sets header on every response passing through a plain http.Handler
// chain, before the handler writes.
func Headers(header http.Header) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for k, vs := range header {
				w.Header()[k] = append([]string(nil), vs...)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func copyHeader(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}
