// Package routes is a named route table on top of chi. It serves requests and
// builds URLs for routes by name, which is what marshal.URL fields resolve
// through.
package routes

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/reoring/marshal"
)

var (
	ErrUnknownRoute   = errors.New("routes: unknown route")
	ErrDuplicateRoute = errors.New("routes: duplicate route name")
	ErrMissingParam   = errors.New("routes: missing path parameter")
	ErrParamMismatch  = errors.New("routes: path parameter does not match its pattern")
	ErrBadPattern     = errors.New("routes: malformed pattern")
)

// Table routes requests with chi and remembers every pattern by name.
// Registration and URL building are safe for concurrent use.
type Table struct {
	router chi.Router
	base   string

	mu     sync.RWMutex
	routes map[string]route
}

var _ marshal.EndpointResolver = (*Table)(nil)

type route struct {
	method  string
	pattern string
	parts   []part
}

// part is either literal text or a {name} / {name:regexp} placeholder.
type part struct {
	text  string
	param bool
	re    *regexp.Regexp
}

// Option configures a Table.
type Option func(*Table)

// WithBaseURL prefixes every built URL, e.g. "https://api.example.com".
func WithBaseURL(base string) Option {
	return func(t *Table) { t.base = strings.TrimRight(base, "/") }
}

// WithRouter uses r instead of a fresh chi router, so middleware can be
// installed on it beforehand.
func WithRouter(r chi.Router) Option {
	return func(t *Table) {
		if r != nil {
			t.router = r
		}
	}
}

// New returns an empty table.
func New(opts ...Option) *Table {
	t := &Table{router: chi.NewRouter(), routes: map[string]route{}}
	for _, o := range opts {
		if o != nil {
			o(t)
		}
	}
	return t
}

// Handle registers h for method and pattern under name. Patterns use chi
// syntax: {id} and {id:[0-9]+} placeholders.
func (t *Table) Handle(name, method, pattern string, h http.Handler) error {
	parts, err := parsePattern(pattern)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.routes[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateRoute, name)
	}
	t.router.Method(method, pattern, h)
	t.routes[name] = route{method: method, pattern: pattern, parts: parts}
	return nil
}

// HandleFunc is Handle for plain functions.
func (t *Table) HandleFunc(name, method, pattern string, fn http.HandlerFunc) error {
	return t.Handle(name, method, pattern, fn)
}

// Router exposes the underlying chi router.
func (t *Table) Router() chi.Router { return t.router }

func (t *Table) ServeHTTP(w http.ResponseWriter, r *http.Request) { t.router.ServeHTTP(w, r) }

// Names returns the registered route names, sorted.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.routes))
	for n := range t.routes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Pattern returns the method and pattern registered under name.
func (t *Table) Pattern(name string) (method, pattern string, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.routes[name]
	return r.method, r.pattern, ok
}

// URLFor builds the URL of the named route. Path parameters are taken from
// params and escaped; the remaining non-nil params become the query string.
func (t *Table) URLFor(name string, params map[string]any) (string, error) {
	t.mu.RLock()
	r, ok := t.routes[name]
	t.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoute, name)
	}

	used := map[string]bool{}
	b := &strings.Builder{}
	b.WriteString(t.base)
	for _, p := range r.parts {
		if !p.param {
			b.WriteString(p.text)
			continue
		}
		v, ok := params[p.text]
		if !ok || v == nil {
			return "", fmt.Errorf("%w: %q in route %q", ErrMissingParam, p.text, name)
		}
		s := fmt.Sprint(v)
		if p.re != nil && !p.re.MatchString(s) {
			return "", fmt.Errorf("%w: %s=%q in route %q", ErrParamMismatch, p.text, s, name)
		}
		used[p.text] = true
		if p.text == "*" {
			b.WriteString(s)
		} else {
			b.WriteString(url.PathEscape(s))
		}
	}

	q := url.Values{}
	for k, v := range params {
		if used[k] || v == nil {
			continue
		}
		q.Set(k, fmt.Sprint(v))
	}
	if len(q) > 0 {
		b.WriteByte('?')
		b.WriteString(q.Encode())
	}
	return b.String(), nil
}

func parsePattern(pattern string) ([]part, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("%w: %q must start with '/'", ErrBadPattern, pattern)
	}
	var parts []part
	rest := pattern
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			parts = appendWildcard(parts, rest)
			break
		}
		if open > 0 {
			parts = append(parts, part{text: rest[:open]})
		}
		end := closingBrace(rest, open)
		if end < 0 {
			return nil, fmt.Errorf("%w: unclosed '{' in %q", ErrBadPattern, pattern)
		}
		p, err := placeholder(rest[open+1 : end])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadPattern, pattern, err)
		}
		parts = append(parts, p)
		rest = rest[end+1:]
	}
	return parts, nil
}

// appendWildcard splits a trailing chi catch-all ("/static/*") into its own
// parameter named "*".
func appendWildcard(parts []part, text string) []part {
	if strings.HasSuffix(text, "*") {
		if head := text[:len(text)-1]; head != "" {
			parts = append(parts, part{text: head})
		}
		return append(parts, part{text: "*", param: true})
	}
	return append(parts, part{text: text})
}

// closingBrace finds the brace closing the one at open, allowing nested
// braces inside regular expressions such as {id:[0-9]{3}}.
func closingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func placeholder(body string) (part, error) {
	name, expr, hasExpr := strings.Cut(body, ":")
	if name == "" {
		return part{}, errors.New("empty parameter name")
	}
	p := part{text: name, param: true}
	if hasExpr {
		re, err := regexp.Compile("^(?:" + expr + ")$")
		if err != nil {
			return part{}, err
		}
		p.re = re
	}
	return p, nil
}
