package echo

import (
	"net/http"
	"regexp"
	"strings"
)

// HandlerFunc serves a matched route with its path parameters.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, params map[string]string)

// Route is one fixture endpoint.
type Route struct {
	// Method is empty for routes answering every method.
	Method      string
	PathPattern string
	PathRegex   *regexp.Regexp
	Handler     HandlerFunc
}

// Router matches incoming requests to routes in registration order.
type Router struct {
	routes []*Route
}

func NewRouter() *Router {
	return &Router{
		routes: make([]*Route, 0),
	}
}

// Handle registers handler for method and a pattern such as
// "/json/{{key}}/{{value}}".
func (r *Router) Handle(method, pattern string, handler HandlerFunc) {
	r.routes = append(r.routes, &Route{
		Method:      method,
		PathPattern: pattern,
		PathRegex:   createPathRegex(pattern),
		Handler:     handler,
	})
}

// Routes returns the registered routes.
func (r *Router) Routes() []*Route {
	return r.routes
}

// Match finds a route matching the given method and path
func (r *Router) Match(method, path string) (*Route, map[string]string) {
	path = normalizePath(path)

	for _, route := range r.routes {
		if route.Method != "" && !strings.EqualFold(route.Method, method) {
			continue
		}
		if params := matchPath(route, path); params != nil {
			return route, params
		}
	}

	return nil, nil
}

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	// Remove trailing slash (except for root)
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}

var paramPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

func createPathRegex(pattern string) *regexp.Regexp {
	parts := paramPattern.Split(pattern, -1)
	names := paramPattern.FindAllStringSubmatch(pattern, -1)

	var b strings.Builder
	b.WriteString("^")
	for i, part := range parts {
		b.WriteString(regexp.QuoteMeta(part))
		if i < len(names) {
			b.WriteString("(?P<" + names[i][1] + ">[^/]+)")
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

func matchPath(route *Route, path string) map[string]string {
	matches := route.PathRegex.FindStringSubmatch(path)
	if matches == nil {
		return nil
	}
	params := make(map[string]string)
	for i, name := range route.PathRegex.SubexpNames() {
		if i > 0 && name != "" {
			params[name] = matches[i]
		}
	}
	return params
}
