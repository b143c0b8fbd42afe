package server

import (
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/arthur-debert/shopdata/catalog"
	"github.com/arthur-debert/shopdata/query"
)

// Route is one entry of the API. The table drives both the mux and the
// /api/structure listing.
type Route struct {
	Method      string
	Pattern     string
	Description string
	QueryParams []string
	handler     http.Handler
}

// Params returns the path wildcards of the pattern, e.g. "id" for
// /api/orders/{id}.
func (r Route) Params() []string {
	var out []string
	for _, m := range wildcard.FindAllStringSubmatch(r.Pattern, -1) {
		out = append(out, m[1])
	}
	return out
}

var wildcard = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(?:\.\.\.)?\}`)

func (s *Server) routeTable() []Route {
	routes := []Route{
		{
			Method:      http.MethodGet,
			Pattern:     "/healthz",
			Description: "Liveness probe",
			handler:     http.HandlerFunc(s.handleHealthz),
		},
	}

	for _, r := range catalog.Resources() {
		params := r.Schema.ParamNames()
		if !r.Paginated {
			params = withoutPagination(params)
		}
		routes = append(routes, Route{
			Method:      http.MethodGet,
			Pattern:     "/api/" + r.Name,
			Description: r.Description,
			QueryParams: params,
			handler:     s.handleList(r),
		})
	}

	for _, r := range []catalog.Resource{catalog.Orders, catalog.Products, catalog.Customers} {
		routes = append(routes, Route{
			Method:      http.MethodGet,
			Pattern:     "/api/" + r.Name + "/{id}",
			Description: "Get a specific " + strings.TrimSuffix(r.Name, "s") + " by ID",
			handler:     s.handleDetail(r),
		})
	}

	routes = append(routes,
		Route{
			Method:      http.MethodPost,
			Pattern:     "/api/products/for-you",
			Description: "Get personalized product recommendations",
			handler:     http.HandlerFunc(s.handleForYou),
		},
		Route{
			Method:      http.MethodGet,
			Pattern:     "/api/shipping",
			Description: "Shipping zones and rates",
			handler:     http.HandlerFunc(s.handleShipping),
		},
		Route{
			Method:      http.MethodGet,
			Pattern:     "/api/analytics",
			Description: "Sales analytics for a period",
			QueryParams: []string{"type", "period"},
			handler:     http.HandlerFunc(s.handleAnalytics),
		},
		Route{
			Method:      http.MethodGet,
			Pattern:     "/api/data",
			Description: "List data files or read one",
			QueryParams: []string{"file"},
			handler:     http.HandlerFunc(s.handleData),
		},
		Route{
			Method:      http.MethodGet,
			Pattern:     "/api/data/{path...}",
			Description: "Access raw data files",
			handler:     http.HandlerFunc(s.handleDataFile),
		},
		Route{
			Method:      http.MethodGet,
			Pattern:     "/api/inspect",
			Description: "Browse a data file record by record",
			QueryParams: []string{"file", "index", "search", "expand", "toggle"},
			handler:     http.HandlerFunc(s.handleInspect),
		},
		Route{
			Method:      http.MethodGet,
			Pattern:     "/api/session",
			Description: "Current debug customer",
			handler:     http.HandlerFunc(s.handleSession),
		},
		Route{
			Method:      http.MethodGet,
			Pattern:     "/api/structure",
			Description: "List the API routes",
			handler:     http.HandlerFunc(s.handleStructure),
		},
	)
	return routes
}

func withoutPagination(params []string) []string {
	out := params[:0:0]
	for _, p := range params {
		if p != query.ParamLimit && p != query.ParamOffset {
			out = append(out, p)
		}
	}
	return out
}

// RouteInfo describes one path of the API. Methods served on the same
// path are merged.
type RouteInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
	Params      []string `json:"params,omitempty"`
	QueryParams []string `json:"queryParams,omitempty"`
}

// TreeNode is one path segment of the route tree.
type TreeNode struct {
	Name     string               `json:"name"`
	Children map[string]*TreeNode `json:"children"`
	Methods  []string             `json:"methods"`
}

// Structure is the /api/structure response.
type Structure struct {
	Routes    []RouteInfo          `json:"routes"`
	Tree      map[string]*TreeNode `json:"tree"`
	Timestamp time.Time            `json:"timestamp"`
}

// describeRoutes lists the API paths ordered by segment count, then
// alphabetically.
func describeRoutes(routes []Route) []RouteInfo {
	var infos []RouteInfo
	index := map[string]int{}
	for _, r := range routes {
		if !strings.HasPrefix(r.Pattern, "/api/") {
			continue
		}
		if i, ok := index[r.Pattern]; ok {
			infos[i].Methods = append(infos[i].Methods, r.Method)
			continue
		}
		index[r.Pattern] = len(infos)
		infos = append(infos, RouteInfo{
			Path:        r.Pattern,
			Methods:     []string{r.Method},
			Description: r.Description,
			Params:      r.Params(),
			QueryParams: r.QueryParams,
		})
	}

	sort.SliceStable(infos, func(i, j int) bool {
		a, b := strings.Count(infos[i].Path, "/"), strings.Count(infos[j].Path, "/")
		if a != b {
			return a < b
		}
		return infos[i].Path < infos[j].Path
	})
	return infos
}

// buildTree nests the routes by path segment. Intermediate segments that
// are not routes themselves carry no methods.
func buildTree(routes []RouteInfo) map[string]*TreeNode {
	tree := map[string]*TreeNode{}
	for _, r := range routes {
		parts := strings.Split(strings.Trim(r.Path, "/"), "/")
		current := tree
		for i, part := range parts {
			node, ok := current[part]
			if !ok {
				node = &TreeNode{Name: part, Children: map[string]*TreeNode{}, Methods: []string{}}
				current[part] = node
			}
			if i == len(parts)-1 {
				node.Methods = r.Methods
			}
			current = node.Children
		}
	}
	return tree
}
