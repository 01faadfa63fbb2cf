package main

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"testing"

	"boardkit-api/internal/config"
	"boardkit-api/internal/http/docs"
	"boardkit-api/internal/http/handler"
	"boardkit-api/internal/observability/logger"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

var chiParamRegex = regexp.MustCompile(`\{([^:]+):[^}]+\}`)

func driftRouter() chi.Router {
	return buildRouter(RouterDeps{
		Cfg:               &config.Config{OTELServiceName: "test", AppEnv: "test"},
		Log:               logger.Nop(),
		BoardHandler:      &handler.BoardHandler{},
		MemberHandler:     &handler.MemberHandler{},
		InvitationHandler: &handler.InvitationHandler{},
		DebugHandler:      &handler.DebugHandler{},
	})
}

func documentedRoutes(t *testing.T) map[string]bool {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromData(docs.GetSpecBytes())
	require.NoError(t, err, "failed to load OpenAPI document")

	routes := make(map[string]bool)
	for path, pathItem := range doc.Paths.Map() {
		for method := range pathItem.Operations() {
			routes[fmt.Sprintf("%s %s", strings.ToUpper(method), path)] = true
		}
	}
	return routes
}

func implementedRoutes(t *testing.T, r chi.Router) map[string]bool {
	t.Helper()
	routes := make(map[string]bool)
	walkFunc := func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if strings.HasPrefix(route, "/debug") {
			return nil
		}
		m := strings.ToUpper(method)
		switch m {
		case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			routes[fmt.Sprintf("%s %s", m, normalizeChiPath(route))] = true
		}
		return nil
	}
	require.NoError(t, chi.Walk(r, walkFunc), "failed to walk chi router")
	return routes
}

func TestOpenAPIDriftCheck(t *testing.T) {
	documented := documentedRoutes(t)
	implemented := implementedRoutes(t, driftRouter())

	var undocumented []string
	for route := range implemented {
		if !documented[route] {
			undocumented = append(undocumented, route)
		}
	}
	if len(undocumented) > 0 {
		sort.Strings(undocumented)
		t.Errorf("Drift detected! The following routes are implemented but NOT documented in OpenAPI:\n%s",
			strings.Join(undocumented, "\n"))
	}

	var unimplemented []string
	for route := range documented {
		if !implemented[route] {
			unimplemented = append(unimplemented, route)
		}
	}
	if len(unimplemented) > 0 {
		sort.Strings(unimplemented)
		t.Errorf("Drift detected! The following routes are documented but NOT implemented:\n%s",
			strings.Join(unimplemented, "\n"))
	}
}

// normalizeChiPath removes regex from chi parameters and trailing slashes
func normalizeChiPath(path string) string {
	normalized := chiParamRegex.ReplaceAllString(path, "{$1}")
	if len(normalized) > 1 && strings.HasSuffix(normalized, "/") {
		normalized = normalized[:len(normalized)-1]
	}
	return normalized
}

func TestNormalizeChiPath(t *testing.T) {
	tests := map[string]string{
		"/":                                     "/",
		"/v1/boards/":                           "/v1/boards",
		"/v1/boards/{boardId}/":                 "/v1/boards/{boardId}",
		"/v1/boards/{boardId:[0-9a-f-]+}/access": "/v1/boards/{boardId}/access",
	}
	for in, want := range tests {
		if got := normalizeChiPath(in); got != want {
			t.Errorf("normalizeChiPath(%q) = %q, want %q", in, got, want)
		}
	}
}
