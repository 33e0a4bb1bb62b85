// Package rpc resolves the typed-RPC router tree reachable from a proxy
// route under api/rpc/** and extracts its procedures (spec §4.4).
package rpc

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/routewarden/routewarden/internal/model"
	"github.com/routewarden/routewarden/internal/resolver"
)

// handlerMarkers is the small set of strings whose presence in a proxy
// route's body identifies it as the typed-RPC entry point.
var handlerMarkers = []string{
	"fetchRequestHandler", "createNextApiHandler", "createHTTPHandler",
	"createOpenApiNextHandler", "nodeHTTPRequestHandler",
}

var apiRPCRe = regexp.MustCompile(`/api/rpc(/|$)`)

// FindProxyRoute returns the first discovered route handler under
// api/rpc/** whose body mentions a handler marker, or nil.
func FindProxyRoute(routes []*model.RouteHandler) *model.RouteHandler {
	for _, route := range routes {
		if !apiRPCRe.MatchString(filepath.ToSlash(route.Pathname)) {
			continue
		}
		data, err := os.ReadFile(route.File)
		if err != nil {
			continue
		}
		src := string(data)
		for _, marker := range handlerMarkers {
			if strings.Contains(src, marker) {
				return route
			}
		}
	}
	return nil
}

// Discover runs the full typed-RPC sub-pipeline starting from the proxy
// route's file, returning every procedure found in the root router and one
// hop of sub-routers (spec §4.4: "without recursion").
func Discover(proxyRoute *model.RouteHandler, r *resolver.Resolver) []*model.RPCProcedure {
	data, err := os.ReadFile(proxyRoute.File)
	if err != nil {
		return nil
	}

	rootFile := resolveRootRouterFile(string(data), proxyRoute.File, r)
	if rootFile == "" {
		return nil
	}

	rootSrc, err := os.ReadFile(rootFile)
	if err != nil {
		return nil
	}

	var procedures []*model.RPCProcedure
	entries := walkRouterEntries(string(rootSrc))
	for _, e := range entries {
		if e.isProcedure {
			procedures = append(procedures, buildProcedure(rootFile, e))
			continue
		}
		// Sub-router reference: resolve one hop, no further recursion.
		subFile := resolveSubRouterFile(string(rootSrc), e.identifier, rootFile, r)
		if subFile == "" {
			continue
		}
		subSrc, err := os.ReadFile(subFile)
		if err != nil {
			continue
		}
		for _, sub := range walkRouterEntries(string(subSrc)) {
			if sub.isProcedure {
				procedures = append(procedures, buildProcedure(subFile, sub))
			}
		}
	}

	return procedures
}
