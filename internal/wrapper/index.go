package wrapper

import (
	"os"

	"github.com/routewarden/routewarden/internal/model"
	"github.com/routewarden/routewarden/internal/resolver"
)

// BuildIndex runs Phases A-D of the wrapper pipeline over every route
// handler's export chains and returns the resulting wrapper arena, keyed by
// wrapper name, per spec §4.6. Unresolved wrappers (resolved=false) are
// still indexed so WRAPPER-UNRECOGNIZED can report on them; their
// DefinitionFile is left empty.
func BuildIndex(routes []*model.RouteHandler, r *resolver.Resolver, authFunctions, rateLimitWrappers []string) map[string]*model.WrapperAnalysis {
	index := make(map[string]*model.WrapperAnalysis)

	for _, route := range routes {
		data, err := os.ReadFile(route.File)
		if err != nil {
			continue
		}
		isMutationRoute := route.Signals.MutationEvidence

		for _, chain := range ExtractChains(string(data)) {
			for _, name := range chain.Wrappers {
				analysis := index[name]
				if analysis == nil {
					analysis = &model.WrapperAnalysis{Name: name}
					if defFile, resolved := Resolve(name, route.File, r); resolved {
						analysis.Resolved = true
						analysis.DefinitionFile = defFile
						analysis.Evidence = AnalyzeBody(defFile, name, authFunctions, rateLimitWrappers)
					}
					index[name] = analysis
				}
				analysis.RecordUsage(route.File, isMutationRoute)
			}
		}
	}

	return index
}
