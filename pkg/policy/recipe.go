package policy

import (
	"strings"

	"mercator-hq/aiguard/pkg/config"
)

// RecipeHeader lets a client pick the recipe directly.
const RecipeHeader = "x-pangea-aig-recipe"

// ResolveRecipe computes the recipe for a guard call. Later sources win:
//
//  1. the recipe on op
//  2. a non-empty RecipeHeader
//  3. each override, in order, whose header carries a mapped value
//
// ResolveRecipe does not modify op.
func ResolveRecipe(op *Operation, headers map[string]string, overrides []config.HeaderOverride) string {
	var recipe string
	if op != nil {
		recipe = op.Recipe()
	}

	if v := HeaderValue(headers, RecipeHeader); v != "" {
		recipe = v
	}

	for _, o := range overrides {
		v := HeaderValue(headers, o.Header)
		if v == "" {
			continue
		}
		if mapped, ok := o.Recipes[v]; ok && mapped != "" {
			recipe = mapped
		}
	}

	return recipe
}

// HeaderValue looks up name in headers ignoring case.
func HeaderValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
