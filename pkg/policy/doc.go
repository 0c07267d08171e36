// Package policy turns the rules section of a configuration into a
// matchable rule set.
//
// A Set holds the rules in configuration order. MatchRule returns the first
// rule whose model equals the request model exactly; there is no wildcarding
// and no case folding. A matched Rule yields an Operation for a phase, which
// is the parameter bag the guard receives. ResolveRecipe then picks the
// recipe from the rule, the x-pangea-aig-recipe header and the configured
// header overrides.
//
// Sets, rules and their parameter templates never change after NewSet
// returns. Operations are deep copies and belong to a single request.
package policy
