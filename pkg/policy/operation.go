package policy

// DefaultRecipe is injected into every operation that does not name one.
const DefaultRecipe = "pangea_prompt_guard"

// DefaultService is the service block consulted when none is named.
const DefaultService = "ai_guard"

// Operation is the parameter bag sent to the guard for one request phase.
//
// An Operation always carries a "recipe". It is built fresh for every
// request and owned by that request, so it may be mutated freely.
type Operation struct {
	params map[string]any
}

// NewOperation deep-copies params, drops the "enabled" switch and injects
// DefaultRecipe when no recipe is present.
func NewOperation(params map[string]any) *Operation {
	copied := deepCopyMap(params)
	if copied == nil {
		copied = make(map[string]any)
	}
	delete(copied, "enabled")
	if r, ok := copied["recipe"].(string); !ok || r == "" {
		copied["recipe"] = DefaultRecipe
	}
	return &Operation{params: copied}
}

// Recipe returns the recipe the guard call will use.
func (o *Operation) Recipe() string {
	r, _ := o.params["recipe"].(string)
	return r
}

// SetRecipe replaces the recipe. Empty values are ignored.
func (o *Operation) SetRecipe(recipe string) {
	if recipe == "" {
		return
	}
	o.params["recipe"] = recipe
}

// Set stores an arbitrary pass-through parameter.
func (o *Operation) Set(key string, value any) {
	o.params[key] = value
}

// Get returns a parameter value.
func (o *Operation) Get(key string) (any, bool) {
	v, ok := o.params[key]
	return v, ok
}

// Params returns a copy of the parameter bag.
func (o *Operation) Params() map[string]any {
	return deepCopyMap(o.params)
}

func deepCopyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	default:
		return v
	}
}
