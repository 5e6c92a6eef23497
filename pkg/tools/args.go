package tools

// Argument extraction helpers. Arguments arrive as decoded JSON, so
// numbers are float64; schema validation has already run, which makes
// missing optional values the only case to handle.

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func intArg(args map[string]any, key string) int {
	if f, ok := args[key].(float64); ok {
		return int(f)
	}
	return 0
}

func optIntArg(args map[string]any, key string) *int {
	f, ok := args[key].(float64)
	if !ok {
		return nil
	}
	n := int(f)
	return &n
}

func optFloatArg(args map[string]any, key string) *float64 {
	f, ok := args[key].(float64)
	if !ok {
		return nil
	}
	return &f
}
