package incident

// Incident payloads vary in shape across sources. These accessors declare the
// expected type at each probe site and return zero values on any mismatch so
// callers never panic on a hostile document.

func subMap(doc map[string]interface{}, key string) map[string]interface{} {
	if doc == nil {
		return nil
	}
	m, _ := doc[key].(map[string]interface{})
	return m
}

func subSlice(doc map[string]interface{}, key string) []interface{} {
	if doc == nil {
		return nil
	}
	s, _ := doc[key].([]interface{})
	return s
}

func stringField(doc map[string]interface{}, key string) string {
	if doc == nil {
		return ""
	}
	s, _ := doc[key].(string)
	return s
}

func floatField(doc map[string]interface{}, key string, fallback float64) float64 {
	if doc == nil {
		return fallback
	}
	f, ok := doc[key].(float64)
	if !ok {
		return fallback
	}
	return f
}

func firstString(doc map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s := stringField(doc, key); s != "" {
			return s
		}
	}
	return ""
}
