package engine

import "syndrrel/src/models"

// CloneDocument deep copies a document so callers never share storage
func CloneDocument(doc models.Document) models.Document {
	if doc == nil {
		return nil
	}
	out := make(models.Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(value interface{}) interface{} {
	switch v := value.(type) {
	case models.Document:
		return CloneDocument(v)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[k] = cloneValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	case []byte:
		return append([]byte(nil), v...)
	default:
		return v
	}
}
