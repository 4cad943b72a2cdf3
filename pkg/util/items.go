package util

import (
	"fmt"
)

// ItemString best-effort formats an upstream object for debug logging
func ItemString(kind string, id int64, obj map[string]interface{}) string {
	name, _ := obj["name"].(string)
	if name == "" {
		return fmt.Sprintf("%s:%d", kind, id)
	}
	return fmt.Sprintf("%s:%d(%q)", kind, id, name)
}
