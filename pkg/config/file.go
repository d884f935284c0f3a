package config

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// LoadFile overlays a TOML file onto the environment and re-applies every
// setting. Keys are environment names; nested tables join with "_", so
// [telegram] bot_token sets TELEGRAM_BOT_TOKEN. Variables already present in
// the environment are left alone.
func LoadFile(path string) error {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	values := make(map[string]string)
	flatten("", raw, values)

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	applied := 0
	for _, key := range keys {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, values[key]); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
		applied++
	}
	log.Printf("Loaded %d configuration values from %s", applied, path)

	apply()
	return nil
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for key, value := range in {
		name := strings.ToUpper(key)
		if prefix != "" {
			name = prefix + "_" + name
		}
		switch v := value.(type) {
		case map[string]any:
			flatten(name, v, out)
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			out[name] = strings.Join(parts, ",")
		default:
			out[name] = fmt.Sprint(v)
		}
	}
}
