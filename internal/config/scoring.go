package config

import (
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/jask/clienthealth/internal/scoring"
)

// LoadScoring reads scoring rules from path. Keys missing from the file
// keep their built-in values at every depth. An empty path yields the
// defaults.
func LoadScoring(path string) (scoring.Config, error) {
	if path == "" {
		return scoring.Default(), nil
	}
	v := newScoringViper()
	v.SetConfigFile(path)
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" {
		v.SetConfigType("toml")
	}
	if err := v.ReadInConfig(); err != nil {
		return scoring.Config{}, fmt.Errorf("read scoring config %s: %w", path, err)
	}
	return unmarshalScoring(v)
}

// ParseScoring reads scoring rules in the given format (toml, yaml, json).
func ParseScoring(r io.Reader, format string) (scoring.Config, error) {
	v := newScoringViper()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return scoring.Config{}, fmt.Errorf("parse scoring config: %w", err)
	}
	return unmarshalScoring(v)
}

func newScoringViper() *viper.Viper {
	v := viper.New()
	setLeafDefaults(v, "", reflect.ValueOf(scoring.Default()))
	return v
}

func unmarshalScoring(v *viper.Viper) (scoring.Config, error) {
	var c scoring.Config
	if err := v.Unmarshal(&c); err != nil {
		return scoring.Config{}, fmt.Errorf("unmarshal scoring config: %w", err)
	}
	if c.RollupMode != scoring.RollupWorst && c.RollupMode != scoring.RollupWeighted {
		return scoring.Config{}, fmt.Errorf("unmarshal scoring config: unknown rollup_mode %q", c.RollupMode)
	}
	return c, nil
}

// setLeafDefaults registers one viper default per scalar or list leaf of
// val. Registering leaves rather than whole branches keeps sibling defaults
// alive when a file overrides a single nested key.
func setLeafDefaults(v *viper.Viper, prefix string, val reflect.Value) {
	switch val.Kind() {
	case reflect.Struct:
		t := val.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
			if name == "" || name == "-" {
				name = strings.ToLower(f.Name)
			}
			setLeafDefaults(v, joinKey(prefix, name), val.Field(i))
		}
	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			v.SetDefault(prefix, val.Interface())
			return
		}
		iter := val.MapRange()
		for iter.Next() {
			setLeafDefaults(v, joinKey(prefix, iter.Key().String()), iter.Value())
		}
	default:
		v.SetDefault(prefix, val.Interface())
	}
}

func joinKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
