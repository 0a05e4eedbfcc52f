package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Export ExportConfig
	Layout LayoutConfig
	Web    WebConfig
}

type LayoutConfig struct {
	TemplateFile string // optional YAML file replacing the embedded template
	FontFile     string // optional TTF replacing the regular caption font
}

type ExportConfig struct {
	Profile      string  // profile name, defaults to the default of the profiles file
	ProfilesFile string  // optional YAML file replacing the embedded profiles
	OutputDir    string  // directory generated PDFs are written to (default ".")
	PreviewScale float64 // px per mm of the live preview surface (default 96dpi)
}

type WebConfig struct {
	AllowedOrigins []string // CORS origins, empty allows any origin
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func Load() *Config {
	return &Config{
		Export: ExportConfig{
			Profile:      os.Getenv("PANEL_PROFILE"),
			ProfilesFile: os.Getenv("PANEL_PROFILES_FILE"),
			OutputDir:    envString("PANEL_OUTPUT_DIR", "."),
			PreviewScale: envFloat("PANEL_PREVIEW_SCALE", 96/25.4),
		},
		Layout: LayoutConfig{
			TemplateFile: os.Getenv("PANEL_TEMPLATE"),
			FontFile:     os.Getenv("PANEL_FONT"),
		},
		Web: WebConfig{
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}
