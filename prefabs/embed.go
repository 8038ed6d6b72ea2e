package prefabs

import (
	"embed"
	"os"
	"path/filepath"
	"strings"
	"time"
)

//go:embed scripts/*.tengo
var ScriptsFS embed.FS

//go:embed scenarios/*.yaml
var ScenariosFS embed.FS

// Root is the on-disk directory consulted before the embedded copies, so
// edited prefabs take effect without a rebuild.
var Root = "prefabs"

// Load reads a prefab relative to the prefabs directory.
func Load(name string) ([]byte, error) {
	clean := cleanPrefabPath(name)
	if data, err := os.ReadFile(diskPrefabPath(clean)); err == nil {
		return data, nil
	}
	if strings.HasPrefix(clean, "scripts/") {
		return ScriptsFS.ReadFile(clean)
	}
	return ScenariosFS.ReadFile(clean)
}

// LoadScript reads a tengo policy script.
func LoadScript(name string) ([]byte, error) {
	return Load(scriptPath(name))
}

// Scenarios lists the embedded scenario names.
func Scenarios() []string {
	entries, err := ScenariosFS.ReadDir("scenarios")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	return out
}

func ModTime(name string) (time.Time, bool) {
	clean := cleanPrefabPath(name)
	info, err := os.Stat(diskPrefabPath(clean))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func cleanPrefabPath(path string) string {
	if path == "" {
		return ""
	}
	s := filepath.ToSlash(path)
	if after, ok := strings.CutPrefix(s, "prefabs/"); ok {
		return after
	}
	return s
}

func scenarioPath(name string) string {
	s := cleanPrefabPath(name)
	s = strings.TrimPrefix(s, "scenarios/")
	if filepath.Ext(s) == "" {
		s += ".yaml"
	}
	return "scenarios/" + s
}

func scriptPath(name string) string {
	s := cleanPrefabPath(name)
	s = strings.TrimPrefix(s, "scripts/")
	if filepath.Ext(s) == "" {
		s += ".tengo"
	}
	return "scripts/" + s
}

func diskPrefabPath(clean string) string {
	return filepath.Join(Root, filepath.FromSlash(clean))
}
