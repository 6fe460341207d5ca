package help

import (
	"os"
	"os/user"
	"path/filepath"
)

// HomeDir returns the user's home directory, or "" when none can be found.
func HomeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	if u, err := user.Current(); err == nil {
		return u.HomeDir
	}
	// Windows fallback
	if h := os.Getenv("USERPROFILE"); h != "" {
		return h
	}
	return ""
}

// StateFile is $HOME/.ktail/<name>, or "" without a home directory.
func StateFile(name string) string {
	home := HomeDir()
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".ktail", name)
}

// ConfigSearchDirs lists where config.yaml is looked up, most specific first.
func ConfigSearchDirs() []string {
	added := make(map[string]struct{})
	var dirs []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := added[path]; ok {
			return
		}
		added[path] = struct{}{}
		dirs = append(dirs, path)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		add(filepath.Join(xdg, "ktail"))
	}
	if home := HomeDir(); home != "" {
		add(filepath.Join(home, ".config", "ktail"))
		add(filepath.Join(home, ".ktail"))
	}
	return dirs
}
