package internal

import (
	"os"
	"path/filepath"
)

const ScopeDirName = ".ucp"

type ScopeType string

const (
	ScopeGlobal  ScopeType = "global"
	ScopeProject ScopeType = "project"
)

type Scope struct {
	Type    ScopeType
	Path    string // directory holding the .ucp directory
	UcpPath string // .ucp directory path
}

func (s Scope) ConfigPath() string {
	return filepath.Join(s.UcpPath, "config.yaml")
}

type ScopeResolver struct {
	homeDir string
}

func NewScopeResolver() *ScopeResolver {
	home, _ := os.UserHomeDir()
	return &ScopeResolver{homeDir: home}
}

func (r *ScopeResolver) Global() Scope {
	return Scope{
		Type:    ScopeGlobal,
		Path:    r.homeDir,
		UcpPath: filepath.Join(r.homeDir, ScopeDirName),
	}
}

func (r *ScopeResolver) Project() (Scope, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return Scope{}, false
	}
	return r.findProjectScope(cwd)
}

func (r *ScopeResolver) findProjectScope(dir string) (Scope, bool) {
	for {
		if dir != r.homeDir {
			ucpPath := filepath.Join(dir, ScopeDirName)
			info, err := os.Stat(ucpPath)
			if err == nil && info.IsDir() {
				return Scope{Type: ScopeProject, Path: dir, UcpPath: ucpPath}, true
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Scope{}, false
		}
		dir = parent
	}
}

// Resolve picks the scope whose config applies: "global" forces the home
// scope, otherwise the nearest project scope wins.
func (r *ScopeResolver) Resolve(explicit string) Scope {
	if explicit == string(ScopeGlobal) {
		return r.Global()
	}
	if scope, ok := r.Project(); ok {
		return scope
	}
	return r.Global()
}

// EnvVars describes the resolved environment for external ucp-* commands.
func (r *ScopeResolver) EnvVars(scope Scope, cfg *Config, version string) map[string]string {
	ucpBin, _ := os.Executable()
	return map[string]string{
		"UCP_SCOPE":    string(scope.Type),
		"UCP_CONFIG":   scope.ConfigPath(),
		"UCP_BASE_URL": cfg.BaseURL,
		"UCP_PROJECT":  cfg.Project,
		"UCP_VERSION":  version,
		"UCP_BIN":      ucpBin,
	}
}
