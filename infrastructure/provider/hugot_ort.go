//go:build ORT

package provider

import (
	"os"
	"path/filepath"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
)

func newHugotSession() (*hugot.Session, error) {
	if dir := ortLibraryDir(); dir != "" {
		return hugot.NewORTSession(options.WithOnnxLibraryPath(dir))
	}
	return hugot.NewORTSession()
}

// ortLibraryDir locates the ONNX Runtime shared library. ORT_LIB_DIR wins;
// otherwise a lib/ directory next to the executable or under the working
// directory is used. An empty return leaves hugot to its platform defaults.
func ortLibraryDir() string {
	if dir := os.Getenv("ORT_LIB_DIR"); dir != "" {
		return dir
	}

	var candidates []string
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), "lib"))
	}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, "lib"))
	}

	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return ""
}
