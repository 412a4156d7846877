// Build-time tool that fetches the native libraries needed for local
// embedding support: the ONNX Runtime shared library and the HuggingFace
// tokenizers static library, for the current platform.
//
// Required env: ORT_VERSION        (e.g. "1.23.2")
// Optional env: ORT_LIB_DIR        (default "./lib")
//               TOKENIZERS_VERSION (default "1.24.0")
//
// Usage: ORT_VERSION=1.23.2 go run ./tools/download-ort
package main

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// nativeLib describes one downloadable library: where its release archive
// lives and which file to pull out of it.
type nativeLib struct {
	name   string
	url    string
	member string
}

func main() {
	ortVersion := os.Getenv("ORT_VERSION")
	if ortVersion == "" {
		fatal("ORT_VERSION env var is required")
	}
	tokVersion := envOr("TOKENIZERS_VERSION", "1.24.0")
	libDir := envOr("ORT_LIB_DIR", "./lib")

	if err := os.MkdirAll(libDir, 0o755); err != nil {
		fatal("create directory: %v", err)
	}

	libs, err := platformLibs(ortVersion, tokVersion)
	if err != nil {
		fatal("%v", err)
	}

	for _, lib := range libs {
		if err := install(lib, libDir); err != nil {
			fatal("%s download failed: %v", lib.name, err)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// platformLibs maps GOOS/GOARCH to the release archives published by the
// onnxruntime and daulet/tokenizers projects.
func platformLibs(ortVersion, tokVersion string) ([]nativeLib, error) {
	var ortArchive, ortFile, tokArchive string

	switch runtime.GOOS + "/" + runtime.GOARCH {
	case "linux/amd64":
		ortArchive = fmt.Sprintf("onnxruntime-linux-x64-%s.tgz", ortVersion)
		ortFile = "libonnxruntime.so"
		tokArchive = "libtokenizers.linux-amd64.tar.gz"
	case "linux/arm64":
		ortArchive = fmt.Sprintf("onnxruntime-linux-aarch64-%s.tgz", ortVersion)
		ortFile = "libonnxruntime.so"
		tokArchive = "libtokenizers.linux-arm64.tar.gz"
	case "darwin/arm64":
		ortArchive = fmt.Sprintf("onnxruntime-osx-arm64-%s.tgz", ortVersion)
		ortFile = "libonnxruntime.dylib"
		tokArchive = "libtokenizers.darwin-arm64.tar.gz"
	case "darwin/amd64":
		ortArchive = fmt.Sprintf("onnxruntime-osx-x86_64-%s.tgz", ortVersion)
		ortFile = "libonnxruntime.dylib"
		tokArchive = "libtokenizers.darwin-x86_64.tar.gz"
	default:
		return nil, fmt.Errorf("no prebuilt libraries for %s/%s", runtime.GOOS, runtime.GOARCH)
	}

	return []nativeLib{
		{
			name:   "ORT",
			url:    fmt.Sprintf("https://github.com/microsoft/onnxruntime/releases/download/v%s/%s", ortVersion, ortArchive),
			member: ortFile,
		},
		{
			name:   "tokenizers",
			url:    fmt.Sprintf("https://github.com/daulet/tokenizers/releases/download/v%s/%s", tokVersion, tokArchive),
			member: "libtokenizers.a",
		},
	}, nil
}

func install(lib nativeLib, libDir string) error {
	dest := filepath.Join(libDir, lib.member)
	if _, err := os.Stat(dest); err == nil {
		fmt.Printf("%s already exists at %s, skipping\n", lib.name, dest)
		return nil
	}

	fmt.Printf("Downloading %s from %s\n", lib.name, lib.url)

	delay := 2 * time.Second
	var err error
	for attempt := 0; attempt < 4; attempt++ {
		if attempt > 0 {
			fmt.Fprintf(os.Stderr, "retry in %s: %v\n", delay, err)
			time.Sleep(delay)
			delay *= 2
		}
		if err = fetchMember(lib.url, dest, lib.member); err == nil {
			fmt.Printf("%s installed to %s\n", lib.name, dest)
			return nil
		}
	}
	return err
}

func fetchMember(url, dest, member string) error {
	resp, err := http.Get(url) //nolint:gosec
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	return extractMember(resp.Body, dest, member)
}

// extractMember scans a .tgz stream for member and writes it to dest.
// Versioned names like libonnxruntime.1.23.2.dylib match too; symlink
// entries are ignored so the real file wins.
func extractMember(body io.Reader, dest, member string) error {
	gz, err := gzip.NewReader(body)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}
	defer gz.Close() //nolint:errcheck

	stem := strings.TrimSuffix(member, filepath.Ext(member))

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tar read: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		base := filepath.Base(header.Name)
		if base != member && !strings.HasPrefix(base, stem+".") {
			continue
		}

		out, err := os.Create(dest)
		if err != nil {
			return fmt.Errorf("create %s: %w", dest, err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			_ = out.Close()
			return fmt.Errorf("write %s: %w", dest, err)
		}
		return out.Close()
	}

	return fmt.Errorf("%s not found in archive", member)
}
