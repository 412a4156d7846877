//go:build !ORT

package provider

import "github.com/knights-analytics/hugot"

// The pure-Go backend needs no shared libraries, at the cost of slower
// inference than ONNX Runtime.
func newHugotSession() (*hugot.Session, error) {
	return hugot.NewGoSession()
}
