//go:build !debug

package uconf

func dirSuffix() string { return "" }

// DefaultPortForBuild returns the release default port.
func DefaultPortForBuild() int { return DefaultPort }
