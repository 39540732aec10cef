//go:build debug

package uconf

func dirSuffix() string { return "_debug" }

// DefaultPortForBuild returns the debug default port.
func DefaultPortForBuild() int { return DebugPort }
