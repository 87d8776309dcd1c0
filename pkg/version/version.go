package version

// value is replaced at build time via -ldflags "-X snackstand/pkg/version.value=...".
var value = "dev"

// Version reports the build identifier embedded into the binary.
func Version() string {
	return value
}
