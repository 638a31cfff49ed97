// Package version holds build information and the toolchain requirements
// kmigrator checks before running.
package version

import (
	"fmt"
	"regexp"
	"runtime"

	goversion "github.com/hashicorp/go-version"
)

var (
	// Version is the version of the CLI
	Version = "0.1.0"
	// BuildDate is the build date
	BuildDate = "unknown"
	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// Toolchain requirements.
const (
	PythonConstraint = ">= 3.5"
	DjangoConstraint = ">= 3.0.6"
	NodeConstraint   = ">= 12"
)

// Info holds version information
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
	GoVersion string
	Platform  string
}

// Get returns version information
func Get() Info {
	return Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a formatted version string
func (i Info) String() string {
	return fmt.Sprintf("kmigrator version %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// FullString returns a detailed version string
func (i Info) FullString() string {
	return fmt.Sprintf(`kmigrator version %s
Build Date: %s
Git Commit: %s
Platform: %s
Go Version: %s`, i.Version, i.BuildDate, i.GitCommit, i.Platform, i.GoVersion)
}

var versionPattern = regexp.MustCompile(`v?(\d+(?:\.\d+)*)`)

// Extract returns the first version number found in a tool's output,
// e.g. "3.10.4" from "Python 3.10.4".
func Extract(output string) (string, bool) {
	m := versionPattern.FindStringSubmatch(output)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// RequirementError reports a tool version outside its constraint.
type RequirementError struct {
	Tool       string
	Found      string
	Constraint string
}

func (e *RequirementError) Error() string {
	return fmt.Sprintf("%s %s does not satisfy %q", e.Tool, e.Found, e.Constraint)
}

// CheckRequirement parses the version reported by tool and checks it
// against constraint.
func CheckRequirement(tool, output, constraint string) (string, error) {
	raw, ok := Extract(output)
	if !ok {
		return "", fmt.Errorf("%s: no version in %q", tool, output)
	}
	v, err := goversion.NewVersion(raw)
	if err != nil {
		return "", fmt.Errorf("%s: invalid version format: %w", tool, err)
	}
	c, err := goversion.NewConstraint(constraint)
	if err != nil {
		return "", fmt.Errorf("invalid constraint %q: %w", constraint, err)
	}
	if !c.Check(v) {
		return raw, &RequirementError{Tool: tool, Found: raw, Constraint: constraint}
	}
	return raw, nil
}
