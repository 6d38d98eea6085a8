package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

var javacVersionPattern = regexp.MustCompile(`javac\s+([0-9][0-9A-Za-z._+-]*)`)

// JavacVersion runs "<javac> -version" and returns the reported version,
// e.g. "1.8.0_292" or "17.0.2". Older JDKs print it on stderr.
func JavacVersion(ctx context.Context, javac string) (string, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, javac, "-version")
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s -version: %v", ErrUnknownJavacVersion, javac, err)
	}
	return ParseJavacVersion(out.String())
}

// ParseJavacVersion extracts the version from "javac -version" output
func ParseJavacVersion(output string) (string, error) {
	m := javacVersionPattern.FindStringSubmatch(output)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownJavacVersion, strings.TrimSpace(output))
	}
	return m[1], nil
}

// IsJavac9OrLater reports whether a javac version string denotes Java 9 or
// newer. Legacy versions carry a "1." prefix.
func IsJavac9OrLater(version string) bool {
	if strings.HasPrefix(version, "1.") {
		return false
	}
	major := version
	if i := strings.IndexAny(major, ".-+_"); i >= 0 {
		major = major[:i]
	}
	n, err := strconv.Atoi(major)
	return err == nil && n >= 9
}
