package extensions

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ServicesDir is the archive directory listing service implementations
const ServicesDir = "META-INF/services/"

// Service names an implementation of a service interface that a JVM tool
// discovers through its service loader
type Service struct {
	Interface      string
	Implementation string
}

// WriteServicesArchive writes a jar containing one META-INF/services entry
// per interface, listing its implementations one per line
func WriteServicesArchive(path string, services []Service) error {
	grouped := make(map[string][]string)
	for _, s := range services {
		if s.Interface == "" || s.Implementation == "" {
			return fmt.Errorf("incomplete service registration: %+v", s)
		}
		grouped[s.Interface] = append(grouped[s.Interface], s.Implementation)
	}

	ifaces := make([]string, 0, len(grouped))
	for iface := range grouped {
		ifaces = append(ifaces, iface)
	}
	sort.Strings(ifaces)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create services archive directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create services archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, iface := range ifaces {
		w, err := zw.Create(ServicesDir + iface)
		if err != nil {
			return fmt.Errorf("failed to add service entry %s: %w", iface, err)
		}
		if _, err := w.Write([]byte(strings.Join(grouped[iface], "\n") + "\n")); err != nil {
			return fmt.Errorf("failed to write service entry %s: %w", iface, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish services archive: %w", err)
	}
	return f.Close()
}

// ReadServicesArchive lists the service registrations of a jar
func ReadServicesArchive(path string) ([]Service, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open services archive: %w", err)
	}
	defer zr.Close()

	var services []Service
	for _, file := range zr.File {
		iface, ok := strings.CutPrefix(file.Name, ServicesDir)
		if !ok || iface == "" || file.FileInfo().IsDir() {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		var sb strings.Builder
		_, err = io.Copy(&sb, rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		for _, line := range strings.Split(sb.String(), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			services = append(services, Service{Interface: iface, Implementation: line})
		}
	}
	return services, nil
}
