// Package setup installs the external benchmark tools through the
// host's package manager. A missing package manager or a failed
// install is fatal to the run; there are no retries.
package setup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// PackageManager describes one supported system package manager and
// its non-interactive install verb.
type PackageManager struct {
	Name        string
	InstallArgs []string
}

var managers = []PackageManager{
	{Name: "apt-get", InstallArgs: []string{"install", "-y", "-qq"}},
	{Name: "dnf", InstallArgs: []string{"install", "-y"}},
	{Name: "yum", InstallArgs: []string{"install", "-y"}},
	{Name: "pacman", InstallArgs: []string{"-S", "--noconfirm", "--needed"}},
}

// tools maps the binary we need on PATH to the package that provides
// it. sysbench is the micro-benchmark driver; sysstat provides the
// system activity collectors (mpstat et al).
var tools = []struct {
	binary string
	pkg    string
}{
	{binary: "sysbench", pkg: "sysbench"},
	{binary: "mpstat", pkg: "sysstat"},
}

// Detect returns the first available package manager.
func Detect() (*PackageManager, error) {
	for i := range managers {
		if _, err := exec.LookPath(managers[i].Name); err == nil {
			return &managers[i], nil
		}
	}

	return nil, fmt.Errorf(
		"no supported package manager found (apt-get, dnf, yum, pacman)",
	)
}

// installArgv builds the full install command line for the given
// packages.
func installArgv(pm *PackageManager, packages []string) []string {
	argv := make([]string, 0, 1+len(pm.InstallArgs)+len(packages))
	argv = append(argv, pm.Name)
	argv = append(argv, pm.InstallArgs...)
	argv = append(argv, packages...)

	return argv
}

// Install runs the package manager for the given packages. Output
// goes to stderr so it does not mix with report output on stdout.
func (pm *PackageManager) Install(
	ctx context.Context, logger *slog.Logger, packages ...string,
) error {
	argv := installArgv(pm, packages)

	logger.Info("installing packages",
		slog.String("manager", pm.Name),
		slog.String("packages", strings.Join(packages, " ")),
	)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf(
			"install %s via %s: %w",
			strings.Join(packages, " "), pm.Name, err,
		)
	}

	return nil
}

// missingPackages returns the packages whose binaries are not on
// PATH.
func missingPackages(lookPath func(string) (string, error)) []string {
	var missing []string
	for _, t := range tools {
		if _, err := lookPath(t.binary); err != nil {
			missing = append(missing, t.pkg)
		}
	}

	return missing
}

// EnsureTools installs any benchmark tool packages that are not
// already present. It is a no-op when everything is on PATH.
func EnsureTools(ctx context.Context, logger *slog.Logger) error {
	missing := missingPackages(exec.LookPath)
	if len(missing) == 0 {
		logger.Debug("benchmark tools already installed")

		return nil
	}

	pm, err := Detect()
	if err != nil {
		return err
	}

	return pm.Install(ctx, logger, missing...)
}
