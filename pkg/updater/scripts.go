package updater

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Apply writes a platform install script next to the downloaded package and
// launches it detached. The script waits for this process to exit before
// touching the installation.
func (u *Updater) Apply(packagePath string) error {
	switch runtime.GOOS {
	case "windows":
		return u.applyWindows(packagePath)
	case "darwin":
		return u.applyDarwin(packagePath)
	default:
		return fmt.Errorf("automatic install not supported on %s, package saved at %s", runtime.GOOS, packagePath)
	}
}

func (u *Updater) applyWindows(packagePath string) error {
	script := buildWindowsScript(packagePath, os.Getpid())
	scriptPath := filepath.Join(filepath.Dir(packagePath), "install_update.ps1")
	if err := os.WriteFile(scriptPath, []byte(script), 0644); err != nil {
		return err
	}

	cmd := exec.Command("powershell", "-NoProfile", "-ExecutionPolicy", "Bypass", "-File", scriptPath)
	return cmd.Start()
}

func (u *Updater) applyDarwin(packagePath string) error {
	script := buildDarwinScript(packagePath, os.Getpid())
	scriptPath := filepath.Join(filepath.Dir(packagePath), "install_update.sh")
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		return err
	}

	cmd := exec.Command("/bin/bash", scriptPath)
	return cmd.Start()
}

// powershellQuote wraps a value in single quotes, doubling embedded quotes.
// PowerShell treats everything inside single quotes literally.
func powershellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// shellQuote wraps a value in single quotes for POSIX shells. An embedded
// single quote becomes '\'' (close, escaped quote, reopen).
func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

func buildWindowsScript(packagePath string, pid int) string {
	var sb strings.Builder
	sb.WriteString("$ErrorActionPreference = 'Stop'\n")
	fmt.Fprintf(&sb, "Wait-Process -Id %d -ErrorAction SilentlyContinue\n", pid)
	pkg := powershellQuote(packagePath)
	if strings.EqualFold(filepath.Ext(packagePath), ".msi") {
		fmt.Fprintf(&sb, "Start-Process msiexec.exe -ArgumentList '/i', %s, '/passive' -Wait\n", pkg)
	} else {
		fmt.Fprintf(&sb, "Start-Process %s -Wait\n", pkg)
	}
	fmt.Fprintf(&sb, "Remove-Item %s -ErrorAction SilentlyContinue\n", pkg)
	return sb.String()
}

func buildDarwinScript(packagePath string, pid int) string {
	var sb strings.Builder
	sb.WriteString("#!/bin/bash\nset -e\n")
	fmt.Fprintf(&sb, "while kill -0 %d 2>/dev/null; do sleep 1; done\n", pid)
	pkg := shellQuote(packagePath)
	dir := shellQuote(filepath.Dir(packagePath))
	switch strings.ToLower(filepath.Ext(packagePath)) {
	case ".zip":
		// ditto preserves app bundle metadata that unzip drops.
		fmt.Fprintf(&sb, "ditto -x -k %s %s\n", pkg, dir)
	case ".dmg":
		fmt.Fprintf(&sb, "open %s\n", pkg)
		return sb.String()
	}
	fmt.Fprintf(&sb, "rm -f %s\n", pkg)
	return sb.String()
}
