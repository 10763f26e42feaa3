package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"traject/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks a recording session depends on. needsFFmpeg is
// set when the feature schema declares video features; datasets without
// media never touch the encoder binary.
func RunAll(cfg *config.Config, needsFFmpeg bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data root", cfg.Paths.DataRoot),
		CheckDiskSpace(cfg.Paths.DataRoot, cfg.Recording.MinFreeGiB),
	}
	if needsFFmpeg {
		results = append(results, CheckFFmpeg(cfg.Storage.FFmpegBinary))
	}
	return results
}

// Failed returns the subset of results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// CheckDirectoryAccess verifies the path exists (creating it if needed) and
// is readable, writable, and traversable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("create failed (%v)", err)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("access denied (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDiskSpace verifies the filesystem holding the data root has at least
// minFreeGiB available. A floor of zero disables the check.
func CheckDiskSpace(path string, minFreeGiB int) Result {
	const name = "Disk space"
	if minFreeGiB <= 0 {
		return Result{Name: name, Passed: true, Detail: "check disabled"}
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("statfs failed (%v)", err)}
	}
	freeBytes := stat.Bavail * uint64(stat.Bsize)
	freeGiB := freeBytes / (1 << 30)
	if freeGiB < uint64(minFreeGiB) {
		return Result{Name: name, Detail: fmt.Sprintf("%d GiB free, %d GiB required", freeGiB, minFreeGiB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d GiB free", freeGiB)}
}

// CheckFFmpeg verifies the configured encoder binary is on PATH.
func CheckFFmpeg(binary string) Result {
	const name = "FFmpeg"
	if strings.TrimSpace(binary) == "" {
		return Result{Name: name, Detail: "binary not configured"}
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s not found on PATH", binary)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}
