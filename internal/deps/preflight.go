package deps

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vox/internal/config"
)

// Check runs the full preflight: interpreter, model checkpoints, and the
// output directory. Optional failures should be reported but not block.
func Check(cfg *config.Config) []Status {
	results := CheckBinaries(Requirements(cfg))
	results = append(results, CheckCheckpoints(cfg.Server)...)
	results = append(results, checkOutputDir(cfg.Paths.OutputDir))
	return results
}

// Requirements lists the binaries the configured server launch needs.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "Python",
			Command:     cfg.Server.Python,
			Description: "Runs the inference server module",
		},
	}
}

// CheckCheckpoints verifies the model weights referenced by the launch
// command. Relative paths are resolved against the server working directory,
// matching how the python process will see them.
func CheckCheckpoints(server config.Server) []Status {
	return []Status{
		checkPath("LLAMA checkpoint", server.LlamaCheckpointPath, server.WorkingDir, true),
		checkPath("Decoder checkpoint", server.DecoderCheckpointPath, server.WorkingDir, false),
	}
}

// FirstMissing returns the first required dependency that is unavailable.
func FirstMissing(results []Status) *Status {
	for i := range results {
		if !results[i].Available && !results[i].Optional {
			return &results[i]
		}
	}
	return nil
}

func checkPath(name, path, workingDir string, wantDir bool) Status {
	status := Status{
		Name:        name,
		Command:     path,
		Description: "Model weights for the inference server",
	}
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		status.Detail = "path not configured"
		return status
	}
	resolved := trimmed
	if !filepath.IsAbs(resolved) && workingDir != "" {
		resolved = filepath.Join(workingDir, resolved)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		status.Detail = fmt.Sprintf("path %q not found", resolved)
		return status
	}
	if wantDir && !info.IsDir() {
		status.Detail = fmt.Sprintf("path %q is not a directory", resolved)
		return status
	}
	if !wantDir && info.IsDir() {
		status.Detail = fmt.Sprintf("path %q is a directory", resolved)
		return status
	}
	status.Available = true
	return status
}

func checkOutputDir(dir string) Status {
	status := Status{
		Name:        "Output directory",
		Command:     dir,
		Description: "Destination for synthesized audio",
	}
	if strings.TrimSpace(dir) == "" {
		status.Detail = "directory not configured"
		return status
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		status.Detail = fmt.Sprintf("cannot create %q: %v", dir, err)
		return status
	}
	probe, err := os.CreateTemp(dir, ".vox-preflight-*")
	if err != nil {
		status.Detail = fmt.Sprintf("directory %q is not writable: %v", dir, err)
		return status
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	status.Available = true
	return status
}
