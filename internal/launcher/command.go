package launcher

import (
	"os"
	"strings"

	"vox/internal/config"
)

const cudaDevicesEnv = "CUDA_VISIBLE_DEVICES"

// Command is a fully resolved server launch: binary, arguments, environment,
// and working directory. It is inert data so tests can assert the exact
// launch surface without spawning anything.
type Command struct {
	Path string
	Args []string
	Env  []string
	Dir  string
}

// BuildCommand assembles the server command line from config. Argument
// order matches the upstream launch script.
func BuildCommand(server config.Server) Command {
	args := []string{
		"-m", server.Module,
		"--listen", server.Listen,
		"--llama-checkpoint-path", server.LlamaCheckpointPath,
		"--decoder-checkpoint-path", server.DecoderCheckpointPath,
		"--decoder-config-name", server.DecoderConfigName,
	}
	if server.Compile {
		args = append(args, "--compile")
	}
	args = append(args, server.ExtraArgs...)

	return Command{
		Path: server.Python,
		Args: args,
		Env:  buildEnv(os.Environ(), server.Device),
		Dir:  server.WorkingDir,
	}
}

// buildEnv returns base with CUDA_VISIBLE_DEVICES forced to device. An
// empty device leaves the environment untouched so the server inherits
// whatever the daemon was started with.
func buildEnv(base []string, device string) []string {
	if strings.TrimSpace(device) == "" {
		return base
	}
	entry := cudaDevicesEnv + "=" + device
	env := make([]string, 0, len(base)+1)
	for _, kv := range base {
		if strings.HasPrefix(kv, cudaDevicesEnv+"=") {
			continue
		}
		env = append(env, kv)
	}
	return append(env, entry)
}
