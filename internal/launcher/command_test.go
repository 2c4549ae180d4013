package launcher

import (
	"reflect"
	"strings"
	"testing"

	"vox/internal/config"
)

func TestBuildCommandMatchesLaunchScript(t *testing.T) {
	cfg := config.Default()
	cmd := BuildCommand(cfg.Server)

	if cmd.Path != "python" {
		t.Fatalf("expected python binary, got %q", cmd.Path)
	}
	want := []string{
		"-m", "tools.api_server",
		"--listen", "0.0.0.0:8080",
		"--llama-checkpoint-path", "checkpoints/openaudio-s1-mini",
		"--decoder-checkpoint-path", "checkpoints/openaudio-s1-mini/codec.pth",
		"--decoder-config-name", "modded_dac_vq",
		"--compile",
	}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Fatalf("args mismatch:\n got %v\nwant %v", cmd.Args, want)
	}

	found := false
	for _, kv := range cmd.Env {
		if kv == "CUDA_VISIBLE_DEVICES=1" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected CUDA_VISIBLE_DEVICES=1 in environment")
	}
}

func TestBuildCommandOmitsCompileWhenDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Compile = false
	cmd := BuildCommand(cfg.Server)

	for _, arg := range cmd.Args {
		if arg == "--compile" {
			t.Fatal("--compile should be absent when disabled")
		}
	}
}

func TestBuildCommandAppendsExtraArgs(t *testing.T) {
	cfg := config.Default()
	cfg.Server.ExtraArgs = []string{"--half", "--workers", "2"}
	cmd := BuildCommand(cfg.Server)

	n := len(cmd.Args)
	got := cmd.Args[n-3:]
	if !reflect.DeepEqual(got, cfg.Server.ExtraArgs) {
		t.Fatalf("extra args not appended last: %v", got)
	}
}

func TestBuildEnvReplacesExistingDevice(t *testing.T) {
	base := []string{"PATH=/usr/bin", "CUDA_VISIBLE_DEVICES=0", "HOME=/root"}
	env := buildEnv(base, "1")

	count := 0
	for _, kv := range env {
		if strings.HasPrefix(kv, "CUDA_VISIBLE_DEVICES=") {
			count++
			if kv != "CUDA_VISIBLE_DEVICES=1" {
				t.Fatalf("device not replaced: %q", kv)
			}
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one device entry, got %d", count)
	}
}

func TestBuildEnvLeavesEnvironmentWhenDeviceEmpty(t *testing.T) {
	base := []string{"PATH=/usr/bin", "CUDA_VISIBLE_DEVICES=3"}
	env := buildEnv(base, "")
	if !reflect.DeepEqual(env, base) {
		t.Fatalf("environment should be untouched, got %v", env)
	}
}
