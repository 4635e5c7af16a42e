// Package dockerreasoner adapts reasonerclient.Reasoner to a sidecar
// container: one long-lived container per solver session, addressed
// over a bind-mounted JSON request file (responses come back on the
// exec's stdout) and driven via
// ContainerExecCreate/Start rather than a network RPC, mirroring how
// this codebase already drives short-lived agent containers elsewhere.
package dockerreasoner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/antigravity-dev/ember/internal/canon"
	"github.com/antigravity-dev/ember/internal/reasonerclient"
)

// Reasoner drives a single sidecar container for the lifetime of one
// solver session.
type Reasoner struct {
	mu          sync.Mutex
	cli         *client.Client
	image       string
	containerID string
	sessionName string
	ctxDir      string
	nonce       uint64
	available   bool
}

// New constructs a Reasoner bound to image, using the default
// environment Docker client (DOCKER_HOST and friends).
func New(image string) (*Reasoner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("initializing docker client: %w", err)
	}
	return &Reasoner{cli: cli, image: image}, nil
}

func (r *Reasoner) IsAvailable(ctx context.Context) bool {
	r.mu.Lock()
	containerID := r.containerID
	r.mu.Unlock()
	if containerID == "" {
		return false
	}
	inspect, err := r.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return false
	}
	return inspect.State.Running
}

func (r *Reasoner) ConnectionNonce() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nonce
}

// Initialize starts the sidecar container, bind-mounting a fresh
// request directory.
func (r *Reasoner) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessionName := fmt.Sprintf("ember-reasoner-%d", time.Now().UnixNano())
	ctxDir := filepath.Join(os.TempDir(), sessionName)
	if err := os.MkdirAll(ctxDir, 0755); err != nil {
		return fmt.Errorf("creating sidecar context dir: %w", err)
	}

	containerConfig := &container.Config{
		Image:      r.image,
		Cmd:        []string{"sh", "-c", "sleep infinity"},
		Tty:        false,
		WorkingDir: "/reasoner",
	}
	hostConfig := &container.HostConfig{
		Mounts: []mount.Mount{
			{Type: mount.TypeBind, Source: ctxDir, Target: "/reasoner"},
		},
	}

	resp, err := r.cli.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, sessionName)
	if err != nil {
		return fmt.Errorf("creating reasoner sidecar: %w", err)
	}
	if err := r.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("starting reasoner sidecar: %w", err)
	}

	r.containerID = resp.ID
	r.sessionName = sessionName
	r.ctxDir = ctxDir
	r.nonce++
	r.available = true
	return nil
}

// Destroy stops and removes the sidecar container and its scratch dir.
func (r *Reasoner) Destroy(ctx context.Context) error {
	r.mu.Lock()
	containerID := r.containerID
	ctxDir := r.ctxDir
	r.available = false
	r.containerID = ""
	r.mu.Unlock()

	if containerID == "" {
		return nil
	}
	if err := r.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		return fmt.Errorf("removing reasoner sidecar: %w", err)
	}
	if ctxDir != "" {
		os.RemoveAll(ctxDir)
	}
	return nil
}

// RegisterDomainDeclaration writes decl to the sidecar's request
// channel and runs its registration entrypoint.
func (r *Reasoner) RegisterDomainDeclaration(ctx context.Context, decl reasonerclient.Declaration, digest canon.Hash) (reasonerclient.RegisterResult, error) {
	req := map[string]any{"command": "register", "declaration": decl, "digest": string(digest)}
	var result reasonerclient.RegisterResult
	if err := r.runCommand(ctx, req, &result); err != nil {
		return reasonerclient.RegisterResult{}, err
	}
	return result, nil
}

// Solve writes payload to the sidecar's request channel and runs its
// solve entrypoint. onStep is invoked once per step recorded in the
// sidecar's response, after the call returns — the sidecar protocol
// here is request/response, not streaming.
func (r *Reasoner) Solve(ctx context.Context, payload reasonerclient.SolvePayload, onStep func(reasonerclient.StepEvent)) (reasonerclient.SolveResult, error) {
	req := map[string]any{"command": "solve", "payload": payload}
	var envelope struct {
		Result reasonerclient.SolveResult       `json:"result"`
		Steps  []reasonerclient.StepEvent       `json:"steps"`
	}
	if err := r.runCommand(ctx, req, &envelope); err != nil {
		return reasonerclient.SolveResult{}, err
	}
	if onStep != nil {
		for _, s := range envelope.Steps {
			onStep(s)
		}
	}
	return envelope.Result, nil
}

// runCommand writes req as JSON to request.json inside the sidecar's
// bind mount, execs its entrypoint against it, and decodes the
// entrypoint's stdout JSON into resp.
func (r *Reasoner) runCommand(ctx context.Context, req any, resp any) error {
	r.mu.Lock()
	containerID := r.containerID
	ctxDir := r.ctxDir
	r.mu.Unlock()

	if containerID == "" {
		return fmt.Errorf("reasoner sidecar not initialized")
	}

	reqBytes, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling sidecar request: %w", err)
	}
	if err := os.WriteFile(filepath.Join(ctxDir, "request.json"), reqBytes, 0644); err != nil {
		return fmt.Errorf("writing sidecar request: %w", err)
	}

	execCfg := container.ExecOptions{
		Cmd:          []string{"/reasoner/entrypoint", "/reasoner/request.json"},
		AttachStdout: true,
		AttachStderr: true,
	}
	exec, err := r.cli.ContainerExecCreate(ctx, containerID, execCfg)
	if err != nil {
		return fmt.Errorf("creating sidecar exec: %w", err)
	}
	attach, err := r.cli.ContainerExecAttach(ctx, exec.ID, container.ExecAttachOptions{})
	if err != nil {
		return fmt.Errorf("attaching to sidecar exec: %w", err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return fmt.Errorf("reading sidecar exec output: %w", err)
	}
	if strings.TrimSpace(stderr.String()) != "" {
		return fmt.Errorf("reasoner sidecar error: %s", strings.TrimSpace(stderr.String()))
	}
	if err := json.Unmarshal(stdout.Bytes(), resp); err != nil {
		return fmt.Errorf("decoding sidecar response: %w", err)
	}
	return nil
}
