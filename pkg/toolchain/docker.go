package toolchain

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultDockerMemoryLimit bounds the compiler container memory (2GB, the JVM compilers are hungry)
	DefaultDockerMemoryLimit = int64(2 * 1024 * 1024 * 1024)

	// DefaultDockerCPULimit is the number of CPUs granted to the compiler container
	DefaultDockerCPULimit = 2.0

	// DefaultImagePullTimeout bounds a single image pull
	DefaultImagePullTimeout = 5 * time.Minute
)

// DockerCompiler runs a compiler command inside a container. The invocation
// working directory and every absolute path referenced by the arguments are
// bind-mounted at identical paths, so the command line needs no rewriting.
type DockerCompiler struct {
	client      *client.Client
	Image       string
	Command     []string
	Binds       []string // extra host directories mounted read-only
	ExitCodes   ExitCodeMapper
	MemoryLimit int64
	CPULimit    float64
	Logger      logrus.FieldLogger

	mu         sync.Mutex
	imageCache map[string]bool
}

// DockerOption configures a DockerCompiler
type DockerOption func(*DockerCompiler)

// WithBinds mounts extra host directories read-only
func WithBinds(dirs ...string) DockerOption {
	return func(c *DockerCompiler) { c.Binds = append(c.Binds, dirs...) }
}

// WithExitCodes sets the exit status mapping
func WithExitCodes(m ExitCodeMapper) DockerOption {
	return func(c *DockerCompiler) { c.ExitCodes = m }
}

// WithResources sets the container memory and CPU limits
func WithResources(memory int64, cpus float64) DockerOption {
	return func(c *DockerCompiler) {
		c.MemoryLimit = memory
		c.CPULimit = cpus
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) DockerOption {
	return func(c *DockerCompiler) { c.Logger = logger }
}

// NewDockerCompiler connects to the Docker daemon from the environment
func NewDockerCompiler(imageRef string, command []string, opts ...DockerOption) (*DockerCompiler, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDockerNotAvailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("%w: %v", ErrDockerNotAvailable, err)
	}

	c := newDockerCompiler(imageRef, command, opts...)
	c.client = cli
	return c, nil
}

func newDockerCompiler(imageRef string, command []string, opts ...DockerOption) *DockerCompiler {
	c := &DockerCompiler{
		Image:       imageRef,
		Command:     command,
		ExitCodes:   KotlinExitCode,
		MemoryLimit: DefaultDockerMemoryLimit,
		CPULimit:    DefaultDockerCPULimit,
		Logger:      logrus.StandardLogger(),
		imageCache:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the image and command
func (c *DockerCompiler) Name() string {
	return c.Image + " " + strings.Join(c.Command, " ")
}

// Exec runs one invocation in a fresh container and removes it afterwards
func (c *DockerCompiler) Exec(ctx context.Context, inv *Invocation) (ExitCode, error) {
	out := inv.Output
	if out == nil {
		out = io.Discard
	}

	if err := c.PullImage(ctx, c.Image); err != nil {
		return InternalError, fmt.Errorf("%w: %v", ErrImagePullFailed, err)
	}

	config, hostConfig := c.containerConfig(inv)
	resp, err := c.client.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	if err != nil {
		return InternalError, fmt.Errorf("%w: create failed: %v", ErrContainerFailed, err)
	}
	defer func() {
		// the invocation context may already be cancelled
		c.client.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{
			Force:         true,
			RemoveVolumes: true,
		})
	}()

	if err := c.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return InternalError, fmt.Errorf("%w: start failed: %v", ErrContainerFailed, err)
	}

	status := 0
	statusCh, errCh := c.client.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return InternalError, fmt.Errorf("%w: wait failed: %v", ErrContainerFailed, err)
		}
	case st := <-statusCh:
		status = int(st.StatusCode)
	case <-ctx.Done():
		return InternalError, ctx.Err()
	}

	logs, err := c.client.ContainerLogs(ctx, resp.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err == nil {
		sink := NewTeeWriter(out)
		if _, err := stdcopy.StdCopy(sink, sink, logs); err != nil {
			c.Logger.WithError(err).Warn("Failed to demultiplex compiler container logs")
		}
		logs.Close()
	}

	code := c.ExitCodes(status)
	c.Logger.WithFields(logrus.Fields{
		"image":     c.Image,
		"status":    status,
		"exit_code": code,
	}).Debug("Compiler container finished")
	return code, nil
}

func (c *DockerCompiler) containerConfig(inv *Invocation) (*container.Config, *container.HostConfig) {
	config := &container.Config{
		Image:        c.Image,
		Cmd:          append(append([]string{}, c.Command...), inv.Args...),
		Env:          inv.Env,
		WorkingDir:   workingDir(inv),
		AttachStdout: true,
		AttachStderr: true,
	}
	hostConfig := &container.HostConfig{
		Binds: c.mounts(inv),
		Resources: container.Resources{
			Memory:   c.MemoryLimit,
			NanoCPUs: int64(c.CPULimit * 1e9),
		},
		AutoRemove: false,
	}
	return config, hostConfig
}

// mounts lists bind specifications. The working directory is writable;
// everything else the command line references is mounted read-only.
func (c *DockerCompiler) mounts(inv *Invocation) []string {
	readOnly := map[string]bool{}
	for _, dir := range c.Binds {
		readOnly[filepath.Clean(dir)] = true
	}
	for _, arg := range inv.Args {
		for _, path := range referencedPaths(arg) {
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if info.IsDir() {
				readOnly[path] = true
			} else {
				readOnly[filepath.Dir(path)] = true
			}
		}
	}

	var binds []string
	work := workingDir(inv)
	if work != "" {
		binds = append(binds, fmt.Sprintf("%s:%s", work, work))
	}

	dirs := make([]string, 0, len(readOnly))
	for dir := range readOnly {
		if work != "" && isWithin(dir, work) {
			continue
		}
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		binds = append(binds, fmt.Sprintf("%s:%s:ro", dir, dir))
	}
	return binds
}

// workingDir is the invocation directory as an absolute path, which bind
// mounts require
func workingDir(inv *Invocation) string {
	if inv.Dir == "" {
		return ""
	}
	if abs, err := filepath.Abs(inv.Dir); err == nil {
		return abs
	}
	return filepath.Clean(inv.Dir)
}

// referencedPaths extracts absolute paths from a flag value, a path list or a comma list
func referencedPaths(arg string) []string {
	if _, value, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
		arg = value
	}
	var paths []string
	for _, part := range strings.FieldsFunc(arg, func(r rune) bool {
		return r == os.PathListSeparator || r == ','
	}) {
		if filepath.IsAbs(part) {
			paths = append(paths, filepath.Clean(part))
		}
	}
	return paths
}

func isWithin(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// PullImage ensures the image is available locally
func (c *DockerCompiler) PullImage(ctx context.Context, imageRef string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.imageCache[imageRef] {
		return nil
	}
	if _, err := c.client.ImageInspect(ctx, imageRef); err == nil {
		c.imageCache[imageRef] = true
		return nil
	}

	pullCtx, cancel := context.WithTimeout(ctx, DefaultImagePullTimeout)
	defer cancel()

	reader, err := c.client.ImagePull(pullCtx, imageRef, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %v", imageRef, err)
	}
	defer reader.Close()

	io.Copy(io.Discard, reader)

	c.imageCache[imageRef] = true
	return nil
}

// Close releases the Docker client
func (c *DockerCompiler) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
