// Package cleanup reclaims sandbox containers that outlive their TTL.
package cleanup

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"

	"github.com/sablehq/sable/pkg/config"
)

const (
	// reapInterval controls how often the reaper scans for expired
	// containers.
	reapInterval = 5 * time.Minute

	// reapGrace is added on top of the TTL so the reaper never races
	// the in-image supervisor, which shuts the container down at the
	// TTL on its own.
	reapGrace = 5 * time.Minute
)

// DockerAPI is the slice of the Docker client the reaper uses.
type DockerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// Service periodically force-removes sandbox containers that are older
// than the configured TTL. Agents live in an in-process map, so a
// server restart orphans any containers it created; AutoRemove only
// covers containers whose supervisor exited cleanly. The reaper picks
// containers by name prefix, so it also catches leftovers from earlier
// server runs.
type Service struct {
	docker DockerAPI
	prefix string
	ttl    time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a reaper for containers named under the configured
// sandbox prefix.
func NewService(docker DockerAPI, cfg *config.Config) *Service {
	return &Service{
		docker: docker,
		prefix: cfg.SandboxNamePrefix,
		ttl:    time.Duration(cfg.SandboxTTLMinutes) * time.Minute,
	}
}

// Start launches the background reap loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Sandbox reaper started",
		"name_prefix", s.prefix,
		"ttl", s.ttl,
		"interval", reapInterval)
}

// Stop signals the reap loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Sandbox reaper stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.reap(ctx)

	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reap(ctx)
		}
	}
}

// reap removes every container carrying the sandbox name prefix whose
// age exceeds TTL plus grace, whatever state it is in. Removal failures
// are logged and retried on the next scan.
func (s *Service) reap(ctx context.Context) {
	containers, err := s.docker.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", s.prefix)),
	})
	if err != nil {
		slog.Error("Reaper: container listing failed", "error", err)
		return
	}

	cutoff := time.Now().Add(-(s.ttl + reapGrace))
	removed := 0
	for _, c := range containers {
		name, ok := s.sandboxName(c.Names)
		if !ok || !time.Unix(c.Created, 0).Before(cutoff) {
			continue
		}
		if err := s.docker.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
			slog.Error("Reaper: container removal failed",
				"name", name,
				"container_id", shortID(c.ID),
				"error", err)
			continue
		}
		slog.Info("Reaper: removed expired sandbox container",
			"name", name,
			"container_id", shortID(c.ID),
			"state", c.State)
		removed++
	}
	if removed > 0 {
		slog.Info("Reaper: scan complete", "removed", removed)
	}
}

// sandboxName reports whether one of the container's names carries the
// sandbox prefix. The daemon's name filter matches substrings, so the
// prefix is re-checked here.
func (s *Service) sandboxName(names []string) (string, bool) {
	for _, n := range names {
		name := strings.TrimPrefix(n, "/")
		if strings.HasPrefix(name, s.prefix+"-") {
			return name, true
		}
	}
	return "", false
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
