package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"

	"github.com/sablehq/sable/pkg/config"
)

// Service ports exposed by the sandbox image: control plane, Chrome
// DevTools, VNC.
var sandboxPorts = nat.PortSet{
	nat.Port("8080/tcp"): struct{}{},
	nat.Port("9222/tcp"): struct{}{},
	nat.Port("5901/tcp"): struct{}{},
}

// createContainer starts a fresh sandbox container and returns a
// gateway bound to its address. The container self-destructs after
// SANDBOX_TTL_MINUTES via its in-image supervisor; Destroy removes it
// earlier.
func createContainer(ctx context.Context, cfg *config.Config) (*Client, error) {
	docker, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}

	name := fmt.Sprintf("%s-%s", cfg.SandboxNamePrefix, uuid.New().String()[:8])

	env := []string{fmt.Sprintf("SERVICE_TIMEOUT_MINUTES=%d", cfg.SandboxTTLMinutes)}
	if cfg.SandboxChromeArgs != "" {
		env = append(env, "CHROME_ARGS="+cfg.SandboxChromeArgs)
	}
	if cfg.SandboxHTTPSProxy != "" {
		env = append(env, "HTTPS_PROXY="+cfg.SandboxHTTPSProxy)
	}
	if cfg.SandboxHTTPProxy != "" {
		env = append(env, "HTTP_PROXY="+cfg.SandboxHTTPProxy)
	}
	if cfg.SandboxNoProxy != "" {
		env = append(env, "NO_PROXY="+cfg.SandboxNoProxy)
	}

	hostConfig := &container.HostConfig{AutoRemove: true}
	if cfg.SandboxNetwork != "" {
		hostConfig.NetworkMode = container.NetworkMode(cfg.SandboxNetwork)
	}

	created, err := docker.ContainerCreate(ctx, &container.Config{
		Image:        cfg.SandboxImage,
		Env:          env,
		ExposedPorts: sandboxPorts,
	}, hostConfig, nil, nil, name)
	if err != nil {
		return nil, fmt.Errorf("creating sandbox container: %w", err)
	}

	if err := docker.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		_ = removeContainer(context.WithoutCancel(ctx), docker, created.ID)
		return nil, fmt.Errorf("starting sandbox container: %w", err)
	}

	ip, err := containerIP(ctx, docker, created.ID, cfg.SandboxNetwork)
	if err != nil {
		_ = removeContainer(context.WithoutCancel(ctx), docker, created.ID)
		return nil, err
	}

	slog.Info("Sandbox container started",
		"name", name,
		"container_id", created.ID[:12],
		"ip", ip)

	sb := NewClient(ip)
	sb.containerID = created.ID
	sb.docker = docker
	return sb, nil
}

// containerIP inspects the container and returns its address on the
// configured network, falling back to the default bridge and then to
// any attached network.
func containerIP(ctx context.Context, docker client.APIClient, id, networkName string) (string, error) {
	info, err := docker.ContainerInspect(ctx, id)
	if err != nil {
		return "", fmt.Errorf("inspecting sandbox container: %w", err)
	}
	if info.NetworkSettings == nil {
		return "", fmt.Errorf("sandbox container %s has no network settings", id[:12])
	}

	if networkName != "" {
		if endpoint, ok := info.NetworkSettings.Networks[networkName]; ok && endpoint.IPAddress != "" {
			return endpoint.IPAddress, nil
		}
	}
	if info.NetworkSettings.IPAddress != "" {
		return info.NetworkSettings.IPAddress, nil
	}
	for _, endpoint := range info.NetworkSettings.Networks {
		if endpoint.IPAddress != "" {
			return endpoint.IPAddress, nil
		}
	}
	return "", fmt.Errorf("sandbox container %s has no IP address", id[:12])
}

func removeContainer(ctx context.Context, docker client.APIClient, id string) error {
	if err := docker.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("removing sandbox container: %w", err)
	}
	return nil
}

// resolveIPv4 maps a hostname to its first IPv4 address. Literal IPv4
// addresses pass through unchanged.
func resolveIPv4(ctx context.Context, hostname string) (string, error) {
	if ip := net.ParseIP(hostname); ip != nil && ip.To4() != nil {
		return hostname, nil
	}
	addrs, err := net.DefaultResolver.LookupIP(ctx, "ip4", hostname)
	if err != nil {
		return "", fmt.Errorf("resolving sandbox address %q: %w", hostname, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("sandbox address %q has no IPv4 address", hostname)
	}
	return addrs[0].String(), nil
}
