package config

import (
	"os"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the process runs inside a Docker container.
// Detection is based on the presence of /.dockerenv. The result is cached.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker maps loopback database hosts to host.docker.internal
// when running inside a container, so a Postgres on the host stays reachable.
func ResolveHostForDocker(host string) string {
	if !IsRunningInDocker() {
		return host
	}
	if isLoopback(host) {
		return "host.docker.internal"
	}
	return host
}

// ResolveBindAddr widens a loopback bind address to all interfaces inside a
// container. A server bound to 127.0.0.1 is unreachable through published ports.
func ResolveBindAddr(addr string) string {
	if !IsRunningInDocker() {
		return addr
	}
	if isLoopback(addr) {
		return "0.0.0.0"
	}
	return addr
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1"
}
