package hadestest

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"testing"

	"github.com/ory/dockertest"
)

// ServiceConfig describes a disposable container for an integration
// test and how to build a client for it once it accepts connections.
type ServiceConfig[T any] struct {
	Image        string
	Tag          string
	InternalPort int
	Environment  map[string]string
	Builder      func(host string, port int) (T, error)
}

// StartService runs the container, registers a cleanup that removes
// it, and retries the builder until the service inside answers. Tests
// running with -short skip instead.
func StartService[T any](t *testing.T, config ServiceConfig[T]) T {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping long-running test in short mode.")
	}

	// An empty endpoint makes dockertest pick the platform default,
	// the local socket on linux and mac.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("building docker pool: %s", err)
	}

	if err := pool.Client.Ping(); err != nil {
		t.Fatalf("reaching docker daemon: %s", err)
	}

	environment := []string{}
	for key, value := range config.Environment {
		environment = append(environment, fmt.Sprintf("%s=%s", key, value))
	}

	resource, err := pool.Run(config.Image, config.Tag, environment)
	if err != nil {
		t.Fatalf("starting %s container: %s", config.Image, err)
	}

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Fatalf("removing %s container: %s", config.Image, err)
		}
	})

	endpoint := os.Getenv("DOCKER_HOST")
	if endpoint == "" {
		endpoint = "tcp://" + resource.GetHostPort(fmt.Sprintf("%d/tcp", config.InternalPort))
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		t.Fatalf("parsing docker endpoint: %s", err)
	}

	port, _ := strconv.Atoi(parsed.Port())

	var service T
	if err := pool.Retry(func() error {
		built, err := config.Builder(parsed.Hostname(), port)
		if err != nil {
			return err
		}

		service = built

		return nil
	}); err != nil {
		t.Fatalf("connecting to %s: %s", config.Image, err)
	}

	return service
}
