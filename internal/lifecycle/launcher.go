package lifecycle

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Launcher starts one service instance and hands back where it listens. The
// stop func terminates the instance; it must tolerate being called more than
// once. Implementations other than the subprocess launcher (containers, an
// externally managed endpoint) plug in here.
type Launcher interface {
	Launch(ctx context.Context, label string) (host string, port int, stop func(), err error)
}

// chooseFreePort finds an available TCP port by asking the kernel for :0.
func chooseFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// waitHTTP polls url until it returns want or timeout elapses.
func waitHTTP(ctx context.Context, url string, want int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client := &http.Client{Timeout: 2 * time.Second}
	for {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == want {
				return nil
			}
		}
		select {
		case <-time.After(500 * time.Millisecond):
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for %s to return %d", url, want)
		}
	}
}

// SubprocessLauncher starts the managed service as a local child process.
// Args and Env values may carry {host}, {port} and {cache} placeholders which
// are substituted at launch time.
type SubprocessLauncher struct {
	Command      string
	Args         []string
	Env          map[string]string
	Host         string // default 127.0.0.1
	Port         int    // 0 picks a free port
	CacheDir     string
	StartTimeout time.Duration // default 120s
	Log          zerolog.Logger

	mu    sync.Mutex
	procs []*exec.Cmd
}

func (l *SubprocessLauncher) expand(s, host string, port int) string {
	s = strings.ReplaceAll(s, "{host}", host)
	s = strings.ReplaceAll(s, "{port}", strconv.Itoa(port))
	return strings.ReplaceAll(s, "{cache}", l.CacheDir)
}

// Launch starts the child, waits for GET /health to return 200 and returns the
// resolved endpoint. The process is tracked so StopAll can kill it later.
func (l *SubprocessLauncher) Launch(ctx context.Context, label string) (string, int, func(), error) {
	host := l.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := l.Port
	if port == 0 {
		p, err := chooseFreePort()
		if err != nil {
			return "", 0, nil, fmt.Errorf("pick port: %w", err)
		}
		port = p
	}

	args := make([]string, len(l.Args))
	for i, a := range l.Args {
		args[i] = l.expand(a, host, port)
	}
	cmd := exec.Command(l.Command, args...)
	cmd.Env = os.Environ()
	for k, v := range l.Env {
		cmd.Env = append(cmd.Env, k+"="+l.expand(v, host, port))
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return "", 0, nil, fmt.Errorf("start %s: %w", l.Command, err)
	}
	l.track(cmd)
	l.Log.Info().Str("label", label).Str("command", l.Command).Int("pid", cmd.Process.Pid).Int("port", port).Msg("service started")

	timeout := l.StartTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	healthURL := fmt.Sprintf("http://%s/health", net.JoinHostPort(host, strconv.Itoa(port)))
	if err := waitHTTP(ctx, healthURL, http.StatusOK, timeout); err != nil {
		_ = cmd.Process.Kill()
		return "", 0, nil, err
	}

	stop := func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}
	return host, port, stop, nil
}

func (l *SubprocessLauncher) track(cmd *exec.Cmd) {
	l.mu.Lock()
	l.procs = append(l.procs, cmd)
	l.mu.Unlock()
}

// KillAll terminates every tracked process, best-effort.
func (l *SubprocessLauncher) KillAll() {
	l.mu.Lock()
	procs := append([]*exec.Cmd(nil), l.procs...)
	l.procs = nil
	l.mu.Unlock()
	for _, c := range procs {
		if c != nil && c.Process != nil {
			_ = c.Process.Kill()
		}
	}
}
