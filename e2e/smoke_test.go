//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const repoRootRel = ".."   // relative to ./e2e
const mainPkgRel = "./cmd" // main.go lives in cmd/

const testFrame = "<SENSOR_DATA|MPU|0.11|0.22|9.81|1.5|2.5|3.5|BMP|1011.7|24.3|120.5>"

func TestSmoke_HTTPIngest(t *testing.T) {
	repoRoot := repoRootPath(t)
	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)

	cmd := exec.Command(bin)
	cmd.Env = append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=info",
		"HTTP_ADDR="+addr,
		"MQTT_ENABLED=false",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	client := &http.Client{Timeout: 2 * time.Second}
	base := "http://" + addr

	waitForOK(t, client, base+"/healthz", 5*time.Second)

	// Push one frame over the HTTP bridge path.
	resp, err := client.Post(base+"/api/stm32", "text/plain", strings.NewReader(testFrame))
	if err != nil {
		t.Fatalf("POST /api/stm32: %v", err)
	}
	var ack map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	resp.Body.Close()
	if ack["status"] != "success" {
		t.Fatalf("ack.status=%q want=%q", ack["status"], "success")
	}

	assertSensorState(t, client, base)
	stopServer(t, cmd)
}

func TestSmoke_MQTTIngest(t *testing.T) {
	repoRoot := repoRootPath(t)
	brokerHost, brokerPort := startMosquitto(t)

	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)

	cmd := exec.Command(bin)
	cmd.Env = append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=info",
		"HTTP_ADDR="+addr,
		"MQTT_ENABLED=true",
		"MQTT_BROKER="+brokerHost,
		"MQTT_PORT="+brokerPort,
		"MQTT_TOPIC=drone/telemetry/frames",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	client := &http.Client{Timeout: 2 * time.Second}
	base := "http://" + addr
	waitForOK(t, client, base+"/healthz", 5*time.Second)

	// Publish one frame the way the bridge does.
	opts := mqtt.NewClientOptions()
	opts.AddBroker("tcp://" + net.JoinHostPort(brokerHost, brokerPort))
	opts.SetClientID("e2e-publisher")
	pub := mqtt.NewClient(opts)
	if token := pub.Connect(); !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		t.Fatalf("mqtt connect: %v", token.Error())
	}
	defer pub.Disconnect(250)

	if token := pub.Publish("drone/telemetry/frames", 1, false, testFrame); !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("mqtt publish: %v", token.Error())
	}

	// The subscriber applies the frame asynchronously.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if snapshotHasFrame(t, client, base) {
			stopServer(t, cmd)
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("frame published over mqtt never appeared in the snapshot")
}

func assertSensorState(t *testing.T, client *http.Client, base string) {
	t.Helper()

	if !snapshotHasFrame(t, client, base) {
		t.Fatal("snapshot does not reflect the ingested frame")
	}
}

func snapshotHasFrame(t *testing.T, client *http.Client, base string) bool {
	t.Helper()

	resp, err := client.Get(base + "/api/sensors")
	if err != nil {
		t.Fatalf("GET /api/sensors: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Sensors struct {
			InertialUnit struct {
				Accelerometer struct{ X, Y, Z float64 }
				Status        string
			} `json:"inertial_unit"`
			Barometer struct {
				Pressure float64
				Altitude float64
			} `json:"barometer"`
		} `json:"sensors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}

	imu := body.Sensors.InertialUnit
	baro := body.Sensors.Barometer
	return imu.Status == "active" &&
		imu.Accelerometer.X == 0.11 && imu.Accelerometer.Z == 9.81 &&
		baro.Pressure == 1011.7 && baro.Altitude == 120.5
}

func startMosquitto(t *testing.T) (host, port string) {
	t.Helper()

	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		ExposedPorts: []string{"1883/tcp"},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor:   wait.ForListeningPort(nat.Port("1883/tcp")).WithStartupTimeout(30 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	h, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	p, err := c.MappedPort(ctx, nat.Port("1883/tcp"))
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	return h, p.Port()
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot string) string {
	t.Helper()

	tmp := t.TempDir()
	out := filepath.Join(tmp, "dronectl-server")

	build := exec.Command("go", "build", "-o", out, mainPkgRel)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(b))
	}

	return out
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()

	return ln.Addr().String()
}

func waitForOK(t *testing.T, client *http.Client, url string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server not healthy after %s: %s", timeout, url)
}

func stopServer(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("server did not exit in time")
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("server exited non-zero: %v", err)
			}
			t.Fatalf("server wait error: %v", err)
		}
	}
}
