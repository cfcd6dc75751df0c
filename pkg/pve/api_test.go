package pve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const testUPID = "UPID:pve:0000A1B2:0001C3D4:65000000:qmstop:100:root@pam:"

func newTestAPI(t *testing.T, h http.HandlerFunc) *APIProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := newAPIClient(srv.URL+"/api2/json", "root@pam!vmidctl=secret", "pve", srv.Client())
	c.poll = rate.NewLimiter(rate.Inf, 1)
	return &APIProvider{client: c}
}

func TestAPIStopWaitsForTask(t *testing.T) {
	var polls int
	p := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PVEAPIToken=root@pam!vmidctl=secret", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api2/json/nodes/pve/qemu/100/status/stop":
			_, _ = w.Write([]byte(`{"data":"` + testUPID + `"}`))
		case strings.HasPrefix(r.URL.Path, "/api2/json/nodes/pve/tasks/"):
			upid, err := url.PathUnescape(strings.TrimSuffix(strings.TrimPrefix(r.URL.EscapedPath(), "/api2/json/nodes/pve/tasks/"), "/status"))
			require.NoError(t, err)
			assert.Equal(t, testUPID, upid)
			polls++
			if polls < 2 {
				_, _ = w.Write([]byte(`{"data":{"status":"running"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"data":{"status":"stopped","exitstatus":"OK"}}`))
		default:
			http.NotFound(w, r)
		}
	})

	upid, err := p.For(VirtualMachine).Stop(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, testUPID, upid)
	assert.Equal(t, 2, polls)
}

func TestAPIStopGivesUpWhenTaskNeverFinishes(t *testing.T) {
	p := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"data":"` + testUPID + `"}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"status":"running"}}`))
	})
	p.client.poll = rate.NewLimiter(rate.Every(10*time.Millisecond), 1)
	p.client.taskTimeout = 100 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		_, err := p.For(VirtualMachine).Stop(context.Background(), 100)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "qemu stop 100 timed out after 100ms")
	case <-time.After(3 * time.Second):
		t.Fatal("Stop kept polling past the task timeout")
	}
}

func TestAPICallerCancellationIsNotReportedAsTimeout(t *testing.T) {
	p := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"data":"` + testUPID + `"}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"status":"running"}}`))
	})
	p.client.poll = rate.NewLimiter(rate.Every(10*time.Millisecond), 1)
	p.client.taskTimeout = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := p.For(Container).Start(ctx, 101)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "timed out after")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAPITaskFailure(t *testing.T) {
	p := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"data":"` + testUPID + `"}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"status":"stopped","exitstatus":"command 'lxc-start' failed"}}`))
	})
	_, err := p.For(Container).Start(context.Background(), 101)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lxc-start")
}

func TestAPIInspectConfig(t *testing.T) {
	p := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api2/json/nodes/pve/lxc/201/config":
			_, _ = w.Write([]byte(`{"data":{"memory":512,"hostname":"proxy"}}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"data":null,"message":"Configuration file 'nodes/pve/lxc/202.conf' does not exist\n"}`))
		}
	})

	out, err := p.For(Container).InspectConfig(context.Background(), 201)
	require.NoError(t, err)
	assert.Equal(t, "hostname: proxy\nmemory: 512\n", out)

	_, err = p.For(Container).InspectConfig(context.Background(), 202)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestAPIClientErrorDoesNotTripBreaker(t *testing.T) {
	var hits int
	p := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":{"vmid":"invalid format"}}`))
	})
	for i := 0; i < 5; i++ {
		_, err := p.For(VirtualMachine).InspectConfig(context.Background(), 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `field "vmid": invalid format`)
	}
	assert.Equal(t, 5, hits)
}

func TestAPIServerErrorsOpenBreaker(t *testing.T) {
	var hits int
	p := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	for i := 0; i < 5; i++ {
		_, err := p.For(VirtualMachine).List(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, 3, hits)
}

func TestAPIList(t *testing.T) {
	p := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api2/json/nodes/pve/lxc":
			_, _ = w.Write([]byte(`{"data":[{"vmid":"103","status":"stopped","name":"cache"},{"vmid":"101","status":"running","name":"proxy"}]}`))
		case "/api2/json/nodes/pve/qemu":
			_, _ = w.Write([]byte(`{"data":[{"vmid":100,"status":"running","name":"web"}]}`))
		}
	})

	cts, err := p.For(Container).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Resource{{ID: 101, Label: "running"}, {ID: 103, Label: "stopped"}}, cts)

	vms, err := p.For(VirtualMachine).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Resource{{ID: 100, Label: "web"}}, vms)
}

func TestTokenHelpers(t *testing.T) {
	assert.Equal(t, "PVEAPIToken=a@pam!t=s", ensurePrefix("a@pam!t=s"))
	assert.Equal(t, "PVEAPIToken=a@pam!t=s", ensurePrefix("PVEAPIToken=a@pam!t=s"))
	assert.Equal(t, "PVEAPIToken=a@pam!t=****", maskToken("PVEAPIToken=a@pam!t=s"))
}
