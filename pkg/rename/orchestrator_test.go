package rename

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/artifacts"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/journal"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/pve"
	"github.com/CodeMonkeyCybersecurity/vmidctl/pkg/vmid_err"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockPlane is a ControlPlane whose calls are recorded by testify/mock.
type mockPlane struct {
	mock.Mock
	kind pve.Kind
}

func (m *mockPlane) Kind() pve.Kind { return m.kind }

func (m *mockPlane) Stop(ctx context.Context, id int) (string, error) {
	args := m.Called(id)
	return args.String(0), args.Error(1)
}

func (m *mockPlane) Start(ctx context.Context, id int) (string, error) {
	args := m.Called(id)
	return args.String(0), args.Error(1)
}

func (m *mockPlane) InspectConfig(ctx context.Context, id int) (string, error) {
	args := m.Called(id)
	return args.String(0), args.Error(1)
}

func (m *mockPlane) List(ctx context.Context) ([]pve.Resource, error) {
	args := m.Called()
	res, _ := args.Get(0).([]pve.Resource)
	return res, args.Error(1)
}

type planeProvider struct{ plane *mockPlane }

func (p planeProvider) For(kind pve.Kind) pve.ControlPlane {
	p.plane.kind = kind
	return p.plane
}

type line struct {
	sev journal.Severity
	msg string
}

type recorder struct{ lines []line }

func (r *recorder) Report(_ context.Context, sev journal.Severity, msg string) {
	r.lines = append(r.lines, line{sev, msg})
}

func (r *recorder) has(sev journal.Severity, substr string) bool {
	for _, l := range r.lines {
		if l.sev == sev && strings.Contains(l.msg, substr) {
			return true
		}
	}
	return false
}

func (r *recorder) count(sev journal.Severity) int {
	n := 0
	for _, l := range r.lines {
		if l.sev == sev {
			n++
		}
	}
	return n
}

type fixture struct {
	layout artifacts.Layout
	plane  *mockPlane
	rec    *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	layout := artifacts.Layout{
		VM: artifacts.Paths{ConfigDir: filepath.Join(root, "qemu-server"), StorageRoot: filepath.Join(root, "images")},
		CT: artifacts.Paths{ConfigDir: filepath.Join(root, "lxc"), StorageRoot: filepath.Join(root, "lxc-storage")},
	}
	for _, dir := range []string{layout.VM.ConfigDir, layout.VM.StorageRoot, layout.CT.ConfigDir, layout.CT.StorageRoot} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	return &fixture{layout: layout, plane: &mockPlane{}, rec: &recorder{}}
}

func (f *fixture) orchestrator(opts Options) *Orchestrator {
	return New(planeProvider{f.plane}, f.layout, f.rec, opts)
}

func (f *fixture) writeConfig(t *testing.T, kind pve.Kind, id int) string {
	t.Helper()
	path := f.layout.ConfigPath(kind, id)
	require.NoError(t, os.WriteFile(path, []byte("memory: 512\n"), 0o640))
	return path
}

func exists(t *testing.T, path string) bool {
	t.Helper()
	ok, err := artifacts.Exists(path)
	require.NoError(t, err)
	return ok
}

func TestContainerRenameWithoutStorage(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, pve.Container, 101)
	f.plane.On("Stop", 101).Return("", nil).Once()
	f.plane.On("InspectConfig", 205).Return("hostname: proxy\n", nil).Once()
	f.plane.On("Start", 205).Return("", nil).Once()

	outcome, err := f.orchestrator(Options{}).ChangeIdentifier(context.Background(),
		Request{Kind: pve.Container, OldID: 101, NewID: 205, RunID: "r1"})
	require.NoError(t, err)
	require.NoError(t, outcome.Err())
	f.plane.AssertExpectations(t)

	assert.False(t, exists(t, f.layout.ConfigPath(pve.Container, 101)))
	assert.True(t, exists(t, f.layout.ConfigPath(pve.Container, 205)))
	assert.False(t, exists(t, f.layout.StoragePath(pve.Container, 205)))

	assert.True(t, f.rec.has(journal.SeverityInfo, "No root filesystem found for container 101"))
	assert.Zero(t, f.rec.count(journal.SeverityError))
	assert.Equal(t, StatusSkipped, outcome.Result(StepRenameStorage).Status)
	assert.Equal(t, StatusOK, outcome.Result(StepStart).Status)
	assert.True(t, f.rec.has(journal.SeveritySummary, "Container ID changed from 101 to 205"))
	assert.Equal(t, 0, vmid_err.GetExitCode(err))
}

func TestMissingConfigurationAbortsBeforeAnyStep(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.orchestrator(Options{}).ChangeIdentifier(context.Background(),
		Request{Kind: pve.VirtualMachine, OldID: 300, NewID: 301})
	require.Error(t, err)
	assert.True(t, vmid_err.Is(err, vmid_err.CategoryMissingConfiguration))
	assert.Equal(t, 1, vmid_err.GetExitCode(err))
	assert.True(t, outcome.Aborted)

	f.plane.AssertNotCalled(t, "Stop", mock.Anything)
	f.plane.AssertNotCalled(t, "Start", mock.Anything)
	f.plane.AssertNotCalled(t, "InspectConfig", mock.Anything)
	assert.False(t, exists(t, f.layout.ConfigPath(pve.VirtualMachine, 301)))
	assert.False(t, exists(t, f.layout.StoragePath(pve.VirtualMachine, 301)))

	assert.True(t, f.rec.has(journal.SeverityError, "not found for VM 300"))
	assert.Zero(t, f.rec.count(journal.SeveritySummary))
	for _, res := range outcome.Steps {
		assert.Equal(t, StatusNotRun, res.Status, res.Step)
	}
}

func TestTargetConfigurationExists(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, pve.VirtualMachine, 100)
	f.writeConfig(t, pve.VirtualMachine, 200)

	_, err := f.orchestrator(Options{}).ChangeIdentifier(context.Background(),
		Request{Kind: pve.VirtualMachine, OldID: 100, NewID: 200})
	require.Error(t, err)
	assert.True(t, vmid_err.Is(err, vmid_err.CategoryTargetExists))
	assert.Equal(t, 1, vmid_err.GetExitCode(err))
	f.plane.AssertNotCalled(t, "Stop", mock.Anything)
	assert.True(t, exists(t, f.layout.ConfigPath(pve.VirtualMachine, 100)))
}

func TestVirtualMachineRenameMovesDiskImages(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, pve.VirtualMachine, 100)
	disk := filepath.Join(f.layout.StoragePath(pve.VirtualMachine, 100), "vm-100-disk-0.qcow2")
	require.NoError(t, os.MkdirAll(filepath.Dir(disk), 0o755))
	require.NoError(t, os.WriteFile(disk, []byte("qcow"), 0o600))

	f.plane.On("Stop", 100).Return("", nil)
	f.plane.On("InspectConfig", 200).Return("memory: 512\n", nil)
	f.plane.On("Start", 200).Return("", nil)

	outcome, err := f.orchestrator(Options{}).ChangeIdentifier(context.Background(),
		Request{Kind: pve.VirtualMachine, OldID: 100, NewID: 200})
	require.NoError(t, err)
	require.NoError(t, outcome.Err())

	assert.False(t, exists(t, f.layout.StoragePath(pve.VirtualMachine, 100)))
	assert.True(t, exists(t, filepath.Join(f.layout.StoragePath(pve.VirtualMachine, 200), "vm-100-disk-0.qcow2")))
	assert.Equal(t, StatusOK, outcome.Result(StepRenameStorage).Status)
	assert.True(t, f.rec.has(journal.SeverityInfo, "Moving disk images directory"))
	assert.True(t, f.rec.has(journal.SeveritySuccess, "Moved disk images"))
}

func TestContainerRootfsFileIsMovedAsFile(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, pve.Container, 101)
	rootfs := f.layout.StoragePath(pve.Container, 101)
	require.NoError(t, os.WriteFile(rootfs, []byte("raw"), 0o600))

	f.plane.On("Stop", 101).Return("", nil)
	f.plane.On("InspectConfig", 102).Return("arch: amd64\n", nil)
	f.plane.On("Start", 102).Return("", nil)

	outcome, err := f.orchestrator(Options{}).ChangeIdentifier(context.Background(),
		Request{Kind: pve.Container, OldID: 101, NewID: 102})
	require.NoError(t, err)
	require.NoError(t, outcome.Err())
	assert.True(t, f.rec.has(journal.SeverityInfo, "Moving root filesystem file"))
	assert.True(t, exists(t, f.layout.StoragePath(pve.Container, 102)))
}

func TestConfigurationRemovedAfterPreflightKeepsSummaryOnOneLine(t *testing.T) {
	f := newFixture(t)
	conf := f.writeConfig(t, pve.VirtualMachine, 100)
	f.plane.On("Stop", 100).Return("", nil).Run(func(mock.Arguments) {
		require.NoError(t, os.Remove(conf))
	})

	outcome, err := f.orchestrator(Options{}).ChangeIdentifier(context.Background(),
		Request{Kind: pve.VirtualMachine, OldID: 100, NewID: 200})
	require.Error(t, err)
	assert.True(t, vmid_err.Is(err, vmid_err.CategoryMissingConfiguration))
	assert.True(t, outcome.Aborted)

	res := outcome.Result(StepRenameConfig)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, conf+" not found", res.Detail)

	require.NotZero(t, f.rec.count(journal.SeveritySummary))
	for _, l := range f.rec.lines {
		assert.NotContains(t, l.msg, "\n", l.msg)
	}
	f.plane.AssertNotCalled(t, "Start", mock.Anything)
}

func TestStopFailureWarnContinues(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, pve.VirtualMachine, 100)
	f.plane.On("Stop", 100).Return("VM 100 not running\n", errors.New("exit status 255"))
	f.plane.On("InspectConfig", 200).Return("memory: 512\n", nil)
	f.plane.On("Start", 200).Return("", nil)

	outcome, err := f.orchestrator(Options{StopPolicy: StopPolicyWarn}).ChangeIdentifier(context.Background(),
		Request{Kind: pve.VirtualMachine, OldID: 100, NewID: 200})
	require.NoError(t, err)
	f.plane.AssertExpectations(t)

	assert.True(t, exists(t, f.layout.ConfigPath(pve.VirtualMachine, 200)))
	assert.Equal(t, StatusFailed, outcome.Result(StepStop).Status)
	assert.Equal(t, "VM 100 not running", outcome.Result(StepStop).Detail)
	assert.True(t, f.rec.has(journal.SeverityError, "Failed to stop VM 100: VM 100 not running"))
	assert.True(t, f.rec.has(journal.SeveritySummary, "with 1 failed step(s)"))

	agg := outcome.Err()
	require.Error(t, agg)
	assert.Contains(t, agg.Error(), "stop: exit status 255")
}

func TestStopFailureFatalAborts(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, pve.Container, 101)
	f.plane.On("Stop", 101).Return("", errors.New("timed out after 2m0s"))

	outcome, err := f.orchestrator(Options{StopPolicy: StopPolicyFatal}).ChangeIdentifier(context.Background(),
		Request{Kind: pve.Container, OldID: 101, NewID: 102})
	require.Error(t, err)
	assert.True(t, vmid_err.Is(err, vmid_err.CategoryCommandFailure))
	assert.Equal(t, 1, vmid_err.GetExitCode(err))

	assert.True(t, exists(t, f.layout.ConfigPath(pve.Container, 101)))
	f.plane.AssertNotCalled(t, "Start", mock.Anything)
	assert.Equal(t, StatusNotRun, outcome.Result(StepRenameConfig).Status)
	assert.True(t, f.rec.has(journal.SeveritySummary, "aborted"))
}

func TestStorageTargetExistsIsRecordedAndSequenceContinues(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, pve.Container, 101)
	require.NoError(t, os.MkdirAll(f.layout.StoragePath(pve.Container, 101), 0o755))
	require.NoError(t, os.MkdirAll(f.layout.StoragePath(pve.Container, 102), 0o755))
	f.plane.On("Stop", 101).Return("", nil)
	f.plane.On("InspectConfig", 102).Return("", nil)
	f.plane.On("Start", 102).Return("", nil)

	outcome, err := f.orchestrator(Options{}).ChangeIdentifier(context.Background(),
		Request{Kind: pve.Container, OldID: 101, NewID: 102})
	require.NoError(t, err)
	f.plane.AssertExpectations(t)

	assert.Equal(t, StatusFailed, outcome.Result(StepRenameStorage).Status)
	assert.True(t, exists(t, f.layout.StoragePath(pve.Container, 101)))
	assert.True(t, f.rec.has(journal.SeverityError, "already exists"))
	assert.Equal(t, 3, vmid_err.GetExitCode(vmid_err.NewPartialFailureError("x", outcome.Err())))
}

func TestVerifyAndStartFailuresAreReported(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, pve.VirtualMachine, 100)
	f.plane.On("Stop", 100).Return("", nil)
	f.plane.On("InspectConfig", 200).Return("Configuration file 'nodes/pve/qemu-server/200.conf' does not exist\n", errors.New("exit status 2"))
	f.plane.On("Start", 200).Return("", errors.New("exit status 1"))

	outcome, err := f.orchestrator(Options{}).ChangeIdentifier(context.Background(),
		Request{Kind: pve.VirtualMachine, OldID: 100, NewID: 200})
	require.NoError(t, err)

	assert.Len(t, outcome.Failed(), 2)
	assert.True(t, f.rec.has(journal.SeverityError, "Verification of VM 200 failed"))
	assert.True(t, f.rec.has(journal.SeverityError, "Failed to start VM 200: exit status 1"))
	assert.True(t, f.rec.has(journal.SeveritySummary, "Start VM 200: failed"))
	assert.True(t, f.rec.has(journal.SeveritySummary, "Stop VM 100: ok"))
	assert.True(t, f.rec.has(journal.SeveritySummary, "with 2 failed step(s)"))
}

func TestDryRunChangesNothing(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, pve.VirtualMachine, 100)
	require.NoError(t, os.MkdirAll(f.layout.StoragePath(pve.VirtualMachine, 100), 0o755))

	outcome, err := f.orchestrator(Options{DryRun: true}).ChangeIdentifier(context.Background(),
		Request{Kind: pve.VirtualMachine, OldID: 100, NewID: 200})
	require.NoError(t, err)
	require.NoError(t, outcome.Err())

	f.plane.AssertNotCalled(t, "Stop", mock.Anything)
	f.plane.AssertNotCalled(t, "Start", mock.Anything)
	f.plane.AssertNotCalled(t, "InspectConfig", mock.Anything)
	assert.True(t, exists(t, f.layout.ConfigPath(pve.VirtualMachine, 100)))
	assert.True(t, exists(t, f.layout.StoragePath(pve.VirtualMachine, 100)))
	assert.False(t, exists(t, f.layout.ConfigPath(pve.VirtualMachine, 200)))

	for _, res := range outcome.Steps {
		assert.Equal(t, StatusPlanned, res.Status, res.Step)
	}
	assert.True(t, f.rec.has(journal.SeveritySummary, "nothing was changed"))
}

func TestInvalidRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.orchestrator(Options{}).ChangeIdentifier(context.Background(),
		Request{Kind: pve.VirtualMachine, OldID: 100, NewID: 100})
	require.Error(t, err)
	assert.True(t, vmid_err.Is(err, vmid_err.CategoryInvalidInput))
	assert.Empty(t, f.rec.lines)

	assert.Error(t, Request{Kind: "zz", OldID: 1, NewID: 2}.Validate())
	assert.Error(t, Request{Kind: pve.Container, OldID: 0, NewID: 2}.Validate())
	assert.NoError(t, Request{Kind: pve.Container, OldID: 1, NewID: 2}.Validate())
}

func TestShowResources(t *testing.T) {
	t.Run("prints listing", func(t *testing.T) {
		plane := &mockPlane{kind: pve.VirtualMachine}
		plane.On("List").Return([]pve.Resource{{ID: 100, Label: "web"}}, nil)
		rec := &recorder{}
		var out bytes.Buffer

		ShowResources(context.Background(), plane, rec, &out)
		assert.Contains(t, out.String(), "web")
		assert.Zero(t, rec.count(journal.SeverityError))
	})

	t.Run("failure is logged not fatal", func(t *testing.T) {
		plane := &mockPlane{kind: pve.Container}
		plane.On("List").Return(nil, errors.New("pct: command not found"))
		rec := &recorder{}
		var out bytes.Buffer

		ShowResources(context.Background(), plane, rec, &out)
		assert.Empty(t, out.String())
		assert.True(t, rec.has(journal.SeverityError, "Failed to list containers"))
	})
}
