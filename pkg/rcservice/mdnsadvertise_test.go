package rcservice

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/core-tools/hsu-mdnsadvertise/pkg/config"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/discovery"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/errors"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/logging"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/process"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/processfile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, execution process.ExecutionConfig) (int, error) {
	args := m.Called(ctx, execution)
	return args.Int(0), args.Error(1)
}

type MockBrowser struct {
	mock.Mock
}

func (m *MockBrowser) Browse(ctx context.Context, serviceType string, domain string, timeout time.Duration) ([]discovery.Entry, error) {
	args := m.Called(ctx, serviceType, domain, timeout)
	entries, _ := args.Get(0).([]discovery.Entry)
	return entries, args.Error(1)
}

func clientCall(method string) interface{} {
	return mock.MatchedBy(func(execution process.ExecutionConfig) bool {
		return execution.ExecutablePath == config.DefaultClientPath &&
			len(execution.Args) == 2 && execution.Args[0] == "call" && execution.Args[1] == method &&
			execution.Environment["LD_LIBRARY_PATH"] == "/usr/local/lib" &&
			execution.Stdout == nil
	})
}

type fixture struct {
	service *Service
	runner  *MockRunner
	browser *MockBrowser
	out     *bytes.Buffer
	config  *config.Config
}

func newFixture(t *testing.T, deps Dependencies) *fixture {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Service.PIDFile = filepath.Join(t.TempDir(), "mdnsadvertise.pid")

	f := &fixture{
		runner:  &MockRunner{},
		browser: &MockBrowser{},
		out:     &bytes.Buffer{},
		config:  cfg,
	}
	if deps.Runner == nil {
		deps.Runner = f.runner
	}
	if deps.Browser == nil {
		deps.Browser = f.browser
	}
	if deps.Files == nil {
		deps.Files = processfile.NewProcessFileManager(processfile.ProcessFileConfig{}, logging.NewNopLogger())
	}
	f.service = NewMDNSAdvertiseService(cfg, deps, f.out, logging.NewNopLogger())
	return f
}

func TestMDNSAdvertise_RegisteredActions(t *testing.T) {
	f := newFixture(t, Dependencies{})

	assert.Equal(t, []Action{
		ActionRCVar, ActionReload, ActionRestart, ActionStart, ActionStatus, ActionStop, ActionVerify,
	}, f.service.Actions())
	assert.Equal(t, "mdnsadvertise", f.service.Name())
	assert.Equal(t, "mdnsadvertise_enable", f.service.RCVar())
	assert.Equal(t, f.config.Service.PIDFile, f.service.PIDFile())
}

func TestMDNSAdvertise_Start(t *testing.T) {
	f := newFixture(t, Dependencies{})
	f.runner.On("Run", mock.Anything, clientCall("mdnsadvertise.start")).Return(0, nil).Once()

	err := f.service.Dispatch(context.Background(), "start")

	require.NoError(t, err)
	f.runner.AssertExpectations(t)
	assert.Empty(t, f.out.String())
}

func TestMDNSAdvertise_Reload(t *testing.T) {
	f := newFixture(t, Dependencies{})
	f.runner.On("Run", mock.Anything, clientCall("mdnsadvertise.restart")).Return(0, nil).Once()

	require.NoError(t, f.service.Dispatch(context.Background(), "reload"))
	f.runner.AssertExpectations(t)
}

func TestMDNSAdvertise_FailurePropagatesExitStatus(t *testing.T) {
	for _, tc := range []struct {
		command string
		method  string
	}{
		{"start", "mdnsadvertise.start"},
		{"reload", "mdnsadvertise.restart"},
	} {
		t.Run(tc.command, func(t *testing.T) {
			f := newFixture(t, Dependencies{})
			f.runner.On("Run", mock.Anything, clientCall(tc.method)).
				Return(2, errors.NewCommandError(config.DefaultClientPath, []string{"call", tc.method}, 2))

			err := f.service.Dispatch(context.Background(), tc.command)

			require.Error(t, err)
			assert.Equal(t, 2, errors.ExitCode(err))
		})
	}
}

func TestMDNSAdvertise_StopIsNoOp(t *testing.T) {
	f := newFixture(t, Dependencies{})

	require.NoError(t, f.service.Dispatch(context.Background(), "stop"))
	require.NoError(t, f.service.Dispatch(context.Background(), "forcestop"))

	f.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestMDNSAdvertise_RestartStarts(t *testing.T) {
	f := newFixture(t, Dependencies{})
	f.runner.On("Run", mock.Anything, clientCall("mdnsadvertise.start")).Return(0, nil).Once()

	require.NoError(t, f.service.Dispatch(context.Background(), "restart"))
	f.runner.AssertExpectations(t)
}

func TestMDNSAdvertise_CustomEnvironmentAndClient(t *testing.T) {
	runner := &MockRunner{}
	cfg := config.DefaultConfig()
	cfg.Client.ExecutablePath = "/opt/bin/midclt"
	cfg.Client.Environment = map[string]string{}

	runner.On("Run", mock.Anything, mock.MatchedBy(func(execution process.ExecutionConfig) bool {
		return execution.ExecutablePath == "/opt/bin/midclt" && len(execution.Environment) == 0
	})).Return(0, nil)

	service := NewMDNSAdvertiseService(cfg, Dependencies{Runner: runner}, nil, logging.NewNopLogger())

	require.NoError(t, service.Dispatch(context.Background(), "start"))
	runner.AssertExpectations(t)
}

func TestMDNSAdvertise_Status(t *testing.T) {
	t.Run("running", func(t *testing.T) {
		f := newFixture(t, Dependencies{IsRunning: func(pid int) (bool, error) { return pid == 4242, nil }})
		require.NoError(t, os.WriteFile(f.config.Service.PIDFile, []byte("4242\n"), 0644))

		require.NoError(t, f.service.Dispatch(context.Background(), "status"))
		assert.Equal(t, "mdnsadvertise is running as pid 4242.\n", f.out.String())
	})

	t.Run("stale pid", func(t *testing.T) {
		f := newFixture(t, Dependencies{IsRunning: func(pid int) (bool, error) { return false, nil }})
		require.NoError(t, os.WriteFile(f.config.Service.PIDFile, []byte("4242\n"), 0644))

		err := f.service.Dispatch(context.Background(), "status")
		require.Error(t, err)
		assert.Equal(t, errors.ExitFailure, errors.ExitCode(err))
		assert.Equal(t, "mdnsadvertise is not running.\n", f.out.String())
	})

	t.Run("missing pidfile", func(t *testing.T) {
		f := newFixture(t, Dependencies{})

		err := f.service.Dispatch(context.Background(), "status")
		require.Error(t, err)
		assert.Equal(t, errors.ExitFailure, errors.ExitCode(err))
		assert.Equal(t, "mdnsadvertise is not running.\n", f.out.String())
	})
}

func TestMDNSAdvertise_RCVar(t *testing.T) {
	f := newFixture(t, Dependencies{})

	require.NoError(t, f.service.Dispatch(context.Background(), "rcvar"))
	assert.Equal(t, "# mdnsadvertise\n#\nmdnsadvertise_enable\n", f.out.String())
}

func TestMDNSAdvertise_Verify(t *testing.T) {
	hostname := func() (string, error) { return "truenas.example.com", nil }

	t.Run("advertised", func(t *testing.T) {
		f := newFixture(t, Dependencies{Hostname: hostname})
		f.browser.On("Browse", mock.Anything, "_http._tcp", "local", 3*time.Second).
			Return([]discovery.Entry{{Name: "truenas._http._tcp.local.", Host: "truenas.local.", Port: 80}}, nil)

		require.NoError(t, f.service.Dispatch(context.Background(), "verify"))
		assert.Equal(t, "mdnsadvertise: truenas advertised as truenas._http._tcp.local. port 80\n", f.out.String())
	})

	t.Run("not advertised", func(t *testing.T) {
		f := newFixture(t, Dependencies{Hostname: hostname})
		f.browser.On("Browse", mock.Anything, mock.Anything, "local", 3*time.Second).Return([]discovery.Entry{}, nil)

		err := f.service.Dispatch(context.Background(), "verify")
		require.Error(t, err)
		assert.Equal(t, errors.ExitFailure, errors.ExitCode(err))
		assert.Contains(t, f.out.String(), "truenas is not advertised")
		f.browser.AssertNumberOfCalls(t, "Browse", 2)
	})

	t.Run("configured hostname wins", func(t *testing.T) {
		f := newFixture(t, Dependencies{Hostname: func() (string, error) {
			t.Fatal("hostname lookup not expected")
			return "", nil
		}})
		f.config.Verify.Hostname = "nas01"
		f.browser.On("Browse", mock.Anything, "_http._tcp", "local", 3*time.Second).
			Return([]discovery.Entry{{Host: "nas01.local."}}, nil)

		require.NoError(t, f.service.Dispatch(context.Background(), "quietverify"))
		assert.Empty(t, f.out.String())
	})
}
