package rcservice

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/core-tools/hsu-mdnsadvertise/pkg/config"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/discovery"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/errors"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/logging"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/process"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/processfile"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/processstate"
)

// Dependencies are the collaborators the mdnsadvertise hooks reach out to.
// Zero fields are filled with the real implementations.
type Dependencies struct {
	Runner    process.Runner
	Browser   discovery.Browser
	Files     *processfile.ProcessFileManager
	IsRunning func(pid int) (bool, error)
	Hostname  func() (string, error)

	// ClientStderr receives the management client's stderr; its stdout is always discarded.
	ClientStderr io.Writer
}

func (d *Dependencies) setDefaults(logger logging.Logger) {
	if d.Runner == nil {
		d.Runner = process.NewStdRunner(logger)
	}
	if d.Browser == nil {
		d.Browser = discovery.NewMDNSBrowser(logger)
	}
	if d.Files == nil {
		d.Files = processfile.NewProcessFileManager(processfile.ProcessFileConfig{}, logger)
	}
	if d.IsRunning == nil {
		d.IsRunning = processstate.IsProcessRunning
	}
	if d.Hostname == nil {
		d.Hostname = os.Hostname
	}
}

type mdnsAdvertise struct {
	config *config.Config
	deps   Dependencies
	logger logging.Logger
}

// NewMDNSAdvertiseService wires the mdnsadvertise hooks into a Service:
// start and reload ask the management daemon to start or restart
// advertisement, stop does nothing.
func NewMDNSAdvertiseService(cfg *config.Config, deps Dependencies, output io.Writer, logger logging.Logger) *Service {
	deps.setDefaults(logger)

	m := &mdnsAdvertise{
		config: cfg,
		deps:   deps,
		logger: logger,
	}

	service := NewService(ServiceOptions{
		Name:    cfg.Service.Name,
		RCVar:   cfg.Service.RCVar,
		PIDFile: cfg.Service.PIDFile,
		Output:  output,
	}, logger)

	service.Register(ActionStart, m.start)
	service.Register(ActionStop, m.stop)
	service.Register(ActionReload, m.reload)
	service.Register(ActionRestart, m.restart)
	service.Register(ActionStatus, m.status)
	service.Register(ActionRCVar, m.rcvar)
	service.Register(ActionVerify, m.verify)

	return service
}

func (m *mdnsAdvertise) start(ctx context.Context, inv Invocation) error {
	return m.callClient(ctx, m.config.Client.StartMethod)
}

// Advertisement shutdown is owned by the management daemon.
func (m *mdnsAdvertise) stop(ctx context.Context, inv Invocation) error {
	return nil
}

func (m *mdnsAdvertise) reload(ctx context.Context, inv Invocation) error {
	return m.callClient(ctx, m.config.Client.RestartMethod)
}

func (m *mdnsAdvertise) restart(ctx context.Context, inv Invocation) error {
	if err := m.stop(ctx, inv); err != nil {
		return err
	}
	return m.start(ctx, inv)
}

func (m *mdnsAdvertise) callClient(ctx context.Context, method string) error {
	execution := process.ExecutionConfig{
		ExecutablePath: m.config.Client.ExecutablePath,
		Args:           []string{"call", method},
		Environment:    m.config.Client.Environment,
		Stderr:         m.deps.ClientStderr,
	}

	m.logger.Infof("Calling management client, method: %s", method)

	code, err := m.deps.Runner.Run(ctx, execution)
	if err != nil {
		m.logger.Debugf("Management client call failed, method: %s, exit code: %d, error: %v", method, code, err)
		return err
	}
	return nil
}

func (m *mdnsAdvertise) status(ctx context.Context, inv Invocation) error {
	name := m.config.Service.Name

	pid, err := m.deps.Files.ReadPIDFile(m.config.Service.PIDFile)
	if err != nil {
		m.logger.Debugf("No usable PID file, service: %s, error: %v", name, err)
		fmt.Fprintf(inv.Out, "%s is not running.\n", name)
		return errors.NewProcessError(name+" is not running", nil)
	}

	running, err := m.deps.IsRunning(pid)
	if err != nil {
		return errors.NewProcessError("failed to check process state", err).WithContext("pid", pid)
	}
	if !running {
		fmt.Fprintf(inv.Out, "%s is not running.\n", name)
		return errors.NewProcessError(name+" is not running", nil).WithContext("pid", pid)
	}

	fmt.Fprintf(inv.Out, "%s is running as pid %d.\n", name, pid)
	return nil
}

func (m *mdnsAdvertise) rcvar(ctx context.Context, inv Invocation) error {
	fmt.Fprintf(inv.Out, "# %s\n#\n%s\n", m.config.Service.Name, m.config.Service.RCVar)
	return nil
}

func (m *mdnsAdvertise) verify(ctx context.Context, inv Invocation) error {
	hostname := m.config.Verify.Hostname
	if hostname == "" {
		h, err := m.deps.Hostname()
		if err != nil {
			return errors.NewInternalError("failed to get hostname", err)
		}
		// mDNS advertises the first label only.
		hostname, _, _ = strings.Cut(h, ".")
	}

	options := discovery.BrowseOptions{
		ServiceTypes: m.config.Verify.ServiceTypes,
		Domain:       m.config.Verify.Domain,
		Timeout:      m.config.Verify.Timeout,
	}

	entries, err := discovery.HostAdvertised(ctx, m.deps.Browser, hostname, options)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(inv.Out, "%s: %s is not advertised (%s)\n",
			m.config.Service.Name, hostname, strings.Join(options.ServiceTypes, ", "))
		return errors.NewProcessError(hostname+" is not advertised", nil)
	}

	for _, entry := range entries {
		fmt.Fprintf(inv.Out, "%s: %s advertised as %s port %d\n",
			m.config.Service.Name, hostname, entry.Name, entry.Port)
	}
	return nil
}
