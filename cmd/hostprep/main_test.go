package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/alexisbeaulieu97/hostprep/internal/config"
	"github.com/alexisbeaulieu97/hostprep/internal/engine"
	"github.com/alexisbeaulieu97/hostprep/internal/logger"
	"github.com/alexisbeaulieu97/hostprep/internal/plans"
	"github.com/alexisbeaulieu97/hostprep/internal/ports"
	"github.com/alexisbeaulieu97/hostprep/internal/testutil"
	hosterrors "github.com/alexisbeaulieu97/hostprep/pkg/errors"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

type screenshotFakes struct {
	services *testutil.Services
	policies *testutil.Policies
	desktop  *testutil.Desktop
	capturer *testutil.Capturer
}

// useScreenshotFakes installs a healthy machine running service.
func useScreenshotFakes(t *testing.T, service string) *screenshotFakes {
	t.Helper()
	fakes := &screenshotFakes{
		services: testutil.NewServices(ports.ServiceStatus{
			Name:        service,
			State:       ports.ServiceRunning,
			OwnProcess:  true,
			Interactive: true,
			Account:     "LocalSystem",
		}),
		policies: testutil.NewPolicies().Set(plans.NoInteractiveServices, 0),
		desktop: &testutil.Desktop{
			SessionList: []ports.Session{{ID: 1, Name: "console", Username: "lab", State: "Active"}},
			DisplayList: []ports.Display{{Name: "DISPLAY1", Width: 1920, Height: 1080, Primary: true}},
		},
		capturer: &testutil.Capturer{Bytes: 2048},
	}

	original := newScreenshotDeps
	t.Cleanup(func() { newScreenshotDeps = original })
	newScreenshotDeps = func(*logger.Logger) plans.ScreenshotDeps {
		return plans.ScreenshotDeps{
			Services: fakes.services,
			Policies: fakes.policies,
			Desktop:  fakes.desktop,
			Capturer: fakes.capturer,
		}
	}
	return fakes
}

type provisionFakes struct {
	packages *testutil.Packages
	repos    *testutil.Repos
	deps     *testutil.Deps
	wrapper  *testutil.Wrapper
	policies *testutil.Policies
}

func useProvisionFakes(t *testing.T) *provisionFakes {
	t.Helper()
	fakes := &provisionFakes{
		packages: testutil.NewPackages(nil),
		repos:    testutil.NewRepos(),
		deps:     testutil.NewDeps("5d41402abc4b2a76"),
		wrapper:  testutil.NewWrapper(),
		policies: testutil.NewPolicies().Set(plans.EnableLUA, 1),
	}

	original := newProvisionDeps
	t.Cleanup(func() { newProvisionDeps = original })
	newProvisionDeps = func(config.Provision, *logger.Logger) plans.ProvisionDeps {
		return plans.ProvisionDeps{
			Packages: fakes.packages,
			Repos:    fakes.repos,
			Deps:     fakes.deps,
			Wrapper:  fakes.wrapper,
			Policies: fakes.policies,
		}
	}
	return fakes
}

const provisionPlan = `version: "1.0"
name: lab
provision:
  packages:
    - name: python3
    - name: nssm
  repository:
    url: https://github.com/example/lab-agent.git
    destination: C:\lab-agent
  dependencies:
    requirements: requirements.txt
  services:
    - name: LabAgentService
      executable: C:\Python312\python.exe
      arguments: C:\lab-agent\main.py
`

func writePlan(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDiagnoseHealthyMachineSucceeds(t *testing.T) {
	useScreenshotFakes(t, "ScreenshotService")

	out, err := executeCommand(t, "diagnose-screenshot-service")
	require.NoError(t, err)
	require.Contains(t, out, "Status: success")
	require.Contains(t, out, "8 skipped-already-satisfied")
}

func TestDiagnoseServiceFlagOverridesDefault(t *testing.T) {
	fakes := useScreenshotFakes(t, "CaptureAgent")
	fakes.services = testutil.NewServices(ports.ServiceStatus{Name: "CaptureAgent", State: ports.ServiceStopped, Account: "LocalSystem"})

	out, err := executeCommand(t, "diagnose-screenshot-service", "--service", "CaptureAgent")
	require.NoError(t, err)
	require.Contains(t, out, "configure-own-process: applied")

	status := fakes.services.Status("CaptureAgent")
	require.True(t, status.OwnProcess)
	require.Equal(t, ports.ServiceRunning, status.State)
}

func TestDiagnoseMissingServiceExitsNonZero(t *testing.T) {
	useScreenshotFakes(t, "SomethingElse")

	out, err := executeCommand(t, "diagnose-screenshot-service", "--service", "CaptureAgent")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, engine.StatusFailed, statusErr.Status)
	require.Contains(t, out, "Install the CaptureAgent service")
}

func TestDiagnoseWritesLogFile(t *testing.T) {
	useScreenshotFakes(t, "ScreenshotService")
	path := filepath.Join(t.TempDir(), "hostprep.log")

	_, err := executeCommand(t, "diagnose-screenshot-service", "--log-file", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"step":"service-installed"`)
	require.Contains(t, string(data), `"message":"step reconciled"`)
}

func TestDiagnoseYAMLOutput(t *testing.T) {
	useScreenshotFakes(t, "ScreenshotService")

	out, err := executeCommand(t, "diagnose-screenshot-service", "--output", "yaml")
	require.NoError(t, err)

	var doc struct {
		Status   string `yaml:"status"`
		Outcomes []struct {
			Step   string `yaml:"step"`
			Action string `yaml:"action"`
		} `yaml:"outcomes"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.Equal(t, "success", doc.Status)
	require.Len(t, doc.Outcomes, 8)
	require.Equal(t, plans.StepServiceInstalled, doc.Outcomes[0].Step)
}

func TestDiagnoseDryRunDoesNotMutate(t *testing.T) {
	fakes := useScreenshotFakes(t, "ScreenshotService")
	fakes.services = testutil.NewServices(ports.ServiceStatus{Name: "ScreenshotService", State: ports.ServiceStopped})

	out, err := executeCommand(t, "diagnose-screenshot-service", "--dry-run")
	require.Error(t, err)
	require.Contains(t, out, "would-apply")
	require.Empty(t, fakes.services.Calls())
}

func TestDiagnoseRejectsInvalidServiceName(t *testing.T) {
	useScreenshotFakes(t, "ScreenshotService")

	_, err := executeCommand(t, "diagnose-screenshot-service", "--service", "bad/name")
	var cfgErr *hosterrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := executeCommand(t, "diagnose-screenshot-service", "--output", "json")
	require.ErrorContains(t, err, "unknown output format")
}

func TestProvisionRequiresPlan(t *testing.T) {
	useProvisionFakes(t)

	_, err := executeCommand(t, "provision")
	var cfgErr *hosterrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "provision", cfgErr.Field)
}

func TestProvisionFromPlan(t *testing.T) {
	fakes := useProvisionFakes(t)
	path := writePlan(t, "lab.yaml", provisionPlan)

	out, err := executeCommand(t, "provision", "--config", path)
	require.NoError(t, err)
	require.Contains(t, out, "Status: success")
	require.Contains(t, out, "Guard uac acquired and released")
	require.Equal(t, []string{"python3", "nssm"}, fakes.packages.Installs)
	require.Equal(t, []string{"LabAgentService"}, fakes.wrapper.Starts)

	out, err = executeCommand(t, "provision", "--config", path)
	require.NoError(t, err)
	require.Contains(t, out, "5 skipped-already-satisfied")
}

func TestProvisionFailureWithoutHalting(t *testing.T) {
	fakes := useProvisionFakes(t)
	fakes.packages.Err = errors.New("choco exited with code 1")
	path := writePlan(t, "lab.yaml", provisionPlan)

	out, err := executeCommand(t, "provision", "--config", path, "--halt-on-failure=false")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, engine.StatusPartial, statusErr.Status)
	require.Equal(t, []string{"LabAgentService"}, fakes.wrapper.Starts)
	require.Contains(t, out, "choco exited with code 1")
}

func TestProvisionMalformedPlan(t *testing.T) {
	useProvisionFakes(t)
	path := writePlan(t, "lab.toml", "version = \n")

	_, err := executeCommand(t, "provision", "--config", path)
	var parseErr *hosterrors.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestVersionCommandOutputsBuildInfo(t *testing.T) {
	originalVersion, originalCommit, originalDate := version, commit, date
	t.Cleanup(func() {
		version, commit, date = originalVersion, originalCommit, originalDate
	})
	version, commit, date = "1.2.3", "abcdef1", "2026-10-19"

	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "hostprep 1.2.3")
	require.Contains(t, out, "abcdef1")
	require.Contains(t, out, "2026-10-19")
}
