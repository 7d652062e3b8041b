package plans

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/hostprep/internal/config"
	"github.com/alexisbeaulieu97/hostprep/internal/engine"
	"github.com/alexisbeaulieu97/hostprep/internal/ports"
	"github.com/alexisbeaulieu97/hostprep/internal/testutil"
	hosterrors "github.com/alexisbeaulieu97/hostprep/pkg/errors"
)

type screenshotHost struct {
	services *testutil.Services
	policies *testutil.Policies
	desktop  *testutil.Desktop
	capturer *testutil.Capturer
}

func newScreenshotHost() *screenshotHost {
	return &screenshotHost{
		services: testutil.NewServices(ports.ServiceStatus{
			Name:    "CaptureAgent",
			State:   ports.ServiceRunning,
			Account: "LocalSystem",
		}),
		policies: testutil.NewPolicies().Set(NoInteractiveServices, 1),
		desktop: &testutil.Desktop{
			SessionList: []ports.Session{
				{ID: 0, Name: "services", State: "Disc"},
				{ID: 1, Name: "console", Username: "alice", State: "Active"},
			},
			DisplayList: []ports.Display{{Name: `\\.\DISPLAY1`, Width: 1920, Height: 1080, Primary: true}},
		},
		capturer: &testutil.Capturer{Bytes: 4096},
	}
}

func (h *screenshotHost) steps() []engine.Step {
	return ScreenshotDiagnosis(
		config.Diagnose{Service: "CaptureAgent", CapturePath: `C:\capture.png`},
		ScreenshotDeps{Services: h.services, Policies: h.policies, Desktop: h.desktop, Capturer: h.capturer},
	)
}

func run(t *testing.T, steps []engine.Step, halt bool) *engine.RunReport {
	t.Helper()
	report, err := engine.New(nil).Run(context.Background(), steps, engine.RunOptions{HaltOnRequiredFailure: halt})
	require.NoError(t, err)
	return report
}

func actions(report *engine.RunReport) map[string]engine.Action {
	out := make(map[string]engine.Action, len(report.Outcomes))
	for _, o := range report.Outcomes {
		out[o.StepID] = o.Action
	}
	return out
}

func TestScreenshotDiagnosis_StepOrder(t *testing.T) {
	steps := newScreenshotHost().steps()

	ids := make([]string, 0, len(steps))
	for _, s := range steps {
		ids = append(ids, s.ID)
	}
	require.Equal(t, []string{
		StepServiceInstalled,
		StepConfigureOwnProcess,
		StepConfigureDesktop,
		StepEnableInteractivePolicy,
		StepServiceRunning,
		StepActiveUserSession,
		StepDisplayAttached,
		StepTestCapture,
	}, ids)
	require.NoError(t, engine.ValidateSteps(steps))
}

func TestScreenshotDiagnosis_RepairsMisconfiguredService(t *testing.T) {
	host := newScreenshotHost()
	// The policy write lands but only takes effect after a reboot.
	host.policies.Deferred[NoInteractiveServices.String()] = true

	report := run(t, host.steps(), true)

	require.Equal(t, map[string]engine.Action{
		StepServiceInstalled:        engine.ActionSkipped,
		StepConfigureOwnProcess:     engine.ActionApplied,
		StepConfigureDesktop:        engine.ActionApplied,
		StepEnableInteractivePolicy: engine.ActionVerifyFailed,
		StepServiceRunning:          engine.ActionApplied,
		StepActiveUserSession:       engine.ActionSkipped,
		StepDisplayAttached:         engine.ActionSkipped,
		StepTestCapture:             engine.ActionSkipped,
	}, actions(report))
	require.Equal(t, engine.StatusPartial, report.Status)
	require.Equal(t, []string{"Restart the machine so the interactive services policy takes effect."}, report.Recommendations())

	desktop, ok := report.Outcome(StepConfigureDesktop)
	require.True(t, ok)
	require.Equal(t, "false", desktop.Before.Get("interact"))
	require.Equal(t, "true", desktop.After.Get("interact"))

	policy, _ := report.Outcome(StepEnableInteractivePolicy)
	require.ErrorIs(t, policy.Err, hosterrors.ErrNotConverged)

	// Stopped once before reconfiguring, started again at the end.
	require.Equal(t, []string{
		"stop:CaptureAgent",
		"own-process:CaptureAgent",
		"interactive:CaptureAgent",
		"start:CaptureAgent",
	}, host.services.Calls())

	status := host.services.Status("CaptureAgent")
	require.True(t, status.OwnProcess)
	require.True(t, status.Interactive)
	require.Equal(t, ports.ServiceRunning, status.State)
}

func TestScreenshotDiagnosis_SecondRunIsANoop(t *testing.T) {
	host := newScreenshotHost()
	first := run(t, host.steps(), true)
	require.Equal(t, engine.StatusSuccess, first.Status)
	calls := host.services.Calls()
	writes := host.policies.Writes()

	second := run(t, host.steps(), true)
	require.Equal(t, engine.StatusSuccess, second.Status)
	for _, o := range second.Outcomes {
		require.Equal(t, engine.ActionSkipped, o.Action, o.StepID)
	}
	require.Equal(t, calls, host.services.Calls())
	require.Equal(t, writes, host.policies.Writes())
}

func TestScreenshotDiagnosis_MissingServiceHalts(t *testing.T) {
	host := newScreenshotHost()
	host.services = testutil.NewServices()

	report := run(t, host.steps(), true)
	require.Len(t, report.Outcomes, 1)
	require.Equal(t, engine.ActionApplyFailed, report.Outcomes[0].Action)
	require.ErrorIs(t, report.Outcomes[0].Err, hosterrors.ErrNoRemedy)
	require.Equal(t, engine.StatusFailed, report.Status)
	require.Equal(t, []string{"Install the CaptureAgent service, then run the diagnosis again."}, report.Recommendations())
}

func TestScreenshotDiagnosis_ServiceManagerUnavailable(t *testing.T) {
	host := newScreenshotHost()
	host.services.QueryErr = errors.New("access is denied")

	report := run(t, host.steps(), false)
	require.Equal(t, engine.ActionProbeFailed, report.Outcomes[0].Action)
	require.Equal(t, engine.StatusFailed, report.Status)
	require.Len(t, report.Outcomes, 8)
}

func TestScreenshotDiagnosis_HeadlessMachine(t *testing.T) {
	host := newScreenshotHost()
	host.desktop.SessionList = []ports.Session{{ID: 0, Name: "services", State: "Disc"}}
	host.desktop.DisplayList = nil
	host.capturer.Err = errors.New("The handle is invalid")

	report := run(t, host.steps(), true)

	got := actions(report)
	require.Equal(t, engine.ActionApplyFailed, got[StepActiveUserSession])
	require.Equal(t, engine.ActionApplyFailed, got[StepDisplayAttached])
	require.Equal(t, engine.ActionApplyFailed, got[StepTestCapture])
	require.Equal(t, engine.StatusPartial, report.Status)
	require.Len(t, report.Recommendations(), 3)

	capture, _ := report.Outcome(StepTestCapture)
	require.Equal(t, "false", capture.Before.Get("captured"))
	require.Equal(t, "The handle is invalid", capture.Before.Get("error"))
}

func TestScreenshotDiagnosis_PolicyUnset(t *testing.T) {
	host := newScreenshotHost()
	host.policies = testutil.NewPolicies()

	report := run(t, host.steps(), true)
	policy, _ := report.Outcome(StepEnableInteractivePolicy)
	require.Equal(t, "unset", policy.Before.Get("NoInteractiveServices"))
	require.Equal(t, engine.ActionApplied, policy.Action)
	require.Equal(t, []string{NoInteractiveServices.String() + "=0"}, host.policies.Writes())
}
