// Package plans turns configuration and host capabilities into ordered
// reconciliation steps.
package plans

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alexisbeaulieu97/hostprep/internal/config"
	"github.com/alexisbeaulieu97/hostprep/internal/engine"
	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

// Step IDs of the screenshot diagnosis.
const (
	StepServiceInstalled        = "service-installed"
	StepConfigureOwnProcess     = "configure-own-process"
	StepConfigureDesktop        = "configure-desktop-interaction"
	StepEnableInteractivePolicy = "enable-interactive-policy"
	StepServiceRunning          = "service-running"
	StepActiveUserSession       = "active-user-session"
	StepDisplayAttached         = "display-attached"
	StepTestCapture             = "test-capture"
)

// NoInteractiveServices is the machine policy that blocks services from
// showing UI on the interactive desktop. Zero allows it.
var NoInteractiveServices = ports.PolicyValue{
	Hive: ports.HiveLocalMachine,
	Path: `SYSTEM\CurrentControlSet\Control\Windows`,
	Name: "NoInteractiveServices",
}

// ScreenshotDeps are the capabilities the diagnosis needs.
type ScreenshotDeps struct {
	Services ports.ServiceController
	Policies ports.PolicyStore
	Desktop  ports.SessionInspector
	Capturer ports.ScreenCapturer
}

// ScreenshotDiagnosis checks and, where possible, fixes everything a service
// needs to capture the interactive desktop.
func ScreenshotDiagnosis(cfg config.Diagnose, deps ScreenshotDeps) []engine.Step {
	svc := cfg.Service
	query := func(ctx context.Context) (ports.ServiceStatus, error) {
		return deps.Services.Query(ctx, svc)
	}
	stopIfRunning := func(ctx context.Context, before engine.Snapshot) error {
		if before.Get("state") != string(ports.ServiceRunning) {
			return nil
		}
		return deps.Services.Stop(ctx, svc)
	}

	return []engine.Step{
		{
			ID:          StepServiceInstalled,
			Description: fmt.Sprintf("service %s is installed", svc),
			Severity:    engine.SeverityRequired,
			Probe: func(ctx context.Context) (engine.Snapshot, error) {
				st, err := query(ctx)
				if err != nil {
					return nil, err
				}
				return engine.Snapshot{
					"installed":  strconv.FormatBool(st.Installed),
					"state":      string(st.State),
					"start_type": st.StartType,
					"account":    st.Account,
				}, nil
			},
			Satisfied:      isTrue("installed"),
			Recommendation: fmt.Sprintf("Install the %s service, then run the diagnosis again.", svc),
		},
		{
			ID:          StepConfigureOwnProcess,
			Description: fmt.Sprintf("service %s runs in its own process", svc),
			Severity:    engine.SeverityRequired,
			Probe: func(ctx context.Context) (engine.Snapshot, error) {
				st, err := query(ctx)
				if err != nil {
					return nil, err
				}
				return engine.Snapshot{
					"own_process": strconv.FormatBool(st.OwnProcess),
					"state":       string(st.State),
				}, nil
			},
			Satisfied: isTrue("own_process"),
			Apply: func(ctx context.Context, before engine.Snapshot) error {
				if err := stopIfRunning(ctx, before); err != nil {
					return err
				}
				return deps.Services.SetOwnProcess(ctx, svc)
			},
			Recommendation: fmt.Sprintf("Run `sc config %s type= own` from an elevated prompt.", svc),
		},
		{
			ID:          StepConfigureDesktop,
			Description: fmt.Sprintf("service %s may interact with the desktop", svc),
			Severity:    engine.SeverityRequired,
			Probe: func(ctx context.Context) (engine.Snapshot, error) {
				st, err := query(ctx)
				if err != nil {
					return nil, err
				}
				return engine.Snapshot{
					"interact": strconv.FormatBool(st.Interactive),
					"state":    string(st.State),
					"account":  st.Account,
				}, nil
			},
			Satisfied: isTrue("interact"),
			Apply: func(ctx context.Context, before engine.Snapshot) error {
				if err := stopIfRunning(ctx, before); err != nil {
					return err
				}
				return deps.Services.SetInteractive(ctx, svc, true)
			},
			Recommendation: fmt.Sprintf("Run `sc config %s type= own type= interact` as LocalSystem from an elevated prompt.", svc),
		},
		{
			ID:          StepEnableInteractivePolicy,
			Description: "interactive services are allowed by policy",
			Severity:    engine.SeverityAdvisory,
			Probe: func(ctx context.Context) (engine.Snapshot, error) {
				return readPolicy(ctx, deps.Policies, NoInteractiveServices)
			},
			Satisfied: func(s engine.Snapshot) bool { return s.Get(NoInteractiveServices.Name) == "0" },
			Apply: func(ctx context.Context, _ engine.Snapshot) error {
				return deps.Policies.WriteDWORD(ctx, NoInteractiveServices, 0)
			},
			Recommendation: "Restart the machine so the interactive services policy takes effect.",
		},
		{
			ID:          StepServiceRunning,
			Description: fmt.Sprintf("service %s is running", svc),
			Severity:    engine.SeverityRequired,
			Probe: func(ctx context.Context) (engine.Snapshot, error) {
				st, err := query(ctx)
				if err != nil {
					return nil, err
				}
				return engine.Snapshot{"state": string(st.State)}, nil
			},
			Satisfied: func(s engine.Snapshot) bool { return s.Get("state") == string(ports.ServiceRunning) },
			Apply: func(ctx context.Context, _ engine.Snapshot) error {
				return deps.Services.Start(ctx, svc)
			},
			Recommendation: fmt.Sprintf("Check the %s service logs; it does not stay running.", svc),
		},
		{
			ID:          StepActiveUserSession,
			Description: "a user is logged on interactively",
			Severity:    engine.SeverityAdvisory,
			Probe: func(ctx context.Context) (engine.Snapshot, error) {
				sessions, err := deps.Desktop.Sessions(ctx)
				if err != nil {
					return nil, err
				}
				var users []string
				for _, s := range sessions {
					if s.Active() {
						users = append(users, s.Username)
					}
				}
				return engine.Snapshot{
					"active_sessions": strconv.Itoa(len(users)),
					"users":           strings.Join(users, ","),
				}, nil
			},
			Satisfied:      func(s engine.Snapshot) bool { return s.Get("active_sessions") != "0" },
			Recommendation: "Log on at the console. A service can only capture a desktop that has an active session.",
		},
		{
			ID:          StepDisplayAttached,
			Description: "a display is attached",
			Severity:    engine.SeverityAdvisory,
			Probe: func(ctx context.Context) (engine.Snapshot, error) {
				displays, err := deps.Desktop.Displays(ctx)
				if err != nil {
					return nil, err
				}
				snap := engine.Snapshot{"displays": strconv.Itoa(len(displays))}
				for _, d := range displays {
					if d.Primary {
						snap["primary"] = fmt.Sprintf("%s %dx%d", d.Name, d.Width, d.Height)
					}
				}
				return snap, nil
			},
			Satisfied:      func(s engine.Snapshot) bool { return s.Get("displays") != "0" },
			Recommendation: "Attach a monitor or a display emulator plug; headless sessions render black captures.",
		},
		{
			ID:          StepTestCapture,
			Description: fmt.Sprintf("a test screenshot can be written to %s", cfg.CapturePath),
			Severity:    engine.SeverityAdvisory,
			Probe: func(ctx context.Context) (engine.Snapshot, error) {
				res, err := deps.Capturer.Capture(ctx, cfg.CapturePath)
				if err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return nil, errors.Join(err, ctxErr)
					}
					return engine.Snapshot{"captured": "false", "error": err.Error()}, nil
				}
				return engine.Snapshot{
					"captured": "true",
					"path":     res.Path,
					"bytes":    strconv.FormatInt(res.Bytes, 10),
				}, nil
			},
			Satisfied:      isTrue("captured"),
			Recommendation: "Resolve the warnings above, then run the diagnosis again to retry the test capture.",
		},
	}
}

func readPolicy(ctx context.Context, store ports.PolicyStore, value ports.PolicyValue) (engine.Snapshot, error) {
	data, found, err := store.ReadDWORD(ctx, value)
	if err != nil {
		return nil, err
	}
	if !found {
		return engine.Snapshot{value.Name: "unset"}, nil
	}
	return engine.Snapshot{value.Name: strconv.FormatUint(uint64(data), 10)}, nil
}

func isTrue(key string) func(engine.Snapshot) bool {
	return func(s engine.Snapshot) bool { return s.Get(key) == "true" }
}
