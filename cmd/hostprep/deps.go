package main

import (
	"github.com/alexisbeaulieu97/hostprep/internal/adapters/chocolatey"
	"github.com/alexisbeaulieu97/hostprep/internal/adapters/command"
	"github.com/alexisbeaulieu97/hostprep/internal/adapters/gitrepo"
	"github.com/alexisbeaulieu97/hostprep/internal/adapters/nssm"
	"github.com/alexisbeaulieu97/hostprep/internal/adapters/pip"
	winhost "github.com/alexisbeaulieu97/hostprep/internal/adapters/windows"
	"github.com/alexisbeaulieu97/hostprep/internal/config"
	"github.com/alexisbeaulieu97/hostprep/internal/logger"
	"github.com/alexisbeaulieu97/hostprep/internal/plans"
)

// Capability constructors are variables so tests can substitute fakes.
var (
	newScreenshotDeps = func(log *logger.Logger) plans.ScreenshotDeps {
		runner := command.NewRunner(log)
		return plans.ScreenshotDeps{
			Services: winhost.NewServices(),
			Policies: winhost.NewRegistry(),
			Desktop:  winhost.NewDesktop(runner),
			Capturer: winhost.NewCapturer(runner),
		}
	}

	newProvisionDeps = func(cfg config.Provision, log *logger.Logger) plans.ProvisionDeps {
		runner := command.NewRunner(log)
		return plans.ProvisionDeps{
			Packages: chocolatey.New(runner),
			Repos:    gitrepo.New(),
			Deps:     pip.New(runner),
			Wrapper:  nssm.New(runner, cfg.NSSM),
			Policies: winhost.NewRegistry(),
		}
	}
)
