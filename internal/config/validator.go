package config

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	hosterrors "github.com/alexisbeaulieu97/hostprep/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern      = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
	serviceNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,255}$`)
	packageNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,99}$`)
	sshGitPattern      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+:[a-zA-Z0-9._/~-]+$`)
	windowsPathPattern = regexp.MustCompile(`^(?:[A-Za-z]:\\|\\\\)`)
)

// validatorInstance configures and returns the shared validator instance used across the config package.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		// Report fields by their document key rather than the Go field name.
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return strings.ToLower(field.Name)
			}
			return name
		})

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("service_name", func(fl validator.FieldLevel) bool {
			return serviceNamePattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("package_name", func(fl validator.FieldLevel) bool {
			return packageNamePattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("git_url", func(fl validator.FieldLevel) bool {
			return isGitURL(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// GetValidator returns the configured validator instance for use outside the config package.
func GetValidator() *validator.Validate {
	return validatorInstance()
}

// Validate performs schema and cross-field validation on the configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return hosterrors.NewConfigurationError("config", "configuration is nil", nil)
	}

	if err := validatorInstance().Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	if cfg.Provision != nil {
		if err := validateProvision(cfg.Provision); err != nil {
			return err
		}
	}
	return nil
}

func validateProvision(p *Provision) error {
	packages := make(map[string]int, len(p.Packages))
	for i, pkg := range p.Packages {
		key := strings.ToLower(pkg.Name)
		if first, dup := packages[key]; dup {
			return hosterrors.NewConfigurationError(
				fmt.Sprintf("provision.packages[%d].name", i),
				fmt.Sprintf("duplicate package %q (first declared at packages[%d])", pkg.Name, first),
				nil,
			)
		}
		packages[key] = i
	}

	services := make(map[string]int, len(p.Services))
	for i, svc := range p.Services {
		key := strings.ToLower(svc.Name)
		if first, dup := services[key]; dup {
			return hosterrors.NewConfigurationError(
				fmt.Sprintf("provision.services[%d].name", i),
				fmt.Sprintf("duplicate service %q (first declared at services[%d])", svc.Name, first),
				nil,
			)
		}
		services[key] = i
	}
	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return hosterrors.NewConfigurationError(field, msg, err)
	}

	return hosterrors.NewConfigurationError("config", err.Error(), err)
}

// yamlishFieldName drops the root struct from the namespace, leaving a path
// such as provision.services[1].name.
func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func isGitURL(raw string) bool {
	if strings.TrimSpace(raw) == "" || strings.ContainsAny(raw, "\x00 \t\n") {
		return false
	}

	if parsed, err := url.Parse(raw); err == nil {
		switch strings.ToLower(parsed.Scheme) {
		case "http", "https", "ssh", "git":
			return parsed.Host != ""
		case "file":
			return parsed.Path != ""
		}
	}

	if sshGitPattern.MatchString(raw) {
		return true
	}

	// Local paths, which go-git clones without a transport.
	return strings.HasPrefix(raw, "/") ||
		strings.HasPrefix(raw, "./") ||
		strings.HasPrefix(raw, "../") ||
		windowsPathPattern.MatchString(raw)
}
