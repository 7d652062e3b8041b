// Package windows adapts the Windows service control manager, registry, and
// interactive desktop to the host capability ports. Non-Windows builds
// compile against stubs that return errors.ErrUnsupported.
package windows
