// Package gologger resolves the loggers used by a crmquery session.
package gologger

import (
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

const RootName = "crmquery"

// Component names the logger of one session part.
type Component string

const (
	ComponentAuth     Component = "auth"
	ComponentExecutor Component = "executor"
	ComponentAccount  Component = "account"
	ComponentCatalog  Component = "catalog"
	ComponentStore    Component = "store"
)

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(loggerName(name), provider, logger)
}

// For returns the logger of one component, named crmquery.<component>.
func For(provider glog.LoggerProvider, component Component) glog.Logger {
	if provider == nil {
		return glog.Nop()
	}
	name := RootName
	if trimmed := strings.TrimSpace(string(component)); trimmed != "" {
		name += "." + trimmed
	}
	logger := provider.GetLogger(name)
	if logger == nil {
		return glog.Nop()
	}
	return logger
}

func loggerName(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return RootName
}
