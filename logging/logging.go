// Package logging provides the injected logging capability shared by the
// storage, replacer, and buffer packages, replacing the process-wide
// spdlog logger used by the original implementation.
package logging

import "github.com/sirupsen/logrus"

// Default returns the package-level logrus logger used when a component
// is constructed without an explicit *logrus.Logger.
func Default() *logrus.Logger {
	return logrus.StandardLogger()
}

// Or returns l if non-nil, otherwise Default().
func Or(l *logrus.Logger) *logrus.Logger {
	if l != nil {
		return l
	}
	return Default()
}
