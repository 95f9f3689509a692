package config

import "ipdrop/internal/logger"

// LogConfig is the rotation side of logging; the log file path itself lives
// in the per-service settings store.
type LogConfig = logger.Config

var (
	// AppName is the name of the application
	AppName = "ipdrop"

	// Config search paths

	// InDot is the path to the config file in ./
	InDot = "."
	// InEtc is the path to the config file in /etc/{AppName}
	InEtc = "/etc/" + AppName
	// InHome is the path to the config file in $HOME/.config/{AppName}
	InHome = "$HOME/.config/" + AppName
)

const (
	// DefaultServiceName is the service name used when none is configured
	DefaultServiceName = "ip_on_file_service"
	// DefaultDisplayName is the human readable service name
	DefaultDisplayName = "IP on File Service"
	// DefaultDescription describes the service to the host service manager
	DefaultDescription = "Service to put IP list in a file for IP Discovery"
)
