package version

// Version is the current version of sendbit.
// This value can be overridden at build time using:
//
//	go build -ldflags="-X 'github.com/aman162000/sendBIT.ch/internal/version.Version=v1.0.0'"
var Version = "dev"
