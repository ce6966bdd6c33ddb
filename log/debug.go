package log

import (
	hclog "github.com/hashicorp/go-hclog"
)

// EnableTrace forces trace output regardless of the environment.
func EnableTrace() {
	L.SetLevel(hclog.Trace)
}
