package tuning

import (
	"flag"
	"os"
	"testing"

	"k8s.io/klog/v2"
)

// TestMain exposes the klog flags, so `go test -args -v=4` shows
// per-generation logs.
func TestMain(m *testing.M) {
	klog.InitFlags(nil)
	flag.Parse()
	code := m.Run()
	klog.Flush()
	os.Exit(code)
}
