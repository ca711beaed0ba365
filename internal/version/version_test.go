package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	Version = "1.2.3"
	Commit = "abc1234"
	Date = "2026-01-01"

	info := Info()
	if !strings.HasPrefix(info, "ccmeter 1.2.3") {
		t.Errorf("Info() = %q, want ccmeter 1.2.3 prefix", info)
	}
	if !strings.Contains(info, "abc1234") {
		t.Errorf("Info() = %q, missing commit", info)
	}
}
