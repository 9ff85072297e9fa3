package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestString_DefaultBuild(t *testing.T) {
	got := String()

	want := "genhub dev (commit none, built unknown, " + runtime.Version() + ")"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestGet_ReflectsLdflags(t *testing.T) {
	oldVersion, oldCommit, oldBuild := Version, Commit, BuildTime
	t.Cleanup(func() { Version, Commit, BuildTime = oldVersion, oldCommit, oldBuild })

	Version = "1.4.0"
	Commit = "abc1234"
	BuildTime = "2026-10-01T00:00:00Z"

	info := Get()
	if info.Version != "1.4.0" || info.Commit != "abc1234" || info.BuildTime != "2026-10-01T00:00:00Z" {
		t.Errorf("Get() = %+v, want injected values", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if !strings.Contains(String(), "abc1234") {
		t.Errorf("String() = %q, want commit", String())
	}
}
