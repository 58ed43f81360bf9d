package picosock

import "testing"

func TestVersionGateAcceptsSatisfyingBuild(t *testing.T) {
	hook, err := VersionGate("2.3.0", map[uint16]string{9000: ">=2.0.0"})
	if err != nil {
		t.Fatalf("VersionGate: %v", err)
	}
	if err := hook(nil, 9000); err != nil {
		t.Fatalf("build 2.3.0 should satisfy >=2.0.0: %v", err)
	}
}

func TestVersionGateRejectsViolatingBuild(t *testing.T) {
	hook, err := VersionGate("1.4.0", map[uint16]string{9000: ">=2.0.0"})
	if err != nil {
		t.Fatalf("VersionGate: %v", err)
	}
	if err := hook(nil, 9000); err == nil {
		t.Fatal("build 1.4.0 should not satisfy >=2.0.0")
	}
}

func TestVersionGatePortWithNoConstraintAlwaysAccepted(t *testing.T) {
	hook, err := VersionGate("0.0.1", map[uint16]string{9000: ">=2.0.0"})
	if err != nil {
		t.Fatalf("VersionGate: %v", err)
	}
	if err := hook(nil, 9001); err != nil {
		t.Fatalf("a port with no configured constraint should always be accepted: %v", err)
	}
}

func TestVersionGateRejectsInvalidBuildVersion(t *testing.T) {
	if _, err := VersionGate("not-a-version", nil); err == nil {
		t.Fatal("expected an error for an unparseable build version")
	}
}

func TestVersionGateRejectsInvalidConstraint(t *testing.T) {
	if _, err := VersionGate("1.0.0", map[uint16]string{9000: "not-a-constraint"}); err == nil {
		t.Fatal("expected an error for an unparseable constraint expression")
	}
}
