package models

import "testing"

func TestParseStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want Status
		ok   bool
	}{
		{"checked-in", StatusCheckedIn, true},
		{"In Diagnostics", StatusInDiagnostics, true},
		{"  work in progress ", StatusWorkInProgress, true},
		{"Ready for Pickup", StatusReadyForPickup, true},
		{"waiting-for-parts", StatusWaitingForParts, true},
		{"done", "", false},
		{"", "", false},
	}
	for _, tt := range cases {
		got, ok := ParseStatus(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParseStatus(%q)=(%q,%v), want (%q,%v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestStatusAccent(t *testing.T) {
	cases := map[Status]string{
		StatusCheckedIn:       "blue",
		StatusInDiagnostics:   "orange",
		StatusWaitingForParts: "red",
		StatusWorkInProgress:  "purple",
		StatusReadyForPickup:  "green",
		Status("unknown"):     "gray",
	}
	for status, want := range cases {
		if got := status.Accent(); got != want {
			t.Fatalf("%q.Accent()=%q, want %q", status, got, want)
		}
	}
}

func TestStatusOrder(t *testing.T) {
	for i, status := range Statuses {
		if status.Order() != i {
			t.Fatalf("%q.Order()=%d, want %d", status, status.Order(), i)
		}
	}
	if Status("nope").Order() != -1 {
		t.Fatalf("expected -1 for unknown status")
	}
}

func TestSeesAllBranches(t *testing.T) {
	if !(User{Role: RoleSuperadmin, Branch: "CFAO Airport"}).SeesAllBranches() {
		t.Fatalf("superadmin should see all branches")
	}
	if !(User{Role: RoleStaff, Branch: AllBranches}).SeesAllBranches() {
		t.Fatalf("all-branches user should see all branches")
	}
	if (User{Role: RoleStaff, Branch: "CFAO Airport"}).SeesAllBranches() {
		t.Fatalf("branch staff should not see all branches")
	}
}
