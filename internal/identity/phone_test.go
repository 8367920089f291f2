package identity

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+15551234567", "+15551234567"},
		{" +1 555 123-4567 ", "+15551234567"},
		{"+33 6.12.34.56.78", "+33612345678"},
		{"+0612345678", ""},          // country code cannot start with zero
		{"15551234567", ""},          // missing plus
		{"+1555", ""},                // too short
		{"+1555123456789012345", ""}, // too long
		{"+1555abc4567", ""},
	}

	for _, tc := range cases {
		got, err := NormalizePhone(tc.in)
		if tc.want == "" {
			if err == nil {
				t.Errorf("NormalizePhone(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizePhone(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRoleSatisfies(t *testing.T) {
	if !RoleAdmin.Satisfies(RoleStandard) {
		t.Error("admin should satisfy standard")
	}
	if !RoleAdmin.Satisfies(RoleAdmin) {
		t.Error("admin should satisfy admin")
	}
	if RoleStandard.Satisfies(RoleAdmin) {
		t.Error("standard should not satisfy admin")
	}
	if !RoleStandard.Satisfies(RoleStandard) {
		t.Error("standard should satisfy standard")
	}
}
