package auth

import "testing"

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleViewer, PermSnoozeRead, true},
		{RoleViewer, PermAutomationRead, true},
		{RoleViewer, PermSnoozeOperate, false},
		{RoleViewer, PermAutomationManage, false},
		{RoleUser, PermSnoozeRead, true},
		{RoleUser, PermSnoozeOperate, true},
		{RoleUser, PermAutomationManage, false},
		{RoleAdmin, PermSnoozeOperate, true},
		{RoleAdmin, PermAutomationManage, true},
		{Role("intruder"), PermSnoozeRead, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.perm), func(t *testing.T) {
			if got := HasPermission(tt.role, tt.perm); got != tt.want {
				t.Errorf("HasPermission(%s, %s) = %v, want %v", tt.role, tt.perm, got, tt.want)
			}
		})
	}
}

func TestPermissionsForRole(t *testing.T) {
	if got := PermissionsForRole(Role("unknown")); got != nil {
		t.Errorf("PermissionsForRole(unknown) = %v, want nil", got)
	}

	perms := PermissionsForRole(RoleAdmin)
	if len(perms) != 4 {
		t.Fatalf("admin permissions = %d, want 4", len(perms))
	}

	// Mutating the returned slice must not affect the model.
	perms[0] = "tampered"
	if !HasPermission(RoleAdmin, PermSnoozeRead) {
		t.Error("PermissionsForRole() returned the internal slice")
	}
}

func TestIsValidRole(t *testing.T) {
	for _, r := range ValidRoles {
		if !IsValidRole(r) {
			t.Errorf("IsValidRole(%q) = false", r)
		}
	}
	if IsValidRole("owner") {
		t.Error("IsValidRole(owner) = true")
	}
}
