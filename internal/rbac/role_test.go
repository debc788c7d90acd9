package rbac

import "testing"

func TestRankOrder(t *testing.T) {
	if !(RoleMember.Rank() < RoleManager.Rank() && RoleManager.Rank() < RoleAdmin.Rank()) {
		t.Fatalf("expected MEMBER < MANAGER < ADMIN, got %d %d %d",
			RoleMember.Rank(), RoleManager.Rank(), RoleAdmin.Rank())
	}
	if Role("OWNER").Rank() != 0 {
		t.Fatalf("expected unknown role to rank 0, got %d", Role("OWNER").Rank())
	}
}

func TestMeetsMatchesRankComparison(t *testing.T) {
	for _, actual := range Roles() {
		for _, required := range Roles() {
			want := actual.Rank() >= required.Rank()
			if got := actual.Meets(required); got != want {
				t.Fatalf("Meets(%s, %s) = %v, want %v", actual, required, got, want)
			}
		}
	}
}

func TestMeetsReflexive(t *testing.T) {
	for _, role := range Roles() {
		if !role.Meets(role) {
			t.Fatalf("expected Meets(%s, %s) to hold", role, role)
		}
	}
}

func TestMeetsRejectsUnknownRoles(t *testing.T) {
	if Role("").Meets(RoleMember) {
		t.Fatal("expected empty role to meet nothing")
	}
	if RoleAdmin.Meets(Role("SUPERUSER")) {
		t.Fatal("expected unknown required role to never be met")
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" manager ")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if role != RoleManager {
		t.Fatalf("expected MANAGER, got %s", role)
	}

	if _, err := ParseRole("owner"); err != ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}
