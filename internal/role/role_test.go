package role

import "testing"

func TestParse(t *testing.T) {
	for _, r := range All() {
		got, ok := Parse(string(r))
		if !ok || got != r {
			t.Errorf("Parse(%q) = %q, %v", r, got, ok)
		}
	}
	if _, ok := Parse("superuser"); ok {
		t.Error("Parse should reject unknown role names")
	}
	if _, ok := Parse(""); ok {
		t.Error("Parse should reject empty names")
	}
}

func TestFromNames_DropsUnknown(t *testing.T) {
	roles := FromNames([]string{"admin", "bogus", "viewer"})
	if len(roles) != 2 || roles[0] != Admin || roles[1] != Viewer {
		t.Errorf("FromNames = %v, want [admin viewer]", roles)
	}
}

func TestIdentityHasRole(t *testing.T) {
	id := &Identity{UserID: "u1", Roles: []Role{User, Moderator}}
	if !id.HasRole(User) {
		t.Error("HasRole(User) should be true")
	}
	if id.HasRole(Admin) {
		t.Error("HasRole(Admin) should be false")
	}
	if !id.HasAnyRole(Admin, Moderator) {
		t.Error("HasAnyRole(Admin, Moderator) should be true")
	}
	if id.HasAnyRole(Admin, Viewer) {
		t.Error("HasAnyRole(Admin, Viewer) should be false")
	}
}
