package similarity

import "testing"

func TestResourceIDNormalization(t *testing.T) {
	n := NewNormalizer(nil)
	cases := map[string]string{
		"com.app:id/btnSubmitOrder": "submit order",
		"":                          "",
		"id/ivUserAvatar":           "user avatar",
	}
	for in, want := range cases {
		if got := n.ResourceID(in); got != want {
			t.Errorf("ResourceID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResourceIDBrandPrefix(t *testing.T) {
	n := NewNormalizer([]string{"acme"})
	if got := n.ResourceID("com.app:id/acmeSubmitButton"); got != "submit" {
		t.Errorf("ResourceID with brand prefix = %q, want %q", got, "submit")
	}
}

func TestActivityNameNormalization(t *testing.T) {
	n := NewNormalizer(nil)
	cases := map[string]string{
		"com.example.app.UserProfileActivity": "user profile",
		"":                                    "",
		"com.example.app.SettingsActivity":    "settings",
	}
	for in, want := range cases {
		if got := n.ActivityName(in); got != want {
			t.Errorf("ActivityName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitCamelCase(t *testing.T) {
	got := splitCamelCase("fooBarBAZQux")
	want := []string{"foo", "Bar", "BAZ", "Qux"}
	if len(got) != len(want) {
		t.Fatalf("splitCamelCase() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("part %d = %q, want %q", i, got[i], want[i])
		}
	}
}
