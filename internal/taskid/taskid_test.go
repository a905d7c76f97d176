package taskid

import "testing"

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"507f1f77bcf86cd799439011":       "507f1f77bcf86cd799439011",
		":507f1f77bcf86cd799439011":      "507f1f77bcf86cd799439011",
		"/:507f1f77bcf86cd799439011/":    "507f1f77bcf86cd799439011",
		"  507f1f77bcf86cd799439011 \n":  "507f1f77bcf86cd799439011",
		" /507f1f77bcf86cd79943:9011/  ": "507f1f77bcf86cd799439011",
		"":                               "",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValid(t *testing.T) {
	valid := []string{"507f1f77bcf86cd799439011", "ABCDEF0123456789abcdef01"}
	invalid := []string{"", "abc", "507f1f77bcf86cd79943901", "507f1f77bcf86cd7994390111", "507f1f77bcf86cd79943901g", ":id"}

	for _, id := range valid {
		if !Valid(id) {
			t.Errorf("expected %q to be valid", id)
		}
	}
	for _, id := range invalid {
		if Valid(id) {
			t.Errorf("expected %q to be invalid", id)
		}
	}
}

func TestFromFields(t *testing.T) {
	cases := []struct {
		name string
		in   map[string]any
		want string
	}{
		{"_id first", map[string]any{"_id": "aaa", "id": "bbb"}, "aaa"},
		{"empty _id skipped", map[string]any{"_id": "", "id": "bbb"}, "bbb"},
		{"_idTask last", map[string]any{"_idTask": "/:ccc"}, "ccc"},
		{"nil skipped", map[string]any{"_id": nil, "id": "ddd"}, "ddd"},
		{"none", map[string]any{"title": "x"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FromFields(tc.in); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
