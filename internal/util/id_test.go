package util

import "testing"

func TestGenerateIDIsID(t *testing.T) {
	id := GenerateID()
	if !IsID(id) {
		t.Errorf("generated id %q does not parse", id)
	}
	if id == GenerateID() {
		t.Error("ids should be unique")
	}
	for _, s := range []string{"", "missing", "123"} {
		if IsID(s) {
			t.Errorf("IsID(%q) = true", s)
		}
	}
}
