package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProjectIDFromCredentials(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		return p
	}

	good := write("good.json", `{"type":"service_account","project_id":"rfid-bus"}`)
	id, err := projectIDFromCredentials(good)
	if err != nil {
		t.Fatalf("projectIDFromCredentials() error = %v", err)
	}
	if id != "rfid-bus" {
		t.Errorf("project id = %q, want rfid-bus", id)
	}
	if got := DefaultDatabaseURL(id); got != "https://rfid-bus-default-rtdb.firebaseio.com" {
		t.Errorf("DefaultDatabaseURL() = %q", got)
	}

	for _, p := range []string{
		write("empty.json", `{"type":"service_account"}`),
		write("broken.json", `{`),
		filepath.Join(dir, "missing.json"),
	} {
		if _, err := projectIDFromCredentials(p); err == nil {
			t.Errorf("projectIDFromCredentials(%s) expected error", filepath.Base(p))
		}
	}
}
