package skin

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfig(t *testing.T) {
	input := strings.Join([]string{
		"# osu! configuration for user",
		"",
		"   ",
		"VolumeUniversal = 80",
		"Skin = Mono ",
		"no equals sign here",
		"#Skin = Commented",
		"Path=C:\\a=b",
		"Skin = Later\r",
	}, "\n")

	entries, err := ParseConfig(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	want := []Entry{
		{Key: "VolumeUniversal", Value: "80", Line: 4},
		{Key: "Skin", Value: "Mono", Line: 5},
		{Key: "Path", Value: `C:\a=b`, Line: 8},
		{Key: "Skin", Value: "Later", Line: 9},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(entries), len(want), entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}

	if v, ok := entries.Lookup("Skin"); !ok || v != "Mono" {
		t.Errorf("Lookup(Skin) = %q, %v; first occurrence should win", v, ok)
	}
	if _, ok := entries.Lookup("Missing"); ok {
		t.Error("Lookup of a missing key should report false")
	}
}

func writeConfig(t *testing.T, installDir, user, content string) {
	t.Helper()
	if err := os.WriteFile(ConfigPath(installDir, user), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestResolve(t *testing.T) {
	install := t.TempDir()
	r := NewResolver("Skins")

	tests := []struct {
		name    string
		content string
		want    Reference
	}{
		{
			name:    "custom skin",
			content: "Skin=Mono\n",
			want:    Reference{State: Custom, Name: "Mono", Dir: filepath.Join(install, "Skins", "Mono")},
		},
		{
			name:    "custom skin with spaces",
			content: "# c\nSkin = My Skin  \n",
			want:    Reference{State: Custom, Name: "My Skin", Dir: filepath.Join(install, "Skins", "My Skin")},
		},
		{
			name:    "default skin",
			content: "Skin=default\n",
			want:    Reference{State: Default, Name: "default"},
		},
		{
			name:    "first match wins",
			content: "Skin=default\nSkin=Mono\n",
			want:    Reference{State: Default, Name: "default"},
		},
		{
			name:    "no skin line",
			content: "VolumeUniversal=80\n#Skin=Mono\n",
			want:    Reference{State: Unresolved},
		},
		{
			name:    "empty file",
			content: "",
			want:    Reference{State: Unresolved},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeConfig(t, install, "player", tt.content)

			got, err := r.Resolve(install, "player")
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveMissingConfig(t *testing.T) {
	_, err := NewResolver("Skins").Resolve(t.TempDir(), "nobody")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestResolveRejectsEscapingSkin(t *testing.T) {
	install := t.TempDir()
	r := NewResolver("Skins")

	for _, name := range []string{"..", "../..", "../outside"} {
		writeConfig(t, install, "player", "Skin="+name+"\n")
		if _, err := r.Resolve(install, "player"); !errors.Is(err, ErrInvalidSkin) {
			t.Errorf("Skin=%s: expected ErrInvalidSkin, got %v", name, err)
		}
	}
}

func TestStripDomain(t *testing.T) {
	tests := map[string]string{
		`DESKTOP-1\player`: "player",
		"player":           "player",
		`A\B\c`:            "c",
	}
	for in, want := range tests {
		if got := StripDomain(in); got != want {
			t.Errorf("StripDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStateString(t *testing.T) {
	if Unresolved.String() != "unresolved" || Default.String() != "default" || Custom.String() != "custom" {
		t.Error("unexpected state names")
	}
}
