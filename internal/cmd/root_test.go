package cmd

import (
	"os"
	"testing"
)

func TestResolveProgramExplicitForm(t *testing.T) {
	prog, args := resolveProgram([]string{"--", "zsh", "-l"})
	if prog != "zsh" || len(args) != 1 || args[0] != "-l" {
		t.Fatalf("resolveProgram() = (%q, %v), want (\"zsh\", [\"-l\"])", prog, args)
	}
}

func TestResolveProgramUsesSHELLEnv(t *testing.T) {
	t.Setenv("SHELL", "/bin/zsh")
	os.Args = []string{"/usr/local/bin/lls"}
	prog, _ := resolveProgram(nil)
	if prog != "/bin/zsh" {
		t.Fatalf("resolveProgram() = %q, want /bin/zsh", prog)
	}
}

func TestResolveProgramFallsBackWhenSHELLPointsAtSelf(t *testing.T) {
	t.Setenv("SHELL", "/usr/local/bin/lls")
	t.Setenv("LLS_FALLBACK_SHELL", "fish")
	os.Args = []string{"lls"}
	prog, _ := resolveProgram(nil)
	if prog != "fish" {
		t.Fatalf("resolveProgram() = %q, want fish", prog)
	}
}

func TestResolveProgramDefaultsToBash(t *testing.T) {
	t.Setenv("SHELL", "")
	t.Setenv("LLS_FALLBACK_SHELL", "")
	os.Args = []string{"lls"}
	prog, _ := resolveProgram(nil)
	if prog != "bash" {
		t.Fatalf("resolveProgram() = %q, want bash", prog)
	}
}
