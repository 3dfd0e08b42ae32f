package storekey

import "testing"

func TestBuild(t *testing.T) {
	cases := []struct {
		ns, pfx, key, want string
	}{
		{"memostore", "fib", "42", "memostore:fib:42"},
		{"", "", "k", "::k"},
		{"ns", "", "k", "ns::k"},
	}
	for _, c := range cases {
		if got := Build(c.ns, c.pfx, c.key); got != c.want {
			t.Errorf("Build(%q, %q, %q) = %q, want %q", c.ns, c.pfx, c.key, got, c.want)
		}
	}
}

// Separators inside namespace or prefix must not let distinct pairs produce
// the same row key.
func TestBuildSeparatesAmbiguousParts(t *testing.T) {
	a := Build("a", "b:c", "k")
	b := Build("a:b", "c", "k")
	if a == b {
		t.Fatalf("distinct namespace/prefix pairs collided on %q", a)
	}

	if got, want := Build("a", "b:c", "k"), `a:b\:c:k`; got != want {
		t.Fatalf("Build = %q, want %q", got, want)
	}
	if got, want := Build(`a\`, "b", "k"), `a\\:b:k`; got != want {
		t.Fatalf("Build = %q, want %q", got, want)
	}
}
