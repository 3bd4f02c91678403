package icons

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want bool
	}{
		{"nothing set", map[string]string{}, false},
		{"forced on", map[string]string{"SHELF_NERD_FONTS": "true"}, true},
		{"forced off wins over terminal", map[string]string{"SHELF_NERD_FONTS": "0", "TERM_PROGRAM": "WezTerm"}, false},
		{"known program", map[string]string{"TERM_PROGRAM": "iTerm.app"}, true},
		{"known TERM", map[string]string{"TERM": "xterm-kitty"}, true},
		{"plain xterm", map[string]string{"TERM": "xterm-256color"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detect(func(k string) string { return tt.env[k] })
			if got != tt.want {
				t.Errorf("detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIconHasBothVariants(t *testing.T) {
	for _, i := range []Icon{App, Book, Category, User, Coins, CheckOK, Warning, Critical} {
		if i.NerdFont == "" || i.Fallback == "" {
			t.Errorf("icon %+v is missing a variant", i)
		}
	}
}
