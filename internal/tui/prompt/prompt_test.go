// ABOUTME: Tests for prompt form construction and validators
// ABOUTME: Forms are built but not run; validators are called directly

package prompt

import "testing"

func TestRequired(t *testing.T) {
	check := required("username")
	if err := check("  "); err == nil {
		t.Error("expected blank input to fail")
	}
	if err := check("reader"); err != nil {
		t.Errorf("expected input to pass, got %v", err)
	}
}

func TestValidateEmail(t *testing.T) {
	if err := validateEmail("reader@example.com"); err != nil {
		t.Errorf("expected valid email, got %v", err)
	}
	if err := validateEmail("reader"); err == nil {
		t.Error("expected invalid email to fail")
	}
}

func TestFormsBuild(t *testing.T) {
	if LoginForm(&Login{Username: "reader"}) == nil {
		t.Error("expected login form")
	}
	if RegisterForm(&Register{}) == nil {
		t.Error("expected register form")
	}
}
