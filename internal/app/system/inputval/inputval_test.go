package inputval

import "testing"

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"alice@example.com", true},
		{"alice.smith@example.com", true},
		{"alice+gamerie@example.com", true},
		{"bob@eu.example.com", true},
		{"pro99@example.co.uk", true},
		{"dev@localhost", true},

		{"", false},
		{"   ", false},
		{"alice", false},
		{"alice@", false},
		{"@example.com", false},
		{".alice@example.com", false},
		{"alice.@example.com", false},
		{"alice..smith@example.com", false},
		{"alice@.example.com", false},
		{"alice@example..com", false},
		{"Alice <alice@example.com>", false},
		{"alice @example.com", false},
		{"alice@exam ple.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsValidEmail(tt.email); got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestIsValidHTTPURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://clips.example.com/v/123", true},
		{"http://localhost:8080", true},
		{"  https://example.com  ", true},

		{"", false},
		{"ftp://example.com", false},
		{"example.com", false},
		{"//example.com", false},
		{"javascript:alert(1)", false},
		{"not a url", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := IsValidHTTPURL(tt.url); got != tt.want {
				t.Errorf("IsValidHTTPURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	type gameInput struct {
		Name  string  `validate:"required,max=10" label:"Game name"`
		Hours float64 `validate:"gte=0" label:"Hours played"`
		Email string  `validate:"omitempty,email" label:"Contact"`
	}

	tests := []struct {
		name      string
		input     gameInput
		wantFirst string
	}{
		{"valid", gameInput{Name: "Chess", Hours: 0}, ""},
		{"missing name", gameInput{Hours: 1}, "Game name is required."},
		{"name too long", gameInput{Name: "Dwarf Fortress", Hours: 1}, "Game name must be at most 10 characters."},
		{"negative hours", gameInput{Name: "Chess", Hours: -1}, "Hours played must be at least 0."},
		{"bad email", gameInput{Name: "Chess", Email: "nope"}, "A valid email address is required."},
		{"several", gameInput{Hours: -1}, "Game name is required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.input)
			if res.HasErrors() != (tt.wantFirst != "") {
				t.Fatalf("HasErrors = %v, errors %v", res.HasErrors(), res.Errors)
			}
			if res.First() != tt.wantFirst {
				t.Errorf("First() = %q, want %q", res.First(), tt.wantFirst)
			}
		})
	}
}

func TestResult(t *testing.T) {
	var empty Result
	if empty.First() != "" || empty.All() != "" {
		t.Error("empty result should have no messages")
	}

	r := Result{Errors: []FieldError{{Message: "Error 1"}, {Message: "Error 2"}}}
	if r.First() != "Error 1" {
		t.Errorf("First() = %q", r.First())
	}
	if r.All() != "Error 1; Error 2" {
		t.Errorf("All() = %q", r.All())
	}
}

func TestValidate_CustomRules(t *testing.T) {
	type input struct {
		Skill string `validate:"required,skilllevel" label:"Skill level"`
		Role  string `validate:"omitempty,memberrole" label:"Team role"`
		Proof string `validate:"omitempty,httpurl" label:"Proof"`
		Self  string `validate:"omitempty,userrole" label:"Role"`
	}

	tests := []struct {
		name    string
		in      input
		wantErr bool
	}{
		{"valid", input{Skill: "pro", Role: "captain", Proof: "https://example.com", Self: "coach"}, false},
		{"bad skill", input{Skill: "godlike"}, true},
		{"bad team role", input{Skill: "beginner", Role: "mascot"}, true},
		{"bad proof", input{Skill: "beginner", Proof: "ftp://x"}, true},
		{"bad user role", input{Skill: "beginner", Self: "wizard"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.in).HasErrors(); got != tt.wantErr {
				t.Errorf("HasErrors = %v, want %v", got, tt.wantErr)
			}
		})
	}
}
