package misc

import (
	"net/url"
	"testing"
)

func TestParseOAuthCallback(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want OAuthCallback
	}{
		{
			name: "code and state in query",
			raw:  "musicalarm://spotify-auth?code=abc&state=xyz",
			want: OAuthCallback{Code: "abc", State: "xyz"},
		},
		{
			name: "provider error",
			raw:  "musicalarm://spotify-auth?error=access_denied&state=xyz",
			want: OAuthCallback{State: "xyz", Error: "access_denied"},
		},
		{
			name: "fragment fallback",
			raw:  "http://127.0.0.1:8888/callback?state=xyz#code=frag",
			want: OAuthCallback{Code: "frag", State: "xyz"},
		},
		{
			name: "description promoted to error",
			raw:  "musicalarm://spotify-auth?error_description=denied",
			want: OAuthCallback{Error: "denied"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.raw)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			got := ParseOAuthCallback(u)
			if *got != tt.want {
				t.Fatalf("ParseOAuthCallback() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestGenerateRandomState(t *testing.T) {
	a, err := GenerateRandomState()
	if err != nil {
		t.Fatalf("GenerateRandomState() error = %v", err)
	}
	b, _ := GenerateRandomState()
	if len(a) != 32 {
		t.Fatalf("state length = %d, want 32", len(a))
	}
	if a == b {
		t.Fatal("expected distinct states")
	}
}
