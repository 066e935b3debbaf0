package trackingid

import "testing"

func TestExtract(t *testing.T) {
	req6 := Config{Prefix: "REQ", DateDigits: 6}

	tests := []struct {
		name   string
		text   string
		cfg    Config
		want   string
		wantOK bool
	}{
		{
			name:   "query parameter wins over free token",
			text:   "see https://portal/track?id=ALF-20240101-XYZ999 NOTICE42",
			cfg:    DefaultConfig(),
			want:   "ALF-20240101-XYZ999",
			wantOK: true,
		},
		{
			name:   "fragment id is upper-cased",
			text:   "https://x/#id=alf-20250101-ab12cd",
			cfg:    DefaultConfig(),
			want:   "ALF-20250101-AB12CD",
			wantOK: true,
		},
		{
			name:   "strict default pattern",
			text:   "Ticket number: alf-20250202-zz99 issued",
			cfg:    DefaultConfig(),
			want:   "ALF-20250202-ZZ99",
			wantOK: true,
		},
		{
			name:   "strict pattern with custom prefix and six digits",
			text:   "REQ-240101-AB12",
			cfg:    req6,
			want:   "REQ-240101-AB12",
			wantOK: true,
		},
		{
			name:   "custom text under default config falls to generic",
			text:   "ref XX REQ-240101-AB12",
			cfg:    DefaultConfig(),
			want:   "REQ-240101-AB12",
			wantOK: true,
		},
		{
			name:   "whitespace runs are collapsed before matching",
			text:   "ALF-20250101-\n\n  AB12 and ALF-20250101-CD34",
			cfg:    DefaultConfig(),
			want:   "ALF-20250101-CD34",
			wantOK: true,
		},
		{
			name:   "token rule prefers configured prefix",
			text:   "codes: X1Y2Z3W4, ALF-ABC123",
			cfg:    DefaultConfig(),
			want:   "ALF-ABC123",
			wantOK: true,
		},
		{
			name:   "token rule falls back to first survivor",
			text:   "order NOTICE42 and TOKEN77",
			cfg:    DefaultConfig(),
			want:   "NOTICE42",
			wantOK: true,
		},
		{
			name:   "tokens without digits are dropped",
			text:   "nothing useful here at all",
			cfg:    DefaultConfig(),
			wantOK: false,
		},
		{
			name:   "empty text",
			text:   "   ",
			cfg:    DefaultConfig(),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.text, tt.cfg)
			if ok != tt.wantOK {
				t.Fatalf("Extract(%q) ok = %v, want %v (got %q)", tt.text, ok, tt.wantOK, got)
			}
			if got != tt.want {
				t.Fatalf("Extract(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestStrictRuleDependsOnConfig(t *testing.T) {
	text := "REQ-240101-AB12"
	if !strictPattern(Config{Prefix: "REQ", DateDigits: 6}.Normalized()).MatchString(text) {
		t.Fatalf("expected strict REQ/6 pattern to match %q", text)
	}
	if strictPattern(DefaultConfig()).MatchString(text) {
		t.Fatalf("default strict pattern should not match %q", text)
	}
}

func TestConfigNormalized(t *testing.T) {
	got := Config{Prefix: " req ", DateDigits: 7}.Normalized()
	if got.Prefix != "REQ" || got.DateDigits != 8 {
		t.Fatalf("unexpected normalized config: %+v", got)
	}
	if got := (Config{}).Normalized(); got != DefaultConfig() {
		t.Fatalf("zero config should normalize to default, got %+v", got)
	}
}
