package studio

import "testing"

func ptr[T any](v T) *T { return &v }

func TestMinutesToSeconds(t *testing.T) {
	tests := []struct {
		name string
		in   *int
		want *int
	}{
		{"nil", nil, nil},
		{"zero means unlimited", ptr(0), nil},
		{"negative", ptr(-5), nil},
		{"sixty minutes", ptr(60), ptr(3600)},
		{"one minute", ptr(1), ptr(60)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MinutesToSeconds(tt.in)
			if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
				t.Fatalf("MinutesToSeconds(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLimitInputMinutes(t *testing.T) {
	cases := map[string]*int{
		"":   nil,
		"60": ptr(3600),
		"1":  ptr(119),
	}
	for want, in := range cases {
		if got := LimitInputMinutes(in); got != want {
			t.Fatalf("LimitInputMinutes(%v) = %q, want %q", in, got, want)
		}
	}
	if got := LimitInputMinutes(ptr(0)); got != "" {
		t.Fatalf("expected zero limit to render empty, got %q", got)
	}
}

func TestFormatters(t *testing.T) {
	if got := FormatUsage(nil); got != "N/A" {
		t.Fatalf("FormatUsage(nil) = %q", got)
	}
	if got := FormatUsage(ptr(125)); got != "2m 05s" {
		t.Fatalf("FormatUsage(125) = %q", got)
	}
	if got := FormatDuration(ptr(61.9)); got != "1:01" {
		t.Fatalf("FormatDuration(61.9) = %q", got)
	}
	if got := FormatDuration(nil); got != "-" {
		t.Fatalf("FormatDuration(nil) = %q", got)
	}
	if got := UsagePercent(ptr(1800), ptr(3600)); got != 50 {
		t.Fatalf("UsagePercent = %v", got)
	}
	if got := UsagePercent(ptr(7200), ptr(3600)); got != 100 {
		t.Fatalf("expected cap at 100, got %v", got)
	}
	if got := UsagePercent(nil, ptr(3600)); got != 0 {
		t.Fatalf("expected 0 for missing usage, got %v", got)
	}
}

func TestNormalizeMonth(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"", "", false},
		{"2024-03", "03.2024", false},
		{"11.2023", "11.2023", false},
		{"2024-13", "", true},
		{"march", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeMonth(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("NormalizeMonth(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestCompletedTime(t *testing.T) {
	for _, raw := range []string{"2024-03-01T10:00:00Z", "2024-03-01T10:00:00", "2024-03-01T10:00:00.123456"} {
		v := VideoDetail{CompletedAt: ptr(raw)}
		ts, ok := v.CompletedTime()
		if !ok || ts.Hour() != 10 {
			t.Fatalf("CompletedTime(%q) = %v, %v", raw, ts, ok)
		}
	}
	if _, ok := (VideoDetail{}).CompletedTime(); ok {
		t.Fatal("expected missing completed_at to be absent")
	}
}
