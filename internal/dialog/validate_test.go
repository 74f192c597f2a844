package dialog

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestParsePricePair(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    PricePair
		wantErr bool
	}{
		{name: "valid pair", input: "10/15", want: PricePair{WithoutPin: 10, WithPin: 15}},
		{name: "spaces around", input: "  10 / 15  ", want: PricePair{WithoutPin: 10, WithPin: 15}},
		{name: "boundaries", input: "1/10000", want: PricePair{WithoutPin: 1, WithPin: 10000}},
		{name: "zero rejected", input: "0/15", wantErr: true},
		{name: "above max rejected", input: "10/10001", wantErr: true},
		{name: "negative rejected", input: "-5/15", wantErr: true},
		{name: "not a number", input: "abc/15", wantErr: true},
		{name: "single value", input: "10", wantErr: true},
		{name: "three values", input: "10/15/20", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, verr := ParsePricePair(tt.input)
			if tt.wantErr {
				if verr == nil {
					t.Fatalf("ParsePricePair(%q) = %+v, want error", tt.input, got)
				}
				return
			}
			if verr != nil {
				t.Fatalf("ParsePricePair(%q) unexpected error: %s", tt.input, verr.Message)
			}
			if got != tt.want {
				t.Errorf("ParsePricePair(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParsePricePairProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		without := rapid.IntRange(PriceMin, PriceMax).Draw(rt, "without")
		with := rapid.IntRange(PriceMin, PriceMax).Draw(rt, "with")

		got, verr := ParsePricePair(fmt.Sprintf("%d/%d", without, with))
		if verr != nil {
			rt.Fatalf("valid pair rejected: %s", verr.Message)
		}
		if got.WithoutPin != without || got.WithPin != with {
			rt.Fatalf("pair mangled: got %+v", got)
		}
	})
}

func TestParsePriceList(t *testing.T) {
	valid := "1 - 10/15\n7 - 50/75\n14 - 90/140\n30 - 170/270"

	quad, verr := ParsePriceList(valid)
	if verr != nil {
		t.Fatalf("valid list rejected: %s", verr.Message)
	}
	want := [4]PricePair{{10, 15}, {50, 75}, {90, 140}, {170, 270}}
	if quad != want {
		t.Errorf("ParsePriceList = %+v, want %+v", quad, want)
	}

	rejected := []struct {
		name  string
		input string
	}{
		{"reordered days", "7 - 50/75\n1 - 10/15\n14 - 90/140\n30 - 170/270"},
		{"wrong day", "1 - 10/15\n7 - 50/75\n15 - 90/140\n30 - 170/270"},
		{"three lines", "1 - 10/15\n7 - 50/75\n14 - 90/140"},
		{"five lines", valid + "\n60 - 300/400"},
		{"bad pair in middle", "1 - 10/15\n7 - 50\n14 - 90/140\n30 - 170/270"},
		{"price out of range", "1 - 10/15\n7 - 50/75\n14 - 90/140\n30 - 170/10001"},
		{"missing separator", "1 10/15\n7 - 50/75\n14 - 90/140\n30 - 170/270"},
		{"empty", ""},
	}

	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			if quad, verr := ParsePriceList(tt.input); verr == nil {
				t.Errorf("ParsePriceList(%q) = %+v, want rejection", tt.input, quad)
			}
		})
	}
}

func TestParseWorkHours(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{name: "plain", input: "08:00-22:00", wantStart: "08:00", wantEnd: "22:00"},
		{name: "single digit hour", input: "8:00-22:00", wantStart: "08:00", wantEnd: "22:00"},
		{name: "minutes dropped", input: "08:30-22:45", wantStart: "08:00", wantEnd: "22:00"},
		{name: "midnight end as 24", input: "8:00-24:00", wantStart: "08:00", wantEnd: "00:00"},
		{name: "midnight end as 00", input: "8:00-00:00", wantStart: "08:00", wantEnd: "00:00"},
		{name: "full day", input: "00:00-24:00", wantStart: "00:00", wantEnd: "00:00"},
		{name: "start after end", input: "20:00-08:00", wantErr: true},
		{name: "start equals end", input: "10:00-10:00", wantErr: true},
		{name: "hour out of range", input: "25:00-26:00", wantErr: true},
		{name: "no dash", input: "08:00 22:00", wantErr: true},
		{name: "garbage", input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, verr := ParseWorkHours(tt.input)
			if tt.wantErr {
				if verr == nil {
					t.Fatalf("ParseWorkHours(%q) = %q-%q, want error", tt.input, start, end)
				}
				return
			}
			if verr != nil {
				t.Fatalf("ParseWorkHours(%q) unexpected error: %s", tt.input, verr.Message)
			}
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("ParseWorkHours(%q) = %q-%q, want %q-%q", tt.input, start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "30", want: 30},
		{input: "60", want: 60},
		{input: "300", want: 300},
		{input: "91", wantErr: true},
		{input: "330", wantErr: true},
		{input: "0", wantErr: true},
		{input: "-30", wantErr: true},
		{input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, verr := ParseInterval(tt.input)
			if tt.wantErr {
				if verr == nil {
					t.Fatalf("ParseInterval(%q) = %d, want error", tt.input, got)
				}
				return
			}
			if verr != nil {
				t.Fatalf("ParseInterval(%q) unexpected error: %s", tt.input, verr.Message)
			}
			if got != tt.want {
				t.Errorf("ParseInterval(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseIntervalProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		steps := rapid.IntRange(1, IntervalMax/IntervalStep).Draw(rt, "steps")
		interval := steps * IntervalStep

		got, verr := ParseInterval(fmt.Sprintf("%d", interval))
		if verr != nil {
			rt.Fatalf("valid interval %d rejected: %s", interval, verr.Message)
		}
		if got != interval {
			rt.Fatalf("interval mangled: got %d, want %d", got, interval)
		}
	})
}

func TestValidateButtonLabel(t *testing.T) {
	if _, verr := ValidateButtonLabel("Подписаться"); verr != nil {
		t.Errorf("valid label rejected: %s", verr.Message)
	}
	if _, verr := ValidateButtonLabel(strings.Repeat("ж", ButtonLabelMaxLen)); verr != nil {
		t.Errorf("label of max rune length rejected: %s", verr.Message)
	}
	if _, verr := ValidateButtonLabel(strings.Repeat("ж", ButtonLabelMaxLen+1)); verr == nil {
		t.Error("label above max rune length accepted")
	}
	if _, verr := ValidateButtonLabel("   "); verr == nil {
		t.Error("blank label accepted")
	}
}

func TestNormalizeButtonURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "username", input: "@mychannel", want: "https://t.me/mychannel"},
		{name: "bare host", input: "example.com", want: "https://example.com"},
		{name: "bare host with path", input: "t.me/mychannel", want: "https://t.me/mychannel"},
		{name: "already absolute", input: "https://example.com/page", want: "https://example.com/page"},
		{name: "not a url", input: "not a url", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, verr := NormalizeButtonURL(tt.input)
			if tt.wantErr {
				if verr == nil {
					t.Fatalf("NormalizeButtonURL(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if verr != nil {
				t.Fatalf("NormalizeButtonURL(%q) unexpected error: %s", tt.input, verr.Message)
			}
			if got != tt.want {
				t.Errorf("NormalizeButtonURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParsePostLink(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "plain link", input: "https://t.me/mychannel/123", want: 123},
		{name: "trailing slash", input: "https://t.me/mychannel/123/", want: 123},
		{name: "no message id", input: "https://t.me/mychannel/abc", wantErr: true},
		{name: "zero id", input: "https://t.me/mychannel/0", wantErr: true},
		{name: "no path", input: "mychannel", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, verr := ParsePostLink(tt.input)
			if tt.wantErr {
				if verr == nil {
					t.Fatalf("ParsePostLink(%q) = %d, want error", tt.input, got)
				}
				return
			}
			if verr != nil {
				t.Fatalf("ParsePostLink(%q) unexpected error: %s", tt.input, verr.Message)
			}
			if got != tt.want {
				t.Errorf("ParsePostLink(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestLooksLikePostLink(t *testing.T) {
	if !LooksLikePostLink("https://t.me/mychannel/123") {
		t.Error("t.me link not recognized")
	}
	if !LooksLikePostLink("t.me/mychannel/123") {
		t.Error("bare t.me link not recognized")
	}
	if LooksLikePostLink("обычный текст объявления") {
		t.Error("plain text recognized as post link")
	}
}
