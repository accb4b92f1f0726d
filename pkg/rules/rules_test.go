package rules

import (
	"strings"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestGeorgianPersonalID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{name: "valid luhn", value: "79927398713"},
		{name: "ten digits", value: "1234567890", wantErr: MsgPersonalIDLength},
		{name: "twelve digits", value: "123456789012", wantErr: MsgPersonalIDLength},
		{name: "letter", value: "2600101463A", wantErr: MsgPersonalIDDigits},
		{name: "bad checksum", value: "79927398710", wantErr: MsgPersonalIDChecksum},
		{name: "unicode digit", value: "7992739871٣", wantErr: MsgPersonalIDLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := GeorgianPersonalID(tt.value)
			if tt.wantErr == "" {
				if !res.IsValid {
					t.Errorf("expected valid, got %q", res.Error)
				}
				return
			}
			if res.IsValid {
				t.Fatal("expected invalid")
			}
			if res.Error != tt.wantErr {
				t.Errorf("error = %q, want %q", res.Error, tt.wantErr)
			}
		})
	}
}

func TestLuhnValid(t *testing.T) {
	if !LuhnValid("4111111111111111") {
		t.Error("expected known card number to pass")
	}
	if LuhnValid("") || LuhnValid("12a4") {
		t.Error("empty and non-digit input must fail")
	}
}

func TestEmail(t *testing.T) {
	valid := []string{"user@example.com", "user+tag@domain.co.uk", "first.last@sub.example.org", "  padded@example.com  "}
	invalid := []string{"user@", "userexample.com", "user @example.com", "user@example", "user@example.c", ""}

	for _, v := range valid {
		if res := Email(v); !res.IsValid {
			t.Errorf("Email(%q) should be valid", v)
		}
	}
	for _, v := range invalid {
		res := Email(v)
		if res.IsValid {
			t.Errorf("Email(%q) should be invalid", v)
		} else if res.Error != MsgEmail {
			t.Errorf("Email(%q) error = %q", v, res.Error)
		}
	}
}

func TestPhone(t *testing.T) {
	valid := []string{"+995555123456", "+12", " +14155552671 "}
	invalid := []string{"995555123456", "+0123", "+1234567890123456", "+1-415-555", ""}

	for _, v := range valid {
		if res := Phone(v); !res.IsValid {
			t.Errorf("Phone(%q) should be valid", v)
		}
	}
	for _, v := range invalid {
		res := Phone(v)
		if res.IsValid {
			t.Errorf("Phone(%q) should be invalid", v)
		} else if !strings.Contains(res.Error, "E.164 format") {
			t.Errorf("Phone(%q) error %q should mention E.164 format", v, res.Error)
		}
	}
}

func TestURL(t *testing.T) {
	tests := []struct {
		value   string
		wantErr string
	}{
		{value: "https://example.com/path?q=1"},
		{value: "http://localhost:8080"},
		{value: "ftp://example.com", wantErr: MsgURLScheme},
		{value: "mailto:user@example.com", wantErr: MsgURLScheme},
		{value: "example.com", wantErr: MsgURLFormat},
		{value: "http://", wantErr: MsgURLFormat},
		{value: "://bad", wantErr: MsgURLFormat},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			res := URL(tt.value)
			if tt.wantErr == "" {
				if !res.IsValid {
					t.Errorf("expected valid, got %q", res.Error)
				}
				return
			}
			if res.Error != tt.wantErr {
				t.Errorf("error = %q, want %q", res.Error, tt.wantErr)
			}
		})
	}
}

func TestDateRange(t *testing.T) {
	day := func(years, days int) string {
		return fixedNow.AddDate(years, 0, days).Format("2006-01-02")
	}

	tests := []struct {
		name    string
		value   string
		opts    DateRangeOptions
		wantErr string
	}{
		{name: "today", value: day(0, 0), opts: DefaultDateRange()},
		{name: "garbage", value: "15/10/2026", opts: DefaultDateRange(), wantErr: MsgDateFormat},
		{name: "tomorrow", value: day(0, 1), opts: DefaultDateRange(), wantErr: MsgDateFuture},
		{name: "future allowed", value: day(1, 0), opts: DateRangeOptions{AllowFuture: true, MaxAgeYears: 120}},
		{name: "just over max age", value: day(-120, -1), opts: DefaultDateRange(), wantErr: "Date cannot be more than 120 years ago"},
		{name: "just under max age", value: day(-120, 1), opts: DefaultDateRange()},
		{name: "custom age", value: day(-19, 0), opts: DateRangeOptions{MaxAgeYears: 18}, wantErr: "Date cannot be more than 18 years ago"},
		{name: "date-time input", value: "2000-01-02T10:00:00Z", opts: DefaultDateRange()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := DateRange(tt.value, fixedNow, tt.opts)
			if tt.wantErr == "" {
				if !res.IsValid {
					t.Errorf("expected valid, got %q", res.Error)
				}
				return
			}
			if res.Error != tt.wantErr {
				t.Errorf("error = %q, want %q", res.Error, tt.wantErr)
			}
		})
	}
}

func TestDateRangeUsesClockZone(t *testing.T) {
	tbilisi := time.FixedZone("GET", 4*60*60)
	bogota := time.FixedZone("COT", -5*60*60)

	tests := []struct {
		name    string
		value   string
		now     time.Time
		wantErr string
	}{
		{name: "today just after local midnight", value: "2026-10-15", now: time.Date(2026, 10, 15, 2, 0, 0, 0, tbilisi)},
		{name: "tomorrow late in the local day", value: "2026-10-16", now: time.Date(2026, 10, 15, 21, 0, 0, 0, bogota), wantErr: MsgDateFuture},
		{name: "today late in the local day", value: "2026-10-15", now: time.Date(2026, 10, 15, 21, 0, 0, 0, bogota)},
		{name: "offset date-time on the local day", value: "2026-10-14T23:30:00Z", now: time.Date(2026, 10, 15, 8, 0, 0, 0, tbilisi)},
		{name: "offset date-time on the next local day", value: "2026-10-15T21:00:00Z", now: time.Date(2026, 10, 15, 23, 0, 0, 0, tbilisi), wantErr: MsgDateFuture},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := DateRange(tt.value, tt.now, DefaultDateRange())
			if tt.wantErr == "" {
				if !res.IsValid {
					t.Errorf("expected valid, got %q", res.Error)
				}
				return
			}
			if res.Error != tt.wantErr {
				t.Errorf("error = %q, want %q", res.Error, tt.wantErr)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := New(fixedClock)

	for _, name := range []string{"georgian-id", "email", "phone", "url", "past-date"} {
		if _, ok := r.Lookup(name); !ok {
			t.Errorf("built-in %q missing", name)
		}
	}

	pastDate, _ := r.Lookup("past-date")
	if res := pastDate("2027-01-01"); res.Error != MsgDateFuture {
		t.Errorf("past-date should use the injected clock, got %+v", res)
	}

	r.Register("zip", func(v string) Result {
		if len(v) == 4 {
			return OK
		}
		return Fail("bad zip")
	})
	zip, ok := r.Lookup("zip")
	if !ok || !zip("0179").IsValid {
		t.Error("registered validator not usable")
	}
	r.Register("zip", nil)
	if _, ok := r.Lookup("zip"); ok {
		t.Error("registering nil should remove the validator")
	}

	other := New(fixedClock)
	if _, ok := other.Lookup("zip"); ok {
		t.Error("registries must not share state")
	}
}
