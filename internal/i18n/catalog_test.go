package i18n

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "zh-CN,zh;q=0.9,en;q=0.8", want: "zh", ok: true},
		{header: "en-US,en;q=0.9", want: "en", ok: true},
		{header: "fr-FR,de;q=0.5", ok: false},
		{header: "", ok: false},
		{header: ";;;", ok: false},
	}
	for _, tc := range tests {
		got, ok := Match(tc.header)
		if ok != tc.ok {
			t.Fatalf("Match(%q) ok = %v, want %v", tc.header, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("Match(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"zh":      "zh",
		"zh-Hans": "zh",
		"ZH-cn":   "zh",
		"en-GB":   "en",
		"id":      "en",
		"":        "en",
		"???":     "en",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestT(t *testing.T) {
	if got := T("zh", KeyTaskNotFound); got != "处理任务不存在或已过期" {
		t.Fatalf("zh taskNotFound = %q", got)
	}
	if got := T("fr", KeyTaskNotFound); got != "Processing task not found or expired" {
		t.Fatalf("fallback taskNotFound = %q", got)
	}
	if got := T("en", KeyFileTooLarge, 8); got != "Image must be smaller than 8 MB" {
		t.Fatalf("fileTooLarge = %q", got)
	}
	if got := T("en", "no.such.key"); got != "no.such.key" {
		t.Fatalf("unknown key = %q", got)
	}
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	for key := range messages["en"] {
		if _, ok := messages["zh"][key]; !ok {
			t.Fatalf("zh catalog missing %q", key)
		}
	}
	if len(messages["en"]) != len(messages["zh"]) {
		t.Fatalf("catalog sizes differ: en=%d zh=%d", len(messages["en"]), len(messages["zh"]))
	}
}

func TestForCountry(t *testing.T) {
	if ForCountry("cn") != "zh" || ForCountry("US") != "en" || ForCountry("") != "en" {
		t.Fatalf("unexpected country mapping")
	}
}
