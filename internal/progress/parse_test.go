package progress

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		logs   string
		want   int
		wantOK bool
	}{
		{name: "empty", logs: ""},
		{name: "whitespace only", logs: "  \n\t \r\n"},
		{name: "no digits", logs: "Processing..."},
		{name: "ratio", logs: "16/100", want: 16, wantOK: true},
		{name: "ratio with spaces", logs: "step 46 / 100", want: 46, wantOK: true},
		{name: "rounded ratio", logs: "1/3", want: 33, wantOK: true},
		{name: "percentage", logs: " 46%|████▌     |", want: 46, wantOK: true},
		{name: "percentage clamped", logs: "104%", want: 100, wantOK: true},
		{name: "numerator over denominator", logs: "150/100", want: 100, wantOK: true},
		{name: "zero denominator defaults to 100", logs: "5/0", want: 5, wantOK: true},
		{name: "ansi wrapped ratio", logs: "\x1b[32m46/100\x1b[0m", want: 46, wantOK: true},
		{name: "ansi split ratio", logs: "\x1b[1m7\x1b[0m/\x1b[1m10\x1b[0m", want: 70, wantOK: true},
		{name: "newest line wins", logs: "10/100\n90/100\nProcessing", want: 90, wantOK: true},
		{name: "carriage return progress bar", logs: "loading model\r 12%|█\r 54%|█████\r", want: 54, wantOK: true},
		{name: "trailing incomplete line", logs: "20/100\n30/100\nstarting next ba", want: 30, wantOK: true},
		{name: "ratio beats percentage on same line", logs: "50% done 3/4", want: 75, wantOK: true},
		{name: "older match found past unmatched lines", logs: "3/10\nfoo\nbar\nbaz", want: 30, wantOK: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Parse(tc.logs)
			if ok != tc.wantOK {
				t.Fatalf("Parse(%q) ok = %v, want %v", tc.logs, ok, tc.wantOK)
			}
			if ok && got != tc.want {
				t.Fatalf("Parse(%q) = %d, want %d", tc.logs, got, tc.want)
			}
		})
	}
}

func TestParseRatioProperty(t *testing.T) {
	for n := 1; n <= 120; n += 7 {
		for k := 0; k <= n; k++ {
			logs := itoa(k) + "/" + itoa(n)
			got, ok := Parse(logs)
			if !ok {
				t.Fatalf("Parse(%q) found nothing", logs)
			}
			want := (200*k + n) / (2 * n)
			if got != want {
				t.Fatalf("Parse(%q) = %d, want %d", logs, got, want)
			}
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	return string(buf)
}
