package correlator

import "testing"

func TestTitleFingerprint_StripsVolatileTokens(t *testing.T) {
	cases := []struct {
		name string
		a, b string
	}{
		{
			name: "timestamp differs",
			a:    "API 5xx spike at 2026-07-30T10:00:00Z",
			b:    "API 5xx spike at 2026-07-30T10:05:32Z",
		},
		{
			name: "request uuid differs",
			a:    "Pod crash loop for request 123e4567-e89b-12d3-a456-426614174000",
			b:    "Pod crash loop for request 00000000-0000-0000-0000-000000000000",
		},
		{
			name: "ip address differs",
			a:    "Connection refused from 10.0.0.5",
			b:    "Connection refused from 10.0.0.77",
		},
		{
			name: "whitespace and case differ",
			a:    "  Disk  Usage  High  ",
			b:    "disk usage high",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fa, fb := TitleFingerprint(c.a), TitleFingerprint(c.b)
			if fa != fb {
				t.Errorf("fingerprints differ: %q vs %q (from %q / %q)", fa, fb, c.a, c.b)
			}
		})
	}
}

func TestTitleFingerprint_DistinctTitlesStayDistinct(t *testing.T) {
	fa := TitleFingerprint("API 5xx spike")
	fb := TitleFingerprint("Database connection pool exhausted")
	if fa == fb {
		t.Errorf("expected distinct fingerprints, both were %q", fa)
	}
}
