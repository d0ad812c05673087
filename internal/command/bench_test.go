package command

import "testing"

func BenchmarkParse(b *testing.B) {
	lines := []string{
		"play 3",
		"cli.vol(200)",
		`write log.txt "hello world" 'second line'`,
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, l := range lines {
			Parse(l) //nolint:errcheck
		}
	}
}
