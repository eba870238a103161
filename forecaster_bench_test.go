package forecaster

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/pkg/profile"
)

func BenchmarkForecastStandard(b *testing.B) {
	rows := bikeRows("site-1", 365, 14, 7)

	b.ReportAllocs()
	for b.Loop() {
		f, err := New(NewStandardOptions())
		if err != nil {
			b.Fatal(err)
		}
		if _, err := f.Forecast(rows); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkForecastARMA2(b *testing.B) {
	rows := bikeRows("site-1", 365, 14, 7)

	b.ReportAllocs()
	for b.Loop() {
		f, err := New(NewARMA2Options())
		if err != nil {
			b.Fatal(err)
		}
		if _, err := f.Forecast(rows); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkForecastSites(b *testing.B) {
	var rows []Observation
	for i, site := range []string{"a", "b", "c", "d"} {
		rows = append(rows, bikeRows(site, 365, 14, uint64(i+1))...)
	}

	b.ReportAllocs()
	for b.Loop() {
		if _, err := ForecastSites(rows, nil, 0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkModelMarshal(b *testing.B) {
	f, err := New(nil)
	if err != nil {
		b.Fatal(err)
	}
	if _, err := f.Forecast(bikeRows("site-1", 365, 14, 7)); err != nil {
		b.Fatal(err)
	}
	m, err := f.Model()
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	for b.Loop() {
		if _, err := json.Marshal(m); err != nil {
			b.Fatal(err)
		}
	}
}

var benchSeriesRes *SeriesResult

func BenchmarkForecastSeriesProfile(b *testing.B) {
	counts := make([]float64, 0, 365)
	for _, r := range bikeRows("site-1", 365, 0, 7) {
		counts = append(counts, float64(r.Count))
	}
	f, err := New(nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	for b.Loop() {
		benchSeriesRes, err = f.ForecastSeries(counts)
		if err != nil {
			b.Fatal(err)
		}
	}
}
