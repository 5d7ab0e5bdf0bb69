package lexical

import (
	"math"
	"testing"
)

var corpus = []string{
	"La inflación golpea la economía y el dólar sube frente al peso.",
	"El banco central sube las tasas para frenar la inflación.",
	"La cumbre del G20 en Brasil reúne a los presidentes.",
	"Lula recibe a los líderes del G20 en Río de Janeiro.",
	"El Congreso debate el presupuesto nacional y el gasto fiscal.",
	"Los diputados aprueban la ley de presupuesto en el Congreso.",
	"Las hormigas voladoras aparecen con el calor y la lluvia.",
	"El pronóstico anuncia lluvia y temperaturas altas en la ciudad.",
}

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := NewSpanishAnalyzer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return a
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}
