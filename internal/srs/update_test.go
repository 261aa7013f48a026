package srs

import (
	"math"
	"testing"
)

func TestNextOnSuccess(t *testing.T) {
	p := DefaultParams()

	t.Run("increases stability", func(t *testing.T) {
		s, _ := p.nextOnSuccess(10, 5, 0.9)
		if s <= 10 {
			t.Errorf("Expected stability to increase on a correct answer, but got %v", s)
		}
	})

	t.Run("eases difficulty toward the floor", func(t *testing.T) {
		_, d := p.nextOnSuccess(10, 5, 0.9)
		if d >= 5 {
			t.Errorf("Expected difficulty to decrease on a correct answer, but got %v", d)
		}
		_, d = p.nextOnSuccess(10, DifficultyMin, 0.9)
		if d < DifficultyMin {
			t.Errorf("Expected difficulty to be floored at %v, but got %v", DifficultyMin, d)
		}
	})

	t.Run("gains more the closer the card was to forgotten", func(t *testing.T) {
		prev := math.Inf(1)
		for _, r := range []float64{0.3, 0.5, 0.7, 0.9, 0.99} {
			s, _ := p.nextOnSuccess(10, 5, r)
			if s >= prev {
				t.Fatalf("Expected stability gain to shrink as retrievability rises, but R=%v gave %v after %v", r, s, prev)
			}
			prev = s
		}
	})

	t.Run("gains less for harder cards", func(t *testing.T) {
		prev := math.Inf(1)
		for _, d := range []float64{1, 3, 5, 7, 10} {
			s, _ := p.nextOnSuccess(10, d, 0.9)
			if s >= prev {
				t.Fatalf("Expected stability gain to shrink as difficulty rises, but D=%v gave %v after %v", d, s, prev)
			}
			prev = s
		}
	})
}

func TestNextOnFailure(t *testing.T) {
	p := DefaultParams()

	t.Run("reduces stability without resetting it", func(t *testing.T) {
		s, _ := p.nextOnFailure(10, 5, 0.9)
		if s >= 10 {
			t.Errorf("Expected stability to decrease on a lapse, but got %v", s)
		}
		if s <= StabilityFloor {
			t.Errorf("Expected a mature card to keep some stability after a lapse, but got %v", s)
		}
	})

	t.Run("never increases stability", func(t *testing.T) {
		for _, stability := range []float64{0.1, 0.5, 1, 10, 1000} {
			for _, r := range []float64{0.1, 0.5, 0.9, 1.0} {
				s, _ := p.nextOnFailure(stability, 5, r)
				if s > stability {
					t.Errorf("Expected no stability gain on a lapse for S=%v R=%v, but got %v", stability, r, s)
				}
			}
		}
	})

	t.Run("hardens difficulty up to the cap", func(t *testing.T) {
		_, d := p.nextOnFailure(10, 5, 0.9)
		if d <= 5 {
			t.Errorf("Expected difficulty to increase on a lapse, but got %v", d)
		}
		_, d = p.nextOnFailure(10, DifficultyMax, 0.9)
		if d > DifficultyMax {
			t.Errorf("Expected difficulty to be capped at %v, but got %v", DifficultyMax, d)
		}
	})

	t.Run("repeated lapses never break the stability floor", func(t *testing.T) {
		stability, difficulty := 10.0, 5.0
		for i := 0; i < 200; i++ {
			r := Retrievability(stability, 1)
			stability, difficulty = p.nextOnFailure(stability, difficulty, r)
			if stability < StabilityFloor || math.IsNaN(stability) {
				t.Fatalf("Expected stability to stay at or above the floor, but lapse %d gave %v", i, stability)
			}
			if difficulty < DifficultyMin || difficulty > DifficultyMax || math.IsNaN(difficulty) {
				t.Fatalf("Expected difficulty to stay in range, but lapse %d gave %v", i, difficulty)
			}
		}
	})
}

func TestNextStateClampsAdversarialInputs(t *testing.T) {
	p := DefaultParams()
	for _, c := range []struct {
		name                  string
		stability, difficulty float64
	}{
		{"negative stability", -5, 5},
		{"zero stability", 0, 5},
		{"NaN stability", math.NaN(), 5},
		{"difficulty below range", 10, -3},
		{"difficulty above range", 10, 400},
		{"NaN difficulty", 10, math.NaN()},
	} {
		t.Run(c.name, func(t *testing.T) {
			for _, correct := range []bool{true, false} {
				s, d := p.nextState(c.stability, c.difficulty, 0.9, correct)
				if s < StabilityFloor || math.IsNaN(s) {
					t.Errorf("Expected clamped stability, but got %v (correct=%v)", s, correct)
				}
				if d < DifficultyMin || d > DifficultyMax || math.IsNaN(d) {
					t.Errorf("Expected clamped difficulty, but got %v (correct=%v)", d, correct)
				}
			}
		})
	}
}
