package nn

import (
	"errors"
	"math"
	"testing"
)

func TestRegisterAndGetActivation(t *testing.T) {
	resetActivationRegistryForTests()
	t.Cleanup(resetActivationRegistryForTests)

	err := RegisterActivation("quad",
		func(x float64) float64 { return x * x },
		func(x float64) float64 { return 2 * x },
	)
	if err != nil {
		t.Fatalf("register activation: %v", err)
	}
	fn, deriv, err := GetActivation("quad")
	if err != nil {
		t.Fatalf("get activation: %v", err)
	}
	if got := fn(3); got != 9 {
		t.Fatalf("unexpected activation result: got=%f want=9", got)
	}
	if got := deriv(3); got != 6 {
		t.Fatalf("unexpected derivative: got=%f want=6", got)
	}
}

func TestRegisterActivationValidation(t *testing.T) {
	resetActivationRegistryForTests()
	t.Cleanup(resetActivationRegistryForTests)

	identity := func(x float64) float64 { return x }
	if err := RegisterActivation("", identity, identity); err == nil {
		t.Fatal("expected empty name error")
	}
	if err := RegisterActivation("nil", nil, identity); err == nil {
		t.Fatal("expected nil function error")
	}
	if err := RegisterActivation("nil-deriv", identity, nil); err == nil {
		t.Fatal("expected nil derivative error")
	}
	if err := RegisterActivationWithSpec(ActivationSpec{
		Name:          "bad-version",
		Func:          identity,
		Deriv:         identity,
		SchemaVersion: 99,
		CodecVersion:  1,
	}); !errors.Is(err, ErrActivationVersion) {
		t.Fatalf("expected ErrActivationVersion, got: %v", err)
	}
	if err := RegisterActivation("relu", identity, identity); !errors.Is(err, ErrActivationExists) {
		t.Fatalf("expected ErrActivationExists, got: %v", err)
	}
}

func TestBuiltInDerivativesMatchFiniteDifference(t *testing.T) {
	const h = 1e-6
	for _, name := range ListActivations() {
		fn, deriv, err := GetActivation(name)
		if err != nil {
			t.Fatalf("get %s: %v", name, err)
		}
		for _, x := range []float64{-2.0, -0.5, 0.25, 1.5} {
			numeric := (fn(x+h) - fn(x-h)) / (2 * h)
			if math.Abs(numeric-deriv(x)) > 1e-4 {
				t.Fatalf("%s derivative at %g: analytic %g vs numeric %g", name, x, deriv(x), numeric)
			}
		}
	}
}
