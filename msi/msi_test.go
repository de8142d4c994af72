package msi

import "testing"

func TestAllocFreeRoundTrip(t *testing.T) {
	allocated := make([]Vec_t, 0, 8)
	for {
		v, ok := Alloc()
		if !ok {
			break
		}
		allocated = append(allocated, v)
	}
	if len(allocated) != 8 {
		t.Fatalf("expected the fixed 8-vector pool, got %d", len(allocated))
	}
	if _, ok := Alloc(); ok {
		t.Fatalf("expected pool exhaustion")
	}

	seen := map[Vec_t]bool{}
	for _, v := range allocated {
		if seen[v] {
			t.Fatalf("vector %d allocated twice", v)
		}
		seen[v] = true
	}

	for _, v := range allocated {
		Free(v)
	}
}

func TestAddressDataEncoding(t *testing.T) {
	if Address() != 0xfee00000 {
		t.Fatalf("unexpected MSI address base: %#x", Address())
	}
	if Data(57) != 57 {
		t.Fatalf("expected data field to carry the vector number")
	}
}
