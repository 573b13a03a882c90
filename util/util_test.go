package util

import "testing"

func TestSub(t *testing.T) {
	r := Sub([]string{"a", "b", "c"}, []string{"b"})
	if len(r) != 2 || r[0] != "a" || r[1] != "c" {
		t.Error("Fail to substract two arrays")
	}
	r = Sub([]string{"a"}, []string{})
	if len(r) != 1 || r[0] != "a" {
		t.Error("Fail to substract empty array")
	}
}

func TestInArray(t *testing.T) {
	if !InArray("rng", []string{"counter", "rng"}) {
		t.Error("Fail to find existing element")
	}
	if InArray("laser", []string{"counter", "rng"}) {
		t.Error("Found non-existing element")
	}
}

func TestElementsMatchString(t *testing.T) {
	if !ElementsMatchString([]string{"a", "b"}, []string{"b", "a"}) {
		t.Error("Fail to match equal arrays")
	}
	if ElementsMatchString([]string{"a", "b"}, []string{"a"}) {
		t.Error("Matched arrays of different length")
	}
}
