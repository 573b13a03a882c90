package remote

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseURL(t *testing.T) {
	ref, err := ParseURL("xmlrpc://lab-pc:8340/rng")
	if err != nil {
		t.Fatalf("Fail to parse remote url: %v", err)
	}
	assert.Equal(t, "lab-pc", ref.Host)
	assert.Equal(t, 8340, ref.Port)
	assert.Equal(t, "rng", ref.Module)
	assert.Equal(t, "http://lab-pc:8340", ref.ServerURL())
	assert.Equal(t, "xmlrpc://lab-pc:8340/rng", ref.String())
}

func TestParseURLErrors(t *testing.T) {
	cases := []string{
		"rpyc://lab-pc:8340/rng",
		"xmlrpc://lab-pc/rng",
		"xmlrpc://:8340/rng",
		"xmlrpc://lab-pc:8340",
		"xmlrpc://lab-pc:8340/a/b",
	}
	for _, s := range cases {
		if _, err := ParseURL(s); err == nil {
			t.Errorf("expect error for %q", s)
		}
	}
}

type echoModule struct {
	mean  float64
	noise float64
}

func (e *echoModule) SetParams(mean float64, noise float64) {
	e.mean = mean
	e.noise = noise
}

func (e *echoModule) Params() (float64, float64) {
	return e.mean, e.noise
}

func (e *echoModule) RandomValues(n int) ([]float64, error) {
	result := make([]float64, n)
	for i := range result {
		result[i] = e.mean
	}
	return result, nil
}

func (e *echoModule) Fail() error {
	return assert.AnError
}

func TestDispatchNoResult(t *testing.T) {
	m := &echoModule{}
	result, err := Dispatch(m, "SetParams", "[42.0, 0.5]")
	assert.Nil(t, err)
	assert.Equal(t, "null", result)
	assert.Equal(t, 42.0, m.mean)
	assert.Equal(t, 0.5, m.noise)
}

func TestDispatchMultipleResults(t *testing.T) {
	m := &echoModule{mean: 1.5, noise: 0.25}
	result, err := Dispatch(m, "Params", "[]")
	assert.Nil(t, err)
	assert.Equal(t, "[1.5,0.25]", result)
}

func TestDispatchValueWithError(t *testing.T) {
	m := &echoModule{mean: 2}
	result, err := Dispatch(m, "RandomValues", "[3]")
	assert.Nil(t, err)
	assert.Equal(t, "[2,2,2]", result)
}

func TestDispatchReturnedError(t *testing.T) {
	m := &echoModule{}
	_, err := Dispatch(m, "Fail", "[]")
	assert.NotNil(t, err)
}

func TestDispatchUnknownMethod(t *testing.T) {
	m := &echoModule{}
	_, err := Dispatch(m, "NoSuchMethod", "[]")
	if err == nil || !strings.Contains(err.Error(), "no method") {
		t.Errorf("expect unknown method fault, but got %v", err)
	}
}

func TestDispatchWrongArgumentCount(t *testing.T) {
	m := &echoModule{}
	_, err := Dispatch(m, "SetParams", "[1.0]")
	if err == nil || !strings.Contains(err.Error(), "takes 2 arguments") {
		t.Errorf("expect argument count fault, but got %v", err)
	}
}

func TestDispatchBadArguments(t *testing.T) {
	m := &echoModule{}
	_, err := Dispatch(m, "SetParams", "not json")
	assert.NotNil(t, err)
}
