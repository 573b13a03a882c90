package registry

import (
	"testing"

	"github.com/mvchalupnik/qudi/config"
	"github.com/stretchr/testify/assert"
)

type fakeModule struct {
	name string
}

func TestRegisterAndCreate(t *testing.T) {
	defer Clear()
	Register("hardware.fake.Fake", func(d *config.Descriptor) (interface{}, error) {
		return &fakeModule{name: d.Name}, nil
	})

	assert.True(t, Exists("hardware.fake.Fake"))
	assert.False(t, Exists("hardware.fake.Other"))

	d := &config.Descriptor{Name: "fake1", Base: config.BaseHardware, Class: "hardware.fake.Fake", Entry: config.NewEntry()}
	instance, err := Create(d)
	assert.Nil(t, err)
	m, ok := instance.(*fakeModule)
	assert.True(t, ok)
	assert.Equal(t, "fake1", m.name)
}

func TestCreateUnknownClass(t *testing.T) {
	defer Clear()
	d := &config.Descriptor{Name: "x", Base: config.BaseHardware, Class: "hardware.unknown.X", Entry: config.NewEntry()}
	_, err := Create(d)
	assert.NotNil(t, err)
}
