package samsungcac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceRegistry_Replace(t *testing.T) {
	var r DeviceRegistry

	devices := r.Replace([]DeviceDescriptor{
		{ID: "A1", Group: "Living", Model: "M1"},
		{ID: "B2", Group: "Bed", Model: "M2"},
	})
	require.Len(t, devices, 2)
	assert.Equal(t, "A1", devices[0].ID)
	assert.Equal(t, "Bed", devices[1].Group)

	d, ok := r.Find("B2")
	require.True(t, ok)
	assert.Equal(t, "M2", d.Model)

	_, ok = r.Find("C3")
	assert.False(t, ok)
}

func TestDeviceRegistry_ReplaceDiscardsState(t *testing.T) {
	var r DeviceRegistry
	r.Replace([]DeviceDescriptor{{ID: "A1"}})

	d, _ := r.Find("A1")
	d.apply([]Attribute{{ID: AttrPower, Value: "On"}})

	r.Replace([]DeviceDescriptor{{ID: "A1"}})
	fresh, ok := r.Find("A1")
	require.True(t, ok)
	assert.NotSame(t, d, fresh)
	assert.Nil(t, fresh.State().Power)
}

func TestDeviceRegistry_DuplicateIDs(t *testing.T) {
	var r DeviceRegistry
	devices := r.Replace([]DeviceDescriptor{
		{ID: "A1", Group: "first"},
		{ID: "A1", Group: "second"},
	})

	require.Len(t, devices, 1)
	assert.Equal(t, "first", devices[0].Group)
}

func TestDeviceRegistry_DevicesIsACopy(t *testing.T) {
	var r DeviceRegistry
	r.Replace([]DeviceDescriptor{{ID: "A1"}, {ID: "B2"}})

	list := r.Devices()
	list[0] = nil

	d, ok := r.Find("A1")
	require.True(t, ok)
	assert.NotNil(t, d)
	assert.Len(t, r.Devices(), 2)
}
