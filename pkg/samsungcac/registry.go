package samsungcac

import "sync"

// DeviceRegistry is the most recently fetched device list.
type DeviceRegistry struct {
	mu      sync.RWMutex
	devices []*Device
}

// Replace discards the current list and creates a fresh device, with an
// empty state, for each descriptor. Duplicate IDs keep the first entry.
func (r *DeviceRegistry) Replace(descs []DeviceDescriptor) []*Device {
	devices := make([]*Device, 0, len(descs))
	seen := make(map[string]bool, len(descs))
	for _, d := range descs {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		devices = append(devices, NewDevice(d.ID, d.Group, d.Model))
	}

	r.mu.Lock()
	r.devices = devices
	r.mu.Unlock()

	return r.Devices()
}

// Find returns the device with the given DUID.
func (r *DeviceRegistry) Find(id string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.devices {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// Devices returns the devices in the order the controller listed them.
func (r *DeviceRegistry) Devices() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Device, len(r.devices))
	copy(out, r.devices)
	return out
}
