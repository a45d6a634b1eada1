package samsungcac

import "go.uber.org/zap"

// updateDispatcher applies attribute deltas to registered devices and
// publishes the resulting DeviceUpdate.
type updateDispatcher struct {
	registry *DeviceRegistry
	logger   *zap.Logger
	publish  func(*Device, []Attribute)
}

// dispatch handles an unsolicited status update. It reports whether the
// update referenced a known device.
func (d *updateDispatcher) dispatch(u *StatusUpdate) bool {
	dev, ok := d.registry.Find(u.Device.ID)
	if !ok {
		d.logger.Warn("update for unknown device",
			zap.String("type", u.Type),
			zap.String("duid", u.Device.ID),
			zap.Any("message", u),
		)
		return false
	}

	d.apply(dev, u.Attributes)
	return true
}

func (d *updateDispatcher) apply(dev *Device, attrs []Attribute) {
	dev.apply(attrs)
	d.logger.Debug("device state merged",
		zap.String("duid", dev.ID),
		zap.Int("attributes", len(attrs)),
	)
	d.publish(dev, attrs)
}
