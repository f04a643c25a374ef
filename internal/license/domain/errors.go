package domain

import "errors"

var (
	ErrNotFound       = errors.New("license_not_found")
	ErrInactive       = errors.New("license_inactive")
	ErrDeviceMismatch = errors.New("device_mismatch")
	ErrWrongSource    = errors.New("license_wrong_source")
	ErrDeleteDisabled = errors.New("delete_disabled")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInvalidUser    = errors.New("invalid_user")
)

// DeviceMismatchError reports the device currently holding the binding.
// Only the device id is exposed; the device name stays private to the owner.
type DeviceMismatchError struct {
	BoundDeviceID string
}

func (e *DeviceMismatchError) Error() string { return "device_mismatch" }

func (e *DeviceMismatchError) Is(target error) bool { return target == ErrDeviceMismatch }
