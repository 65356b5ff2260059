package pansmart

import "net/http"

// DeviceConstructor builds a concrete device from its devList record.
type DeviceConstructor func(info DeviceInfo, session SessionInfo, httpClient *http.Client, baseURL string) (Device, error)

var deviceTypes = map[string]DeviceConstructor{}

// RegisterDeviceType binds a device-type discriminator (the second segment
// of the device identifier) to a constructor. New device kinds register
// themselves from their own file's init.
func RegisterDeviceType(typeCode string, constructor DeviceConstructor) {
	deviceTypes[typeCode] = constructor
}

func lookupDeviceType(typeCode string) (DeviceConstructor, bool) {
	constructor, ok := deviceTypes[typeCode]
	return constructor, ok
}
