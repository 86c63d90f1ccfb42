package serial

import (
	"errors"
	"fmt"

	"go.bug.st/serial/enumerator"
)

var ErrEnumerate = errors.New("serial: device enumeration failed")

// ListDevices returns device name to description, the description being the
// USB product string when the platform reports one.
func ListDevices() (map[string]string, error) {
	return listDevices(enumerator.GetDetailedPortsList)
}

func listDevices(enumerate func() ([]*enumerator.PortDetails, error)) (map[string]string, error) {
	ports, err := enumerate()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumerate, err)
	}
	devices := make(map[string]string, len(ports))
	for _, port := range ports {
		if port == nil || port.Name == "" {
			continue
		}
		if _, seen := devices[port.Name]; seen {
			continue
		}
		description := ""
		if port.IsUSB {
			description = port.Product
		}
		devices[port.Name] = description
	}
	return devices, nil
}
