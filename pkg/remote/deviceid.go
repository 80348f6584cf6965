package remote

import (
	"github.com/denisbrodbeck/machineid"
)

// AppID keys the device ID derived from the machine ID.
const AppID = "binclock"

// DeviceID returns a stable ID of the machine, hashed with AppID so the raw
// machine ID is never published.
func DeviceID() (string, error) {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		return "", err
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id, nil
}
