package board

import (
	"fmt"

	"github.com/golang/glog"
	"periph.io/x/host/v3"
)

// InitHost loads the periph host drivers so GPIO names can be resolved.
func InitHost() error {
	state, err := host.Init()
	if err != nil {
		return fmt.Errorf("init host drivers: %v", err)
	}
	for _, drv := range state.Loaded {
		glog.V(2).Infof("driver loaded: %s", drv)
	}
	for _, failure := range state.Failed {
		glog.Warningf("driver failed: %v", failure)
	}
	return nil
}
