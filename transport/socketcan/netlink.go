package socketcan

import (
	"fmt"

	"github.com/vishvananda/netlink"
)

// BringUp administratively enables ifName, so Open can successfully bind to
// it. It does not configure bitrate: that is typically fixed by the kernel
// CAN driver or a prior `ip link set ... type can bitrate ...` invocation
// outside this process, and the netlink library used here does not expose
// the CAN-specific link type.
func BringUp(ifName string) error {
	link, err := netlink.LinkByName(ifName)
	if err != nil {
		return fmt.Errorf("socketcan: lookup interface %q: %w", ifName, err)
	}

	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("socketcan: bring up interface %q: %w", ifName, err)
	}
	return nil
}
