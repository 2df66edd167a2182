package tool

import "net"

// AdvertisedHost picks the first non-loopback IPv4 address of this machine.
// Used for the host field of a session grant when the config leaves it empty.
// Fall back to loopback so local testing still works without any config.
func AdvertisedHost() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}

	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP
		if ip == nil || ip.IsLoopback() {
			continue
		}
		if ipv4 := ip.To4(); ipv4 != nil {
			return ipv4.String()
		}
	}
	return "127.0.0.1"
}
