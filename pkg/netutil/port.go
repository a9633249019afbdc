package netutil

import (
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
)

const maxPortAttempts = 10

// FindAvailablePort probes ports upwards from basePort and returns the first
// one that can be bound. When none is free it falls back to basePort.
func FindAvailablePort(basePort int, serviceName string) int {
	port := basePort

	for attempt := 0; attempt < maxPortAttempts; attempt++ {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			listener.Close()
			logrus.WithFields(logrus.Fields{
				"service": serviceName,
				"port":    port,
			}).Info("Found available port")
			return port
		}
		logrus.WithFields(logrus.Fields{
			"service": serviceName,
			"port":    port,
		}).Warn("Port in use, trying next port")
		port++
	}
	logrus.WithFields(logrus.Fields{
		"service": serviceName,
		"port":    basePort,
	}).Warn("Failed to find available port, using base port")
	return basePort
}
