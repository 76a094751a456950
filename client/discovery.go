package client

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/sirupsen/logrus"
)

// RosbridgeService is the mDNS service type advertised by rosbridge hosts.
const RosbridgeService = "_rosbridge._tcp"

type DiscoveredService struct {
	ServiceName string
	Address     string
	Port        int
	TXTRecords  []string
}

// Endpoint builds the WebSocket URI for the service. A "tls=true" TXT record
// selects wss, and a "path=..." record is appended.
func (d *DiscoveredService) Endpoint() string {
	scheme := "ws"
	path := ""
	for _, txt := range d.TXTRecords {
		key, value, ok := strings.Cut(txt, "=")
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "tls":
			if value == "true" || value == "1" {
				scheme = "wss"
			}
		case "path":
			path = "/" + strings.TrimPrefix(value, "/")
		}
	}
	return scheme + "://" + net.JoinHostPort(d.Address, strconv.Itoa(d.Port)) + path
}

// DiscoverEndpoint looks up the first rosbridge server on the local network.
func DiscoverEndpoint(timeout time.Duration, logger logrus.FieldLogger) (*DiscoveredService, error) {
	return discoverService(RosbridgeService, timeout, logger)
}

func discoverService(serviceType string, timeout time.Duration, logger logrus.FieldLogger) (*DiscoveredService, error) {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	entriesCh := make(chan *mdns.ServiceEntry, 4)

	params := mdns.DefaultParams(serviceType)
	params.Entries = entriesCh
	params.Timeout = timeout

	// Start discovery in background
	go func() {
		defer close(entriesCh)
		if err := mdns.Query(params); err != nil {
			logger.WithError(err).Warn("mDNS query failed")
		}
	}()

	deadline := time.After(timeout)
	for {
		select {
		case entry, ok := <-entriesCh:
			if !ok {
				return nil, fmt.Errorf("no %s service found", serviceType)
			}
			service, err := serviceFromEntry(entry)
			if err != nil {
				logger.WithError(err).WithField("name", entry.Name).Debug("Skipping mDNS entry")
				continue
			}

			logger.WithFields(logrus.Fields{
				"service_name": service.ServiceName,
				"address":      service.Address,
				"port":         service.Port,
			}).Info("Discovered rosbridge server")
			return service, nil

		case <-deadline:
			return nil, fmt.Errorf("mDNS discovery timeout for %s", serviceType)
		}
	}
}

func serviceFromEntry(entry *mdns.ServiceEntry) (*DiscoveredService, error) {
	if entry == nil {
		return nil, fmt.Errorf("empty mDNS entry")
	}

	var address string
	if entry.AddrV4 != nil {
		address = entry.AddrV4.String()
	} else if entry.AddrV6 != nil {
		address = entry.AddrV6.String()
	} else {
		return nil, fmt.Errorf("no valid address found for service")
	}
	if entry.Port <= 0 {
		return nil, fmt.Errorf("invalid port %d", entry.Port)
	}

	return &DiscoveredService{
		ServiceName: entry.Name,
		Address:     address,
		Port:        entry.Port,
		TXTRecords:  entry.InfoFields,
	}, nil
}
