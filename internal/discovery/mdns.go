// ABOUTME: mDNS service discovery for chipdec remote control
// ABOUTME: Advertises a player's control endpoint and browses for players
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

const (
	// ServiceType is the mDNS service players advertise
	ServiceType = "_chipdec._tcp"

	// Path is the websocket endpoint advertised in the TXT record
	Path = "/chipdec"

	queryTimeout = 3 * time.Second
)

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	players chan *PlayerInfo
}

// PlayerInfo describes a discovered player
type PlayerInfo struct {
	Name string
	Host string
	Port int
	Path string
}

// Addr returns host:port for dialing
func (p *PlayerInfo) Addr() string {
	return net.JoinHostPort(p.Host, fmt.Sprint(p.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		players: make(chan *PlayerInfo, 10),
	}
}

// Advertise advertises this player via mDNS until Stop
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		[]string{"path=" + Path},
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for players until Stop; results arrive on Players
func (m *Manager) Browse() {
	go m.browseLoop()
}

// browseLoop continuously browses for players
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				player := playerFromEntry(entry)
				if player == nil {
					continue
				}

				log.Printf("Discovered player: %s at %s", player.Name, player.Addr())

				select {
				case m.players <- player:
				case <-m.ctx.Done():
				}
			}
		}()

		params := mdns.DefaultParams(ServiceType)
		params.Entries = entries
		params.Timeout = queryTimeout
		params.DisableIPv6 = true

		if err := mdns.Query(params); err != nil {
			log.Printf("mDNS query failed: %v", err)
		}
		close(entries)
		<-done
	}
}

// Players returns the channel of discovered players
func (m *Manager) Players() <-chan *PlayerInfo {
	return m.players
}

// Stop stops advertisement and browsing
func (m *Manager) Stop() {
	m.cancel()
}

// FindFirst browses until a player answers or ctx ends
func FindFirst(ctx context.Context) (*PlayerInfo, error) {
	m := NewManager(Config{})
	defer m.Stop()
	m.Browse()

	select {
	case p := <-m.Players():
		return p, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("no player found: %w", ctx.Err())
	}
}

// playerFromEntry converts a browse result; entries without an IPv4
// address are skipped
func playerFromEntry(entry *mdns.ServiceEntry) *PlayerInfo {
	if entry == nil || entry.AddrV4 == nil {
		return nil
	}
	player := &PlayerInfo{
		Name: strings.TrimSuffix(entry.Name, "."+ServiceType+".local."),
		Host: entry.AddrV4.String(),
		Port: entry.Port,
		Path: Path,
	}
	for _, field := range entry.InfoFields {
		if v, ok := strings.CutPrefix(field, "path="); ok && v != "" {
			player.Path = v
		}
	}
	return player
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
