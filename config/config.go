// Package config parses the two binaries' CLI surface (spec.md §6):
// the coordinator takes `<program> <port>`, the participant takes
// `<program> <port> <id>`, each fatal on wrong arity. Named flags carry
// everything the minimal CLI is silent on (peer addresses, log path,
// metrics listener), the same split the teacher's config.go uses between
// `-port`/`-peers` and hard-coded WAL settings.
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// PeerConfig names one participant the coordinator can reach: its logical
// address (used in source references, e.g. "A") and the host:port to
// dial it at.
type PeerConfig struct {
	Address    string
	DialTarget string
}

// Coordinator is the coordinator binary's parsed configuration.
type Coordinator struct {
	Port            string
	Peers           []PeerConfig
	LogPath         string
	MetricsAddr     string
	PrepareDeadline time.Duration
	HeartbeatPeriod time.Duration
}

// NewCoordinator parses flags and the single positional <port> argument,
// exiting via log.Fatalf on wrong arity exactly as the teacher's main.go
// fails fast on a bad listener.
func NewCoordinator() *Coordinator {
	peers := flag.String("peers", "", `comma-separated "address=host:port" participant list`)
	logPath := flag.String("log", "server_log.dat", "durable log file path")
	metricsAddr := flag.String("metrics-addr", "", "address to serve /metrics on, empty disables")
	prepareDeadline := flag.Duration("prepare-deadline", 3*time.Second, "PREPARE deadline per transaction")
	heartbeat := flag.Duration("heartbeat", 1*time.Second, "decision-heartbeat sweep period")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		log.Fatalf("usage: %s <port>", os.Args[0])
	}

	return &Coordinator{
		Port:            args[0],
		Peers:           parsePeers(*peers),
		LogPath:         *logPath,
		MetricsAddr:     *metricsAddr,
		PrepareDeadline: *prepareDeadline,
		HeartbeatPeriod: *heartbeat,
	}
}

func parsePeers(raw string) []PeerConfig {
	if raw == "" {
		return nil
	}
	entries := strings.Split(raw, ",")
	peers := make([]PeerConfig, 0, len(entries))
	for _, e := range entries {
		kv := strings.SplitN(e, "=", 2)
		if len(kv) != 2 {
			log.Printf("config: malformed peer entry %q, dropping", e)
			continue
		}
		peers = append(peers, PeerConfig{Address: kv[0], DialTarget: kv[1]})
	}
	return peers
}

// Participant is the participant binary's parsed configuration.
type Participant struct {
	Port            string
	ID              string
	CoordinatorAddr string
	FileRoot        string
	LogPath         string
	MetricsAddr     string
}

// NewParticipant parses flags and the two positional <port> <id>
// arguments.
func NewParticipant() *Participant {
	coordinatorAddr := flag.String("coordinator", "127.0.0.1:5000", "coordinator host:port")
	fileRoot := flag.String("root", "", "directory source images are read/deleted from")
	metricsAddr := flag.String("metrics-addr", "", "address to serve /metrics on, empty disables")
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		log.Fatalf("usage: %s <port> <id>", os.Args[0])
	}
	id := args[1]

	return &Participant{
		Port:            args[0],
		ID:              id,
		CoordinatorAddr: *coordinatorAddr,
		FileRoot:        *fileRoot,
		LogPath:         fmt.Sprintf("usernode_%s_log.dat", id),
		MetricsAddr:     *metricsAddr,
	}
}
