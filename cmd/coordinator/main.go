// Command coordinator runs the collage commit coordinator role.
// Grounded on the teacher's root main.go: read config, build the storage
// and service layers, recover, then serve.
package main

import (
	"context"
	"log"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"

	"github.com/elenmora/collagecommit/config"
	"github.com/elenmora/collagecommit/coordinator"
	applog "github.com/elenmora/collagecommit/log"
	"github.com/elenmora/collagecommit/metrics"
	"github.com/elenmora/collagecommit/rpc"
	"github.com/elenmora/collagecommit/rpc/collagepb"
)

func main() {
	cfg := config.NewCoordinator()

	logger := applog.New(
		applog.WithFileName("coordinator_" + cfg.Port + ".log"),
	)

	registry := prometheus.NewRegistry()

	remotes := make(map[string]coordinator.ParticipantClient, len(cfg.Peers))
	for _, peer := range cfg.Peers {
		remote := rpc.NewParticipantRemote(rpc.ParticipantRemoteConfig{
			Address:    peer.Address,
			DialTarget: peer.DialTarget,
		})
		remotes[peer.Address] = remote
	}

	coord := coordinator.New(coordinator.Config{
		LogPath:         cfg.LogPath,
		PrepareDeadline: cfg.PrepareDeadline,
		HeartbeatPeriod: cfg.HeartbeatPeriod,
		Participants:    remotes,
		Logger:          logger,
		Registerer:      registry,
	})

	log.Println("coordinator: recovering last state")
	if err := coord.Recover(); err != nil {
		log.Fatalln("coordinator: could not recover state:", err)
	}

	ctx := context.Background()
	for addr, remote := range remotes {
		r := remote.(*rpc.ParticipantRemote)
		if err := r.Connect(ctx); err != nil {
			log.Fatalf("coordinator: could not connect to participant %s: %v", addr, err)
		}
	}

	coord.Start(ctx)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := <-metrics.Serve(cfg.MetricsAddr, registry); err != nil {
				log.Println("coordinator: metrics server stopped:", err)
			}
		}()
	}

	lis, err := net.Listen("tcp", "127.0.0.1:"+cfg.Port)
	if err != nil {
		log.Fatalln("coordinator: failed to listen:", err)
	}

	grpcServer := grpc.NewServer()
	collagepb.RegisterCoordinatorServer(grpcServer, &rpc.CoordinatorServerAdapter{Handlers: coord})

	log.Println("coordinator: serving on", cfg.Port)
	if err := grpcServer.Serve(lis); err != nil {
		log.Fatalln("coordinator: failed to serve:", err)
	}
}
