// Command participant runs one collage commit participant node.
// Grounded on the teacher's root main.go, split onto the participant
// half of the protocol.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"

	"github.com/elenmora/collagecommit/config"
	applog "github.com/elenmora/collagecommit/log"
	"github.com/elenmora/collagecommit/metrics"
	"github.com/elenmora/collagecommit/participant"
	"github.com/elenmora/collagecommit/rpc"
	"github.com/elenmora/collagecommit/rpc/collagepb"
	"github.com/elenmora/collagecommit/transport"
)

// stdinOracle is the askUser collaborator left external: it prints the
// requested filenames and blocks on a y/n answer from stdin.
func stdinOracle(id string) transport.AskUserFunc {
	return func(ctx context.Context, imageBytes []byte, filenames []string) bool {
		fmt.Printf("[participant %s] approve release of %v into a %d-byte composite? [y/N] ", id, filenames, len(imageBytes))
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		return answer == "y" || answer == "yes"
	}
}

func main() {
	cfg := config.NewParticipant()

	logger := applog.New(
		applog.WithFileName("participant_" + cfg.ID + ".log"),
	)

	registry := prometheus.NewRegistry()

	coordinatorRemote := rpc.NewCoordinatorRemote(cfg.CoordinatorAddr)

	p := participant.New(participant.Config{
		Address:     cfg.ID,
		LogPath:     cfg.LogPath,
		Coordinator: coordinatorRemote,
		Oracle:      stdinOracle(cfg.ID),
		Files:       participant.NewFileStore(cfg.FileRoot),
		Logger:      logger,
		Registerer:  registry,
	})

	log.Println("participant: recovering last state")
	if err := p.Recover(); err != nil {
		log.Fatalln("participant: could not recover state:", err)
	}

	ctx := context.Background()
	if err := coordinatorRemote.Connect(ctx); err != nil {
		log.Fatalln("participant: could not connect to coordinator:", err)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := <-metrics.Serve(cfg.MetricsAddr, registry); err != nil {
				log.Println("participant: metrics server stopped:", err)
			}
		}()
	}

	lis, err := net.Listen("tcp", "127.0.0.1:"+cfg.Port)
	if err != nil {
		log.Fatalln("participant: failed to listen:", err)
	}

	grpcServer := grpc.NewServer()
	collagepb.RegisterParticipantServer(grpcServer, &rpc.ParticipantServerAdapter{Handlers: p})

	log.Println("participant: serving on", cfg.Port)
	if err := grpcServer.Serve(lis); err != nil {
		log.Fatalln("participant: failed to serve:", err)
	}
}
