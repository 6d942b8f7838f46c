package main

import (
	"flag"
	"log"
	"time"

	"vecta-client/internal/mockbackend"
	"vecta-client/internal/pkg/logger"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	flag.Parse()

	sysLogger := logger.NewZapLogger("mockbackend.log", false)
	defer sysLogger.Sync()

	server := mockbackend.New(sysLogger)
	server.ChunkDelay = 30 * time.Millisecond
	log.Printf("mock Vecta backend listening on %s", *addr)
	log.Fatal(server.Listen(*addr))
}
