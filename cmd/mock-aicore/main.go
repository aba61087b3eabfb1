package main

import (
	"flag"
	"log"
	"net/http"

	mockaicore "github.com/ccastromar/aicore-agents/internal/mocks/aicore"
)

var listenAndServe = http.ListenAndServe

func buildMux() *http.ServeMux {
	mux := http.NewServeMux()
	mockaicore.NewMock().RegisterHandlers(mux)
	return mux
}

func main() {
	addr := flag.String("addr", ":9000", "listen address")
	flag.Parse()

	log.Printf("[MOCK AI CORE] listening on %s", *addr)
	if err := listenAndServe(*addr, buildMux()); err != nil {
		log.Fatal(err)
	}
}
