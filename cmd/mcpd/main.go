package main

import (
	"context"
	"flag"
	"net/http"

	"github.com/rs/zerolog/log"

	mcpserver "github.com/supawit-m/deskmesh/mcp/server"
	configx "github.com/supawit-m/deskmesh/pkg/config"
	_ "github.com/supawit-m/deskmesh/pkg/logger/autoload"
	"github.com/supawit-m/deskmesh/store"
)

func main() {
	seed := flag.Bool("seed", false, "create the schema and load sample data before serving")
	flag.Parse()

	storeCfg := configx.MustNew[store.Config]("STORE")
	st, err := store.Open(*storeCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer st.Close()

	if *seed {
		ctx := context.Background()
		if err := st.CreateSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("create schema")
		}
		if err := st.Seed(ctx); err != nil {
			log.Fatal().Err(err).Msg("seed store")
		}
		log.Info().Msg("schema created and sample data loaded")
	}

	srvCfg := configx.MustNew[mcpserver.Config]("MCP")
	srv := mcpserver.New(st)

	log.Info().Str("addr", srvCfg.Addr).Msg("tool server listening")
	if err := http.ListenAndServe(srvCfg.Addr, srv); err != nil {
		log.Fatal().Err(err).Msg("tool server stopped")
	}
}
