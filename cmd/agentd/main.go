package main

import (
	"context"
	"flag"
	"net/http"

	"github.com/rs/zerolog/log"

	contractx "github.com/supawit-m/deskmesh/agent/contract"
	customerdatax "github.com/supawit-m/deskmesh/agent/customerdata"
	servicex "github.com/supawit-m/deskmesh/agent/service"
	supportx "github.com/supawit-m/deskmesh/agent/support"
	mcpclient "github.com/supawit-m/deskmesh/mcp/client"
	configx "github.com/supawit-m/deskmesh/pkg/config"
	_ "github.com/supawit-m/deskmesh/pkg/logger/autoload"
)

func main() {
	role := flag.String("role", "", "agent to serve: customer_data or support")
	addr := flag.String("addr", "", "listen address, defaults per role")
	flag.Parse()

	clientCfg := configx.MustNew[mcpclient.Config]("MCP")
	backend := mcpclient.MustNew(*clientCfg)
	if err := backend.Initialize(context.Background()); err != nil {
		log.Warn().Err(err).Msg("tool server handshake failed, continuing")
	}

	var (
		agent contractx.Agent
		err   error
	)
	switch *role {
	case string(contractx.AgentTypeCustomerData):
		agent, err = customerdatax.New(backend)
		if *addr == "" {
			*addr = ":8001"
		}
	case string(contractx.AgentTypeSupport):
		agent, err = supportx.New(backend)
		if *addr == "" {
			*addr = ":8002"
		}
	default:
		log.Fatal().Str("role", *role).Msg("unknown role, want customer_data or support")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("build agent")
	}

	svc, err := servicex.New(agent)
	if err != nil {
		log.Fatal().Err(err).Msg("build service")
	}

	log.Info().Str("role", *role).Str("addr", *addr).Msg("agent service listening")
	if err := http.ListenAndServe(*addr, svc); err != nil {
		log.Fatal().Err(err).Msg("agent service stopped")
	}
}
