package main

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	contractx "github.com/supawit-m/deskmesh/agent/contract"
	customerdatax "github.com/supawit-m/deskmesh/agent/customerdata"
	routerx "github.com/supawit-m/deskmesh/agent/router"
	supportx "github.com/supawit-m/deskmesh/agent/support"
	transportx "github.com/supawit-m/deskmesh/agent/transport"
	mcpclient "github.com/supawit-m/deskmesh/mcp/client"
	configx "github.com/supawit-m/deskmesh/pkg/config"
	_ "github.com/supawit-m/deskmesh/pkg/logger/autoload"
	serverx "github.com/supawit-m/deskmesh/server"
)

type AppConfig struct {
	// UseHTTP switches agent delivery from in-process calls to the
	// standalone agent services.
	UseHTTP bool `split_words:"true" default:"false"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("A2A")

	var (
		sender contractx.Sender
		cards  []contractx.Card
	)
	if appCfg.UseHTTP {
		httpCfg := configx.MustNew[transportx.HTTPConfig]("A2A")
		var err error
		sender, err = transportx.NewHTTP(*httpCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("build http sender")
		}
		log.Info().Msg("using HTTP agent delivery")
	} else {
		clientCfg := configx.MustNew[mcpclient.Config]("MCP")
		backend := mcpclient.MustNew(*clientCfg)
		if err := backend.Initialize(context.Background()); err != nil {
			log.Warn().Err(err).Msg("tool server handshake failed, continuing")
		}

		dataAgent, err := customerdatax.New(backend)
		if err != nil {
			log.Fatal().Err(err).Msg("build customer-data agent")
		}
		supportAgent, err := supportx.New(backend)
		if err != nil {
			log.Fatal().Err(err).Msg("build support agent")
		}
		sender = transportx.NewDirect(dataAgent, supportAgent)
		cards = append(cards, dataAgent.Card(), supportAgent.Card())
		log.Info().Msg("using in-process agent delivery")
	}

	rt, err := routerx.New(sender)
	if err != nil {
		log.Fatal().Err(err).Msg("build router")
	}

	srv, err := serverx.New(rt, cards...)
	if err != nil {
		log.Fatal().Err(err).Msg("build server")
	}

	srvCfg := configx.MustNew[serverx.Config]("SERVER")
	log.Info().Str("addr", srvCfg.Addr).Msg("coordinator listening")
	if err := http.ListenAndServe(srvCfg.Addr, srv); err != nil {
		log.Fatal().Err(err).Msg("coordinator stopped")
	}
}
