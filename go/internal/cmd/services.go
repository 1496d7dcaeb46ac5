package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/prizevote/go/clients/voting_api_client"
	"github.com/mcdev12/prizevote/go/internal/models"
	"github.com/mcdev12/prizevote/go/internal/voter"
	"github.com/mcdev12/prizevote/go/internal/voter/gateway"
	"github.com/mcdev12/prizevote/go/internal/voting/events"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Client    *voting_api_client.VotingApiClient
	Actor     models.User
	Publisher events.Publisher
	Voter     *voter.App
	Gateway   *gateway.Service
}

// setupServices authenticates against the voting service and wires
// client → app → gateway.
func setupServices(ctx context.Context, config *Config) (*Services, error) {
	token := config.API.Token
	if token == "" {
		if config.API.Username == "" {
			return nil, errors.New("VOTING_API_TOKEN or VOTING_USERNAME/VOTING_PASSWORD is required")
		}
		loginClient := voting_api_client.NewVotingApiClient(config.API.BaseURL, "")
		loginClient.SetTimeout(config.API.Timeout)
		resp, err := loginClient.Login(ctx, config.API.Username, config.API.Password)
		if err != nil {
			return nil, err
		}
		token = resp.AccessToken
	}

	client := voting_api_client.NewVotingApiClient(config.API.BaseURL, token)
	client.SetTimeout(config.API.Timeout)

	actor, err := client.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	publisher, err := setupPublisher(ctx, config)
	if err != nil {
		return nil, err
	}

	app := voter.NewApp(client, *actor, voter.Config{
		PollInterval: config.Poller.Interval,
		Publisher:    publisher,
	})

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.AllowedOrigins = config.Gateway.AllowedOrigins

	log.Info().
		Int("user_id", actor.ID).
		Str("username", actor.Username).
		Bool("is_president", actor.IsPresident).
		Str("api", client.BaseURL()).
		Msg("authenticated against voting service")

	gatewayService := gateway.NewService(gatewayConfig, app)
	if js, ok := publisher.(*events.JetStreamPublisher); ok {
		gatewayService.AddHealthCheck("nats", func() error {
			if !js.IsConnected() {
				return errors.New("disconnected")
			}
			return nil
		})
	}

	return &Services{
		Client:    client,
		Actor:     *actor,
		Publisher: publisher,
		Voter:     app,
		Gateway:   gatewayService,
	}, nil
}

func setupPublisher(ctx context.Context, config *Config) (events.Publisher, error) {
	if !config.Events.Enabled {
		return events.NewLogPublisher(), nil
	}
	publisher, err := events.NewJetStreamPublisher(ctx, config.Events.JetStream)
	if err != nil {
		return nil, fmt.Errorf("failed to set up event publisher: %w", err)
	}
	return publisher, nil
}
