package main

import (
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/arena/go/internal/arcade"
	arcadedb "github.com/mcdev12/arena/go/internal/arcade/db"
	"github.com/mcdev12/arena/go/internal/game"
	gamedb "github.com/mcdev12/arena/go/internal/game/db"
	"github.com/mcdev12/arena/go/internal/wallet"
)

var (
	_ game.PrizePayer       = (*wallet.PayoutClient)(nil)
	_ game.PaymentVerifier  = (*wallet.RPCClient)(nil)
	_ arcade.BalanceChecker = (*wallet.RPCClient)(nil)
)

type Services struct {
	Grabbit *game.Service
	Arcade  *arcade.Service
}

func setupServices(database *sql.DB, config *Config) (*Services, error) {
	// Wire up dependency injection chain
	// queries, then repository, then app, then connect service
	clock := clockwork.NewRealClock()

	// Wallet collaborators
	rpc := wallet.NewRPCClient(getEnv("SOLANA_RPC_URL", "https://api.devnet.solana.com"))
	rpc.SetCommitment(getEnv("SOLANA_COMMITMENT", wallet.DefaultCommitment))

	var payer game.PrizePayer
	if payoutURL := getEnv("PAYOUT_URL", ""); payoutURL != "" {
		payer = wallet.NewPayoutClient(payoutURL, getEnv("PAYOUT_API_KEY", ""))
	} else {
		log.Warn().Msg("PAYOUT_URL not set, prize claims will fail until it is configured")
	}

	// Grabbit
	gameQueries := gamedb.New(database)
	gameRepo := game.NewRepository(database, gameQueries)
	gameApp := game.NewApp(gameRepo, payer, rpc, clock, config.Grabbit.Presets)
	gameService := game.NewService(gameApp, getEnv("ADMIN_KEY", ""))

	// Arcade
	tokenSecret, err := secretFromEnv("ARCADE_TOKEN_SECRET")
	if err != nil {
		return nil, err
	}
	tokens, err := arcade.NewTokenIssuer(tokenSecret, clock)
	if err != nil {
		return nil, fmt.Errorf("arcade tokens: %w", err)
	}

	var cipher *arcade.ScoreCipher
	scoreKey, err := secretFromEnv("ARCADE_SCORE_KEY")
	if err != nil {
		return nil, err
	}
	if scoreKey != nil {
		if cipher, err = arcade.NewScoreCipher(scoreKey); err != nil {
			return nil, fmt.Errorf("arcade score cipher: %w", err)
		}
	}

	arcadeQueries := arcadedb.New(database)
	arcadeRepo := arcade.NewRepository(database, arcadeQueries)
	arcadeApp := arcade.NewApp(arcadeRepo, rpc, tokens, cipher, clock, config.Arcade.Games)
	arcadeService := arcade.NewService(arcadeApp)

	log.Info().
		Int("grabbit_presets", len(config.Grabbit.Presets)).
		Int("arcade_games", len(config.Arcade.Games)).
		Bool("sealed_scores", cipher != nil).
		Msg("services wired")

	return &Services{
		Grabbit: gameService,
		Arcade:  arcadeService,
	}, nil
}
