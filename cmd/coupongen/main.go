package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/khidmaty/khidmaty/internal/config"
	"github.com/khidmaty/khidmaty/internal/repository"
	"github.com/khidmaty/khidmaty/internal/service"
	"github.com/khidmaty/khidmaty/pkg/database"
)

// coupongen mints subscription coupons and prints them to stdout, one code
// per line, for the operator to hand out through payment channels.
func main() {
	amount := flag.Int("amount", 0, "coupon face amount (60 for silver, 100 for gold)")
	count := flag.Int("count", 1, "number of coupons to generate")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 1)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	coupons := service.NewCouponService(repository.NewCouponRepository(pool), cfg.Bot.CouponPrefix)

	codes, err := coupons.Generate(ctx, *amount, *count)
	if err != nil {
		log.Fatal().Err(err).Int("amount", *amount).Msg("coupon generation failed")
	}

	for _, code := range codes {
		fmt.Println(code)
	}
	log.Info().Int("count", len(codes)).Int("amount", *amount).Msg("coupons generated")
}
